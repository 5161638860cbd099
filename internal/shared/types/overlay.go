package types

import "time"

// OverlayType tags the kind of in-app modal/sheet an overlay entry represents.
// The set is closed: URL decoding rejects anything not listed here.
type OverlayType string

const (
	OverlayInfo            OverlayType = "INFO"
	OverlayConfirm         OverlayType = "CONFIRM"
	OverlaySettings        OverlayType = "SETTINGS"
	OverlayProfile         OverlayType = "PROFILE"
	OverlayAddContact      OverlayType = "ADD_CONTACT"
	OverlayContactRequests OverlayType = "CONTACT_REQUESTS"
	OverlayCreateGroup     OverlayType = "CREATE_GROUP"
	OverlayGroupInfo       OverlayType = "GROUP_INFO"
	OverlayGroupInvites    OverlayType = "GROUP_INVITES"
	OverlayEmojiPicker     OverlayType = "EMOJI_PICKER"
	OverlayShare           OverlayType = "SHARE"
)

var overlayTypes = map[OverlayType]struct{}{
	OverlayInfo:            {},
	OverlayConfirm:         {},
	OverlaySettings:        {},
	OverlayProfile:         {},
	OverlayAddContact:      {},
	OverlayContactRequests: {},
	OverlayCreateGroup:     {},
	OverlayGroupInfo:       {},
	OverlayGroupInvites:    {},
	OverlayEmojiPicker:     {},
	OverlayShare:           {},
}

// Valid reports whether t is a known overlay type.
func (t OverlayType) Valid() bool {
	_, ok := overlayTypes[t]
	return ok
}

// OverlayEntry is one open overlay tracked by the stack. Entries are owned by
// the stack; consumers receive copies.
type OverlayEntry struct {
	ID           string                 `json:"id"`
	Type         OverlayType            `json:"type"`
	Props        map[string]interface{} `json:"props,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	PersistInURL bool                   `json:"persist_in_url"`
}

// Clone returns a deep-enough copy: the props map is copied one level.
func (e OverlayEntry) Clone() OverlayEntry {
	out := e
	if e.Props != nil {
		props := make(map[string]interface{}, len(e.Props))
		for k, v := range e.Props {
			props[k] = v
		}
		out.Props = props
	}
	return out
}
