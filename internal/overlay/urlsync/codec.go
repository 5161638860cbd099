// Package urlsync keeps the overlay stack's top entry and the URL query
// string consistent in both directions without feedback loops.
//
// The wire format is three query parameters: the overlay type, a base64
// JSON-encoded props bag, and an optional entry ID. Absence of the type
// parameter means "no overlay in URL".
package urlsync

import (
	"encoding/base64"
	"net/url"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/iceinvein/bootleg-msn-sub000/internal/logging"
	"github.com/iceinvein/bootleg-msn-sub000/internal/monitoring"
	"github.com/iceinvein/bootleg-msn-sub000/internal/shared/types"
)

// Query parameter names. Stable contract shared with the UI router.
const (
	ParamModal      = "modal"
	ParamModalProps = "modalProps"
	ParamModalID    = "modalId"
)

// DefaultMaxPropsLength bounds the encoded props parameter. Oversized props
// are dropped whole rather than truncated: a truncated value would decode
// into invalid JSON.
const DefaultMaxPropsLength = 2000

// Codec encodes and decodes the overlay descriptor query parameters.
type Codec struct {
	maxPropsLength int
	log            *logging.Logger
	metrics        *monitoring.Metrics
}

// NewCodec creates a codec. maxPropsLength <= 0 selects the default bound.
func NewCodec(maxPropsLength int, log *logging.Logger) *Codec {
	if maxPropsLength <= 0 {
		maxPropsLength = DefaultMaxPropsLength
	}
	if log == nil {
		log = logging.NewDefault()
	}
	return &Codec{
		maxPropsLength: maxPropsLength,
		log:            log.Component("urlsync.codec"),
	}
}

// WithMetrics adds metrics tracking to the codec.
func (c *Codec) WithMetrics(m *monitoring.Metrics) *Codec {
	c.metrics = m
	return c
}

// Apply writes entry's overlay descriptor into q, or clears the descriptor
// when entry is nil. q is mutated in place.
func (c *Codec) Apply(q url.Values, entry *types.OverlayEntry) {
	q.Del(ParamModal)
	q.Del(ParamModalProps)
	q.Del(ParamModalID)
	if entry == nil {
		return
	}

	q.Set(ParamModal, string(entry.Type))
	if entry.ID != "" {
		q.Set(ParamModalID, entry.ID)
	}

	if len(entry.Props) == 0 {
		return
	}
	encoded, ok := c.encodeProps(entry.Props)
	if ok {
		q.Set(ParamModalProps, encoded)
	}
}

// Decode reads an overlay descriptor out of q. Returns nil when the type
// parameter is absent or names an unknown overlay kind. Malformed props
// decode to an entry with nil props, never to an error.
func (c *Codec) Decode(q url.Values) *types.OverlayEntry {
	raw := q.Get(ParamModal)
	if raw == "" {
		return nil
	}

	typ := types.OverlayType(raw)
	if !typ.Valid() {
		c.log.Warn("unknown overlay type in URL", zap.String("type", raw))
		if c.metrics != nil {
			c.metrics.SyncDecodeErrors.Inc()
		}
		return nil
	}

	entry := &types.OverlayEntry{
		Type:         typ,
		ID:           q.Get(ParamModalID),
		PersistInURL: true,
	}
	if encoded := q.Get(ParamModalProps); encoded != "" {
		entry.Props = c.decodeProps(encoded)
	}
	return entry
}

// encodeProps serializes props to compact JSON and base64-encodes it.
// Reports false when props cannot be serialized or the encoding exceeds the
// length bound.
func (c *Codec) encodeProps(props map[string]interface{}) (string, bool) {
	data, err := sonic.Marshal(props)
	if err != nil {
		c.log.Warn("overlay props not serializable, dropped from URL", zap.Error(err))
		return "", false
	}

	encoded := base64.RawURLEncoding.EncodeToString(data)
	if len(encoded) > c.maxPropsLength {
		c.log.Warn("overlay props exceed URL bound, dropped",
			zap.Int("encoded_length", len(encoded)),
			zap.Int("max", c.maxPropsLength))
		if c.metrics != nil {
			c.metrics.SyncPropsDropped.Inc()
		}
		return "", false
	}
	return encoded, true
}

// decodeProps reverses encodeProps, tolerating both raw and padded base64.
func (c *Codec) decodeProps(encoded string) map[string]interface{} {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		if padded, perr := base64.URLEncoding.DecodeString(encoded); perr == nil {
			data = padded
		} else {
			c.log.Warn("malformed overlay props in URL", zap.Error(err))
			if c.metrics != nil {
				c.metrics.SyncDecodeErrors.Inc()
			}
			return nil
		}
	}

	var props map[string]interface{}
	if err := sonic.Unmarshal(data, &props); err != nil {
		c.log.Warn("overlay props are not valid JSON", zap.Error(err))
		if c.metrics != nil {
			c.metrics.SyncDecodeErrors.Inc()
		}
		return nil
	}
	return props
}

// ShareableURL builds an absolute URL carrying the overlay descriptor,
// suitable for the clipboard. Never mutates application state.
func (c *Codec) ShareableURL(base *url.URL, entry types.OverlayEntry) string {
	u := *base
	q := u.Query()
	c.Apply(q, &entry)
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String()
}
