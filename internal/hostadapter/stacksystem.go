package hostadapter

import (
	"net/url"

	"github.com/iceinvein/bootleg-msn-sub000/internal/overlay"
	"github.com/iceinvein/bootleg-msn-sub000/internal/overlay/urlsync"
)

// StackSystem adapts an overlay.Stack into the OverlaySystem callback set.
// The optional codec lets deep-linked URLs carrying an overlay descriptor
// open straight onto the stack.
func StackSystem(stack *overlay.Stack, codec *urlsync.Codec) OverlaySystem {
	system := OverlaySystem{
		HasOpenOverlays:  stack.HasOpen,
		OverlayCount:     stack.Count,
		CloseTopOverlay:  stack.CloseTop,
		CloseAllOverlays: stack.CloseAll,
	}
	if codec != nil {
		system.HandleURLOverlay = func(raw string) {
			u, err := url.Parse(raw)
			if err != nil {
				return
			}
			entry := codec.Decode(u.Query())
			if entry == nil {
				return
			}
			top := stack.Top()
			if top != nil && top.Type == entry.Type {
				return
			}
			stack.Open(overlay.OpenRequest{
				Type:         entry.Type,
				Props:        entry.Props,
				PersistInURL: true,
			})
		}
	}
	return system
}
