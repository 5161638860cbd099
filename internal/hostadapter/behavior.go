package hostadapter

import (
	"github.com/iceinvein/bootleg-msn-sub000/internal/shared/types"
)

// Result is the three-way outcome of routing a back/escape event through the
// overlay stack. The platform adapter layer uses it only to decide whether to
// call the native event's prevent-default.
type Result string

const (
	// ResultHandled means an overlay was closed; the host's default action
	// may still run.
	ResultHandled Result = "handled"
	// ResultIgnored means nothing was done; the event belongs to the host.
	ResultIgnored Result = "ignored"
	// ResultPrevented means an overlay was closed and the host's default
	// action must be suppressed.
	ResultPrevented Result = "prevented"
)

// Behavior is the per-platform policy for how back/escape interact with
// overlays. One record per platform, immutable after construction.
type Behavior struct {
	CloseOnBack          bool
	CloseOnEscape        bool
	PreventDefaultBack   bool
	PreventDefaultEscape bool
	PreferredAnimation   string
	UseNativeTransitions bool
}

// BehaviorOverrides patches individual Behavior fields at construction time.
// Nil fields keep the platform default.
type BehaviorOverrides struct {
	CloseOnBack          *bool
	CloseOnEscape        *bool
	PreventDefaultBack   *bool
	PreventDefaultEscape *bool
	PreferredAnimation   *string
	UseNativeTransitions *bool
}

// DefaultBehavior returns the built-in policy for a platform.
//
// On web, escape suppresses the browser default but back does not: popstate
// fires after navigation already happened, so prevent-default there is
// cosmetic and closing the overlay is the only real effect.
func DefaultBehavior(p types.Platform) Behavior {
	switch p {
	case types.PlatformMobile:
		return Behavior{
			CloseOnBack:          true,
			CloseOnEscape:        false,
			PreventDefaultBack:   true,
			PreventDefaultEscape: false,
			PreferredAnimation:   "slide",
			UseNativeTransitions: true,
		}
	case types.PlatformDesktop:
		return Behavior{
			CloseOnBack:          false,
			CloseOnEscape:        true,
			PreventDefaultBack:   false,
			PreventDefaultEscape: true,
			PreferredAnimation:   "scale",
			UseNativeTransitions: false,
		}
	default:
		return Behavior{
			CloseOnBack:          true,
			CloseOnEscape:        true,
			PreventDefaultBack:   false,
			PreventDefaultEscape: true,
			PreferredAnimation:   "fade",
			UseNativeTransitions: false,
		}
	}
}

func (b Behavior) apply(o *BehaviorOverrides) Behavior {
	if o == nil {
		return b
	}
	if o.CloseOnBack != nil {
		b.CloseOnBack = *o.CloseOnBack
	}
	if o.CloseOnEscape != nil {
		b.CloseOnEscape = *o.CloseOnEscape
	}
	if o.PreventDefaultBack != nil {
		b.PreventDefaultBack = *o.PreventDefaultBack
	}
	if o.PreventDefaultEscape != nil {
		b.PreventDefaultEscape = *o.PreventDefaultEscape
	}
	if o.PreferredAnimation != nil {
		b.PreferredAnimation = *o.PreferredAnimation
	}
	if o.UseNativeTransitions != nil {
		b.UseNativeTransitions = *o.UseNativeTransitions
	}
	return b
}
