// Package platform defines the adapter contract shared by the three host
// variants (web, mobile wrapper, desktop wrapper) and the base behavior they
// embed: handler delegation with error swallowing, teardown bookkeeping, and
// the adapter lifecycle state.
package platform

import (
	"context"
	"errors"

	"github.com/iceinvein/bootleg-msn-sub000/internal/logging"
	"github.com/iceinvein/bootleg-msn-sub000/internal/shared/types"
)

// ErrEnvironmentMismatch is returned from Initialize when an adapter is
// constructed outside its expected host (no native bridge, no window global).
// It is the only error class that propagates out of the platform layer.
var ErrEnvironmentMismatch = errors.New("platform: host environment not present")

// Handlers is the application callback set an adapter dispatches into.
// Registration shallow-merges: non-nil fields replace the previous value,
// nil fields keep it.
type Handlers struct {
	// OnBackButton reports whether the application consumed the back input.
	OnBackButton func(ctx context.Context) (bool, error)
	// OnEscapeKey reports whether the application consumed the escape key.
	OnEscapeKey func(ctx context.Context) (bool, error)
	// OnDeepLink receives deep-link URLs routed by the host.
	OnDeepLink func(url string)
	// OnAppStateChange receives host lifecycle transitions.
	OnAppStateChange func(state types.AppState)
	// OnWindowFocus receives window focus/blur transitions.
	OnWindowFocus func(focused bool)
}

// merge returns h overlaid with the non-nil fields of other.
func (h Handlers) merge(other Handlers) Handlers {
	if other.OnBackButton != nil {
		h.OnBackButton = other.OnBackButton
	}
	if other.OnEscapeKey != nil {
		h.OnEscapeKey = other.OnEscapeKey
	}
	if other.OnDeepLink != nil {
		h.OnDeepLink = other.OnDeepLink
	}
	if other.OnAppStateChange != nil {
		h.OnAppStateChange = other.OnAppStateChange
	}
	if other.OnWindowFocus != nil {
		h.OnWindowFocus = other.OnWindowFocus
	}
	return h
}

// Config is the immutable identity of an adapter instance. Handlers mutate
// through registration, never by replacing the config.
type Config struct {
	Platform        types.Platform
	Capabilities    types.Capabilities
	Handlers        Handlers
	PreventDefaults bool
	Debug           bool
	Logger          *logging.Logger
}

// Adapter is the shared contract across host variants. HandleBack and
// HandleEscape never return an error: a failing application handler is
// swallowed, logged, and treated as "not handled".
type Adapter interface {
	Platform() types.Platform
	Capabilities() types.Capabilities
	IsInitialized() bool

	Initialize(ctx context.Context) error
	Cleanup(ctx context.Context)

	RegisterHandlers(h Handlers)
	UnregisterHandlers()

	HandleBack(ctx context.Context) bool
	HandleEscape(ctx context.Context) bool

	// Share and OpenDeepLink are capability-gated: variants without the
	// capability keep the base no-op that reports false. Callers check
	// Capabilities first rather than probing for method presence.
	Share(ctx context.Context, content types.ShareContent) bool
	OpenDeepLink(ctx context.Context, rawURL string) bool
}
