// Package web implements the platform adapter for plain browser hosts.
//
// Escape is captured through a capturing keydown listener. Back is observed
// through the history popstate signal, which fires after navigation has
// already happened: the web adapter can react to back but never veto it, so
// "prevented" semantics on web are cosmetic. That asymmetry is a browser
// constraint and is preserved deliberately.
package web

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/iceinvein/bootleg-msn-sub000/internal/platform"
	"github.com/iceinvein/bootleg-msn-sub000/internal/shared/types"
)

// ErrShareCanceled marks a user-canceled native share. Cancellation is a
// "did not share" outcome, not a failure.
var ErrShareCanceled = errors.New("web: share canceled by user")

// Host abstracts the window-like global the web build runs in. A nil Host
// means the environment is absent and Initialize must fail.
type Host interface {
	// AddKeydownListener attaches a capturing keydown listener. The callback
	// returns whether the host should prevent the event's default action.
	// The returned remover detaches the listener.
	AddKeydownListener(fn func(key string) bool) (remove func() error, err error)
	// AddPopStateListener attaches a history popstate listener. Fires after
	// the navigation already occurred.
	AddPopStateListener(fn func()) (remove func() error, err error)
	// Navigate assigns the location directly.
	Navigate(url string) error
	// CanShare reports a native share capability.
	CanShare() bool
	// Share invokes the native share sheet. Returns ErrShareCanceled when
	// the user dismissed it.
	Share(ctx context.Context, content types.ShareContent) error
}

// Adapter is the web platform adapter.
type Adapter struct {
	platform.Base
	host Host

	mu             sync.Mutex
	removeKeydown  func() error
	removePopstate func() error
}

// New creates a web adapter. The host may be nil; Initialize reports the
// environment mismatch.
func New(host Host, cfg platform.Config) *Adapter {
	cfg.Platform = types.PlatformWeb
	return &Adapter{Base: platform.NewBase(cfg), host: host}
}

// Initialize verifies the window global and attaches whatever native
// listeners the currently-registered handlers need. Idempotent.
func (a *Adapter) Initialize(ctx context.Context) error {
	if a.IsInitialized() {
		return nil
	}
	if a.host == nil {
		return fmt.Errorf("web adapter: %w", platform.ErrEnvironmentMismatch)
	}
	a.SetInitialized(true)
	a.syncListeners(a.Snapshot())
	return nil
}

// Cleanup detaches all native listeners. Safe to call repeatedly; each
// detach failure is logged, never propagated.
func (a *Adapter) Cleanup(ctx context.Context) {
	if !a.IsInitialized() {
		return
	}
	a.detachAll()
	a.RunTeardowns()
	a.SetInitialized(false)
}

// RegisterHandlers merges h into the current set and re-derives native
// listeners: a listener is attached iff a corresponding handler is present.
func (a *Adapter) RegisterHandlers(h platform.Handlers) {
	a.syncListeners(a.MergeHandlers(h))
}

// UnregisterHandlers drops every handler and detaches all listeners.
func (a *Adapter) UnregisterHandlers() {
	a.syncListeners(a.ClearHandlers())
}

// Share delegates to the host's native share capability when present.
func (a *Adapter) Share(ctx context.Context, content types.ShareContent) bool {
	if a.host == nil || !a.host.CanShare() {
		return false
	}
	if err := a.host.Share(ctx, content); err != nil {
		if errors.Is(err, ErrShareCanceled) {
			a.Log().Debug("share canceled by user")
		} else {
			a.Log().Warn("native share failed", zap.Error(err))
		}
		return false
	}
	return true
}

// OpenDeepLink assigns the location directly.
func (a *Adapter) OpenDeepLink(ctx context.Context, rawURL string) bool {
	if a.host == nil {
		return false
	}
	if err := a.host.Navigate(rawURL); err != nil {
		a.Log().Warn("deep link navigation failed", zap.String("url", rawURL), zap.Error(err))
		return false
	}
	return true
}

// syncListeners lazily attaches and detaches native listeners to match the
// handler set. Listener closures dispatch through the live handler snapshot,
// so replacing a handler never requires a detach/attach swap and no input
// can be double-handled.
func (a *Adapter) syncListeners(h platform.Handlers) {
	if !a.IsInitialized() {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if h.OnEscapeKey != nil && a.removeKeydown == nil {
		remove, err := a.host.AddKeydownListener(func(key string) bool {
			if key != "Escape" {
				return false
			}
			return a.HandleEscape(context.Background())
		})
		if err != nil {
			a.Log().Warn("failed to attach keydown listener", zap.Error(err))
		} else {
			a.removeKeydown = remove
		}
	}
	if h.OnEscapeKey == nil && a.removeKeydown != nil {
		a.removeListener("keydown", &a.removeKeydown)
	}

	if h.OnBackButton != nil && a.removePopstate == nil {
		remove, err := a.host.AddPopStateListener(func() {
			// popstate fires post-navigation; the result cannot veto it.
			a.HandleBack(context.Background())
		})
		if err != nil {
			a.Log().Warn("failed to attach popstate listener", zap.Error(err))
		} else {
			a.removePopstate = remove
		}
	}
	if h.OnBackButton == nil && a.removePopstate != nil {
		a.removeListener("popstate", &a.removePopstate)
	}
}

func (a *Adapter) detachAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.removeListener("keydown", &a.removeKeydown)
	a.removeListener("popstate", &a.removePopstate)
}

// removeListener runs a remover and clears it, logging failure. Must hold mu.
func (a *Adapter) removeListener(name string, remove *func() error) {
	if *remove == nil {
		return
	}
	if err := (*remove)(); err != nil {
		a.Log().Warn("failed to detach listener", zap.String("listener", name), zap.Error(err))
	}
	*remove = nil
}
