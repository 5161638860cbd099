// Package desktop implements the platform adapter for the desktop WebView
// wrapper (Tauri-style shell).
//
// Beyond back/escape handling, the desktop shell exposes window management,
// tray integration, clipboard, and app metadata. All of those are
// best-effort: a failing native call is logged and reported as a neutral
// value, never propagated. The UI must not crash because a window call
// failed.
package desktop

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/iceinvein/bootleg-msn-sub000/internal/platform"
	"github.com/iceinvein/bootleg-msn-sub000/internal/shared/types"
)

// Bridge abstracts the desktop shell's native bridge global. Event
// subscriptions return unsubscribe functions; all of them are invoked on
// cleanup.
type Bridge interface {
	// AddKeydownListener attaches a capturing keydown listener, same shape
	// as the web host.
	AddKeydownListener(fn func(key string) bool) (remove func() error, err error)
	// SubscribeFocus subscribes to window focus/blur events.
	SubscribeFocus(fn func(focused bool)) (unsubscribe func() error, err error)
	// SubscribeDeepLink subscribes to deep-link open events.
	SubscribeDeepLink(fn func(url string)) (unsubscribe func() error, err error)

	// Window management.
	Minimize(ctx context.Context) error
	Maximize(ctx context.Context) error
	CloseWindow(ctx context.Context) error
	SetTitle(ctx context.Context, title string) error
	SetAlwaysOnTop(ctx context.Context, onTop bool) error

	// Tray integration.
	MinimizeToTray(ctx context.Context) error
	RestoreFromTray(ctx context.Context) error
	SetTrayTooltip(ctx context.Context, tooltip string) error

	// App metadata.
	AppVersion(ctx context.Context) (string, error)
	AppName(ctx context.Context) (string, error)

	// Clipboard.
	ReadClipboard(ctx context.Context) (string, error)
	WriteClipboard(ctx context.Context, text string) error

	// OpenURL opens a URL in the system browser.
	OpenURL(ctx context.Context, url string) error
}

// Adapter is the desktop-wrapper platform adapter.
type Adapter struct {
	platform.Base
	bridge Bridge

	mu             sync.Mutex
	removeKeydown  func() error
	removeFocus    func() error
	removeDeepLink func() error
}

// New creates a desktop adapter over the shell bridge.
func New(bridge Bridge, cfg platform.Config) *Adapter {
	cfg.Platform = types.PlatformDesktop
	return &Adapter{Base: platform.NewBase(cfg), bridge: bridge}
}

// Initialize verifies the native bridge is present. Idempotent.
func (a *Adapter) Initialize(ctx context.Context) error {
	if a.IsInitialized() {
		return nil
	}
	if a.bridge == nil {
		return fmt.Errorf("desktop adapter: %w", platform.ErrEnvironmentMismatch)
	}
	a.SetInitialized(true)
	a.syncListeners(a.Snapshot())
	return nil
}

// Cleanup invokes every outstanding unsubscribe function, each failure
// logged individually. Safe to call repeatedly.
func (a *Adapter) Cleanup(ctx context.Context) {
	if !a.IsInitialized() {
		return
	}
	a.detachAll()
	a.RunTeardowns()
	a.SetInitialized(false)
}

// RegisterHandlers merges h and re-derives native subscriptions.
func (a *Adapter) RegisterHandlers(h platform.Handlers) {
	a.syncListeners(a.MergeHandlers(h))
}

// UnregisterHandlers drops every handler and unsubscribes everything.
func (a *Adapter) UnregisterHandlers() {
	a.syncListeners(a.ClearHandlers())
}

// OpenDeepLink opens the URL in the system browser.
func (a *Adapter) OpenDeepLink(ctx context.Context, rawURL string) bool {
	if a.bridge == nil {
		return false
	}
	if err := a.bridge.OpenURL(ctx, rawURL); err != nil {
		a.Log().Warn("deep link open failed", zap.String("url", rawURL), zap.Error(err))
		return false
	}
	return true
}

// Minimize minimizes the window, best-effort.
func (a *Adapter) Minimize(ctx context.Context) bool {
	return a.windowOp(ctx, "minimize", a.bridge.Minimize)
}

// Maximize maximizes the window, best-effort.
func (a *Adapter) Maximize(ctx context.Context) bool {
	return a.windowOp(ctx, "maximize", a.bridge.Maximize)
}

// CloseWindow closes the window, best-effort.
func (a *Adapter) CloseWindow(ctx context.Context) bool {
	return a.windowOp(ctx, "close", a.bridge.CloseWindow)
}

// MinimizeToTray hides the window into the tray, best-effort.
func (a *Adapter) MinimizeToTray(ctx context.Context) bool {
	return a.windowOp(ctx, "minimize_to_tray", a.bridge.MinimizeToTray)
}

// RestoreFromTray shows and focuses the window, best-effort.
func (a *Adapter) RestoreFromTray(ctx context.Context) bool {
	return a.windowOp(ctx, "restore_from_tray", a.bridge.RestoreFromTray)
}

// SetTitle sets the window title, best-effort.
func (a *Adapter) SetTitle(ctx context.Context, title string) bool {
	return a.windowOp(ctx, "set_title", func(ctx context.Context) error {
		return a.bridge.SetTitle(ctx, title)
	})
}

// SetAlwaysOnTop toggles always-on-top, best-effort.
func (a *Adapter) SetAlwaysOnTop(ctx context.Context, onTop bool) bool {
	return a.windowOp(ctx, "set_always_on_top", func(ctx context.Context) error {
		return a.bridge.SetAlwaysOnTop(ctx, onTop)
	})
}

// SetUnreadBadge updates the tray tooltip with the unread count.
func (a *Adapter) SetUnreadBadge(ctx context.Context, count int) bool {
	tooltip := "MSN Messenger"
	if count > 0 {
		tooltip = fmt.Sprintf("MSN Messenger - %d unread messages", count)
	}
	return a.windowOp(ctx, "set_tray_tooltip", func(ctx context.Context) error {
		return a.bridge.SetTrayTooltip(ctx, tooltip)
	})
}

// AppVersion reports the shell version, or "" when unavailable.
func (a *Adapter) AppVersion(ctx context.Context) string {
	return a.metadataOp(ctx, "app_version", a.bridge.AppVersion)
}

// AppName reports the shell name, or "" when unavailable.
func (a *Adapter) AppName(ctx context.Context) string {
	return a.metadataOp(ctx, "app_name", a.bridge.AppName)
}

// ReadClipboard reads the system clipboard, or returns "" and false.
func (a *Adapter) ReadClipboard(ctx context.Context) (string, bool) {
	if a.bridge == nil {
		return "", false
	}
	text, err := a.bridge.ReadClipboard(ctx)
	if err != nil {
		a.Log().Warn("clipboard read failed", zap.Error(err))
		return "", false
	}
	return text, true
}

// WriteClipboard writes the system clipboard, best-effort.
func (a *Adapter) WriteClipboard(ctx context.Context, text string) bool {
	return a.windowOp(ctx, "clipboard_write", func(ctx context.Context) error {
		return a.bridge.WriteClipboard(ctx, text)
	})
}

func (a *Adapter) windowOp(ctx context.Context, name string, op func(context.Context) error) bool {
	if a.bridge == nil {
		return false
	}
	if err := op(ctx); err != nil {
		a.Log().Warn("native window call failed", zap.String("op", name), zap.Error(err))
		return false
	}
	return true
}

func (a *Adapter) metadataOp(ctx context.Context, name string, op func(context.Context) (string, error)) string {
	if a.bridge == nil {
		return ""
	}
	value, err := op(ctx)
	if err != nil {
		a.Log().Warn("native metadata call failed", zap.String("op", name), zap.Error(err))
		return ""
	}
	return value
}

// syncListeners attaches subscriptions lazily per concern. Closures read the
// live handler snapshot so handler replacement never re-subscribes.
func (a *Adapter) syncListeners(h platform.Handlers) {
	if !a.IsInitialized() {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if h.OnEscapeKey != nil && a.removeKeydown == nil {
		remove, err := a.bridge.AddKeydownListener(func(key string) bool {
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

	if h.OnWindowFocus != nil && a.removeFocus == nil {
		remove, err := a.bridge.SubscribeFocus(func(focused bool) {
			if fn := a.Snapshot().OnWindowFocus; fn != nil {
				fn(focused)
			}
		})
		if err != nil {
			a.Log().Warn("failed to subscribe to focus events", zap.Error(err))
		} else {
			a.removeFocus = remove
		}
	}
	if h.OnWindowFocus == nil && a.removeFocus != nil {
		a.removeListener("focus", &a.removeFocus)
	}

	if h.OnDeepLink != nil && a.removeDeepLink == nil {
		remove, err := a.bridge.SubscribeDeepLink(func(url string) {
			if fn := a.Snapshot().OnDeepLink; fn != nil {
				fn(url)
			}
		})
		if err != nil {
			a.Log().Warn("failed to subscribe to deep-link events", zap.Error(err))
		} else {
			a.removeDeepLink = remove
		}
	}
	if h.OnDeepLink == nil && a.removeDeepLink != nil {
		a.removeListener("deepLink", &a.removeDeepLink)
	}
}

func (a *Adapter) detachAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.removeListener("keydown", &a.removeKeydown)
	a.removeListener("focus", &a.removeFocus)
	a.removeListener("deepLink", &a.removeDeepLink)
}

// removeListener runs an unsubscribe and clears it, logging failure. Must
// hold mu.
func (a *Adapter) removeListener(name string, remove *func() error) {
	if *remove == nil {
		return
	}
	if err := (*remove)(); err != nil {
		a.Log().Warn("failed to unsubscribe", zap.String("listener", name), zap.Error(err))
	}
	*remove = nil
}
