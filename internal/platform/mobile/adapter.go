// Package mobile implements the platform adapter for the mobile WebView
// wrapper (Capacitor-style native bridge).
//
// The hardware back button is the defining input here: when the application
// handler reports the event unhandled, platform convention on Android is to
// minimize the app rather than exit. The iOS build has no hardware back
// button, so the fallback never fires there.
package mobile

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/iceinvein/bootleg-msn-sub000/internal/platform"
	"github.com/iceinvein/bootleg-msn-sub000/internal/shared/types"
)

// Plugin names preloaded during initialization.
const (
	PluginApp     = "app"
	PluginShare   = "share"
	PluginBrowser = "browser"
)

// Bridge abstracts the wrapper's native bridge global. A nil Bridge means
// the adapter was constructed outside the wrapper and Initialize must fail.
type Bridge interface {
	// OS reports the wrapper's operating system.
	OS() types.OS
	// PreloadPlugin loads a native plugin module ahead of first use.
	PreloadPlugin(ctx context.Context, name string) error
	// AddBackButtonListener attaches the hardware back-button listener.
	AddBackButtonListener(fn func()) (remove func() error, err error)
	// AddAppStateListener attaches the app lifecycle listener.
	AddAppStateListener(fn func(state types.AppState)) (remove func() error, err error)
	// AddDeepLinkListener attaches the app-url-open listener.
	AddDeepLinkListener(fn func(url string)) (remove func() error, err error)
	// MinimizeApp backgrounds the app without exiting.
	MinimizeApp(ctx context.Context) error
	// Share invokes the native share sheet.
	Share(ctx context.Context, content types.ShareContent) error
	// OpenURL opens a URL through the native browser plugin.
	OpenURL(ctx context.Context, url string) error
}

// Adapter is the mobile-wrapper platform adapter.
type Adapter struct {
	platform.Base
	bridge Bridge

	mu             sync.Mutex
	removeBack     func() error
	removeAppState func() error
	removeDeepLink func() error
}

// New creates a mobile adapter over the wrapper bridge.
func New(bridge Bridge, cfg platform.Config) *Adapter {
	cfg.Platform = types.PlatformMobile
	return &Adapter{Base: platform.NewBase(cfg), bridge: bridge}
}

// Initialize verifies the native bridge and preloads plugin modules. A
// plugin load failure is logged, not fatal; a missing bridge is fatal.
func (a *Adapter) Initialize(ctx context.Context) error {
	if a.IsInitialized() {
		return nil
	}
	if a.bridge == nil {
		return fmt.Errorf("mobile adapter: %w", platform.ErrEnvironmentMismatch)
	}

	for _, name := range []string{PluginApp, PluginShare, PluginBrowser} {
		if err := a.bridge.PreloadPlugin(ctx, name); err != nil {
			a.Log().Warn("plugin preload failed", zap.String("plugin", name), zap.Error(err))
		}
	}

	a.SetInitialized(true)
	a.syncListeners(a.Snapshot())
	return nil
}

// Cleanup removes all native listeners, each failure logged individually.
func (a *Adapter) Cleanup(ctx context.Context) {
	if !a.IsInitialized() {
		return
	}
	a.detachAll()
	a.RunTeardowns()
	a.SetInitialized(false)
}

// RegisterHandlers merges h and re-derives the native listener set.
func (a *Adapter) RegisterHandlers(h platform.Handlers) {
	a.syncListeners(a.MergeHandlers(h))
}

// UnregisterHandlers drops every handler and detaches all listeners.
func (a *Adapter) UnregisterHandlers() {
	a.syncListeners(a.ClearHandlers())
}

// Share invokes the native share sheet.
func (a *Adapter) Share(ctx context.Context, content types.ShareContent) bool {
	if a.bridge == nil {
		return false
	}
	if err := a.bridge.Share(ctx, content); err != nil {
		a.Log().Warn("native share failed", zap.Error(err))
		return false
	}
	return true
}

// OpenDeepLink opens the URL through the native browser plugin.
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

// dispatchBack runs the back handler and applies the Android minimize
// fallback when the application did not consume the event.
func (a *Adapter) dispatchBack(ctx context.Context) {
	if a.HandleBack(ctx) {
		return
	}
	if a.bridge.OS() != types.OSAndroid {
		return
	}
	if err := a.bridge.MinimizeApp(ctx); err != nil {
		a.Log().Warn("minimize fallback failed", zap.Error(err))
	}
}

// syncListeners keeps one native listener attached per concern, iff the
// corresponding handler is registered. Each listener is removable
// individually; closures dispatch through the live handler snapshot so
// handler replacement never re-attaches.
func (a *Adapter) syncListeners(h platform.Handlers) {
	if !a.IsInitialized() {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if h.OnBackButton != nil && a.removeBack == nil {
		remove, err := a.bridge.AddBackButtonListener(func() {
			a.dispatchBack(context.Background())
		})
		if err != nil {
			a.Log().Warn("failed to attach back-button listener", zap.Error(err))
		} else {
			a.removeBack = remove
		}
	}
	if h.OnBackButton == nil && a.removeBack != nil {
		a.removeListener("backButton", &a.removeBack)
	}

	if h.OnAppStateChange != nil && a.removeAppState == nil {
		remove, err := a.bridge.AddAppStateListener(func(state types.AppState) {
			if fn := a.Snapshot().OnAppStateChange; fn != nil {
				fn(state)
			}
		})
		if err != nil {
			a.Log().Warn("failed to attach app-state listener", zap.Error(err))
		} else {
			a.removeAppState = remove
		}
	}
	if h.OnAppStateChange == nil && a.removeAppState != nil {
		a.removeListener("appState", &a.removeAppState)
	}

	if h.OnDeepLink != nil && a.removeDeepLink == nil {
		remove, err := a.bridge.AddDeepLinkListener(func(url string) {
			if fn := a.Snapshot().OnDeepLink; fn != nil {
				fn(url)
			}
		})
		if err != nil {
			a.Log().Warn("failed to attach deep-link listener", zap.Error(err))
		} else {
			a.removeDeepLink = remove
		}
	}
	if h.OnDeepLink == nil && a.removeDeepLink != nil {
		a.removeListener("appUrlOpen", &a.removeDeepLink)
	}
}

func (a *Adapter) detachAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.removeListener("backButton", &a.removeBack)
	a.removeListener("appState", &a.removeAppState)
	a.removeListener("appUrlOpen", &a.removeDeepLink)
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
