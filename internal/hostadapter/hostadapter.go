// Package hostadapter is the single translation point between raw platform
// events (hardware back, escape key, app lifecycle) and overlay stack
// actions. It composes one platform adapter with a per-platform overlay
// behavior policy and surfaces a neutral handled/ignored/prevented contract.
package hostadapter

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/iceinvein/bootleg-msn-sub000/internal/logging"
	"github.com/iceinvein/bootleg-msn-sub000/internal/monitoring"
	"github.com/iceinvein/bootleg-msn-sub000/internal/platform"
	"github.com/iceinvein/bootleg-msn-sub000/internal/shared/types"
)

// OverlaySystem supplies the overlay-side callbacks the host adapter routes
// events into. The first four are required; HandleURLOverlay is optional.
type OverlaySystem struct {
	HasOpenOverlays  func() bool
	OverlayCount     func() int
	CloseTopOverlay  func() bool
	CloseAllOverlays func()
	HandleURLOverlay func(url string)
}

func (s OverlaySystem) complete() bool {
	return s.HasOpenOverlays != nil &&
		s.OverlayCount != nil &&
		s.CloseTopOverlay != nil &&
		s.CloseAllOverlays != nil
}

// Options configures a host adapter.
type Options struct {
	Behavior *BehaviorOverrides
	// DisableAutoInit skips the asynchronous initialize kicked off at
	// construction; the caller owns Initialize then.
	DisableAutoInit bool
	// Fallback is tried when the primary adapter fails to initialize during
	// auto-init. Typically the web adapter.
	Fallback platform.Adapter
	Logger   *logging.Logger
	Metrics  *monitoring.Metrics
}

// HostAdapter routes platform events into overlay actions per the active
// behavior policy. Construction never fails; initialization failure degrades
// to the fallback adapter or to a logged no-op.
type HostAdapter struct {
	behavior Behavior
	log      *logging.Logger
	metrics  *monitoring.Metrics

	mu      sync.RWMutex
	adapter platform.Adapter
	system  *OverlaySystem
}

// New builds a host adapter around the given platform adapter, merging the
// platform's default behavior with caller overrides. Unless disabled, the
// adapter is initialized asynchronously; failure is logged, never raised.
func New(adapter platform.Adapter, opts Options) *HostAdapter {
	log := opts.Logger
	if log == nil {
		log = logging.NewDefault()
	}
	h := &HostAdapter{
		behavior: DefaultBehavior(adapter.Platform()).apply(opts.Behavior),
		log:      log.Component("hostadapter"),
		metrics:  opts.Metrics,
		adapter:  adapter,
	}
	h.wire(adapter)

	if !opts.DisableAutoInit {
		go h.autoInit(opts.Fallback)
	}
	return h
}

// Adapter returns the platform adapter currently in use. After a failed
// auto-init with a fallback configured this is the fallback.
func (h *HostAdapter) Adapter() platform.Adapter {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.adapter
}

// Behavior returns the merged overlay behavior policy.
func (h *HostAdapter) Behavior() Behavior { return h.behavior }

// Initialize initializes the underlying adapter. Only needed when auto-init
// was disabled.
func (h *HostAdapter) Initialize(ctx context.Context) error {
	return h.Adapter().Initialize(ctx)
}

// Cleanup tears down the underlying adapter.
func (h *HostAdapter) Cleanup(ctx context.Context) {
	h.Adapter().Cleanup(ctx)
}

// ConnectOverlaySystem attaches the overlay callbacks. Incomplete callback
// sets are rejected by ignoring the call, leaving the adapter disconnected.
func (h *HostAdapter) ConnectOverlaySystem(system OverlaySystem) {
	if !system.complete() {
		h.log.Warn("overlay system missing required callbacks, not connected")
		return
	}
	h.mu.Lock()
	h.system = &system
	h.mu.Unlock()
}

// DisconnectOverlaySystem detaches the overlay callbacks. Subsequent
// back/escape events are ignored.
func (h *HostAdapter) DisconnectOverlaySystem() {
	h.mu.Lock()
	h.system = nil
	h.mu.Unlock()
}

// HandleBack routes a back event: closes the top overlay when the policy
// says back closes overlays and one is open.
func (h *HostAdapter) HandleBack(ctx context.Context) Result {
	res := h.routeInput(h.behavior.CloseOnBack, h.behavior.PreventDefaultBack)
	if h.metrics != nil {
		h.metrics.BackResults.WithLabelValues(string(res)).Inc()
	}
	return res
}

// HandleEscape routes an escape key event, same shape as HandleBack.
func (h *HostAdapter) HandleEscape(ctx context.Context) Result {
	res := h.routeInput(h.behavior.CloseOnEscape, h.behavior.PreventDefaultEscape)
	if h.metrics != nil {
		h.metrics.EscapeResults.WithLabelValues(string(res)).Inc()
	}
	return res
}

// HandleAppStateChange closes every open overlay when the app goes to the
// background. Other states are no-ops at this layer.
func (h *HostAdapter) HandleAppStateChange(state types.AppState) {
	if state != types.AppStateBackground {
		return
	}
	h.mu.RLock()
	system := h.system
	h.mu.RUnlock()

	if system == nil || !system.HasOpenOverlays() {
		return
	}
	h.log.Debug("app backgrounded, closing overlays",
		zap.Int("count", system.OverlayCount()))
	system.CloseAllOverlays()
}

// Share passes through to the platform adapter's share capability.
func (h *HostAdapter) Share(ctx context.Context, content types.ShareContent) bool {
	return h.Adapter().Share(ctx, content)
}

// OpenDeepLink passes through to the platform adapter.
func (h *HostAdapter) OpenDeepLink(ctx context.Context, url string) bool {
	return h.Adapter().OpenDeepLink(ctx, url)
}

func (h *HostAdapter) routeInput(closeOverlay, preventDefault bool) Result {
	h.mu.RLock()
	system := h.system
	h.mu.RUnlock()

	if system == nil || !closeOverlay {
		return ResultIgnored
	}
	if !system.HasOpenOverlays() {
		return ResultIgnored
	}
	if !system.CloseTopOverlay() {
		return ResultIgnored
	}
	if preventDefault {
		return ResultPrevented
	}
	return ResultHandled
}

// wire registers this host adapter's routing as the platform adapter's event
// handlers. Back/escape report prevent-default only on ResultPrevented.
func (h *HostAdapter) wire(adapter platform.Adapter) {
	adapter.RegisterHandlers(platform.Handlers{
		OnBackButton: func(ctx context.Context) (bool, error) {
			return h.HandleBack(ctx) == ResultPrevented, nil
		},
		OnEscapeKey: func(ctx context.Context) (bool, error) {
			return h.HandleEscape(ctx) == ResultPrevented, nil
		},
		OnAppStateChange: h.HandleAppStateChange,
		OnDeepLink: func(url string) {
			h.mu.RLock()
			system := h.system
			h.mu.RUnlock()
			if system != nil && system.HandleURLOverlay != nil {
				system.HandleURLOverlay(url)
			}
		},
	})
}

func (h *HostAdapter) autoInit(fallback platform.Adapter) {
	ctx := context.Background()
	err := h.Adapter().Initialize(ctx)
	if err == nil {
		return
	}
	h.log.Warn("platform adapter failed to initialize", zap.Error(err))
	if fallback == nil {
		return
	}

	h.mu.Lock()
	h.adapter = fallback
	h.mu.Unlock()
	h.wire(fallback)

	if err := fallback.Initialize(ctx); err != nil {
		h.log.Error("fallback adapter failed to initialize", zap.Error(err))
	}
}
