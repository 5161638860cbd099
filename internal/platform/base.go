package platform

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/iceinvein/bootleg-msn-sub000/internal/logging"
	"github.com/iceinvein/bootleg-msn-sub000/internal/shared/types"
)

// Base carries the state and behavior shared by all adapter variants.
// Variants embed it and keep their native listener wiring on top.
type Base struct {
	mu          sync.Mutex
	platform    types.Platform
	caps        types.Capabilities
	handlers    Handlers
	initialized bool
	teardowns   []teardown
	log         *logging.Logger
	debug       bool
}

type teardown struct {
	name string
	fn   func() error
}

// NewBase builds the shared adapter state from a config.
func NewBase(cfg Config) Base {
	log := cfg.Logger
	if log == nil {
		log = logging.NewDefault()
	}
	return Base{
		platform: cfg.Platform,
		caps:     cfg.Capabilities,
		handlers: cfg.Handlers,
		log:      log.Component("platform." + string(cfg.Platform)),
		debug:    cfg.Debug,
	}
}

// Platform returns the variant's platform identity.
func (b *Base) Platform() types.Platform { return b.platform }

// Capabilities returns the fixed capability record.
func (b *Base) Capabilities() types.Capabilities { return b.caps }

// IsInitialized reports the lifecycle state.
func (b *Base) IsInitialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized
}

// SetInitialized flips the lifecycle state.
func (b *Base) SetInitialized(v bool) {
	b.mu.Lock()
	b.initialized = v
	b.mu.Unlock()
}

// MergeHandlers shallow-merges h into the current handler set and returns
// the merged snapshot so the variant can re-derive native listeners.
func (b *Base) MergeHandlers(h Handlers) Handlers {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = b.handlers.merge(h)
	return b.handlers
}

// ClearHandlers drops the whole handler set and returns the empty snapshot.
func (b *Base) ClearHandlers() Handlers {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = Handlers{}
	return b.handlers
}

// Snapshot returns the current handler set.
func (b *Base) Snapshot() Handlers {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handlers
}

// HandleBack delegates to the registered back handler. Absent handler or a
// failing one both report "not handled"; the input path never sees an error.
func (b *Base) HandleBack(ctx context.Context) bool {
	h := b.Snapshot().OnBackButton
	if h == nil {
		return false
	}
	handled, err := h(ctx)
	if err != nil {
		b.log.Warn("back handler failed", zap.Error(err))
		return false
	}
	return handled
}

// HandleEscape delegates to the registered escape handler with the same
// swallowing rules as HandleBack.
func (b *Base) HandleEscape(ctx context.Context) bool {
	h := b.Snapshot().OnEscapeKey
	if h == nil {
		return false
	}
	handled, err := h(ctx)
	if err != nil {
		b.log.Warn("escape handler failed", zap.Error(err))
		return false
	}
	return handled
}

// Share is the capability-absent default.
func (b *Base) Share(ctx context.Context, content types.ShareContent) bool { return false }

// OpenDeepLink is the capability-absent default.
func (b *Base) OpenDeepLink(ctx context.Context, rawURL string) bool { return false }

// AddTeardown queues a named teardown step for the next RunTeardowns.
func (b *Base) AddTeardown(name string, fn func() error) {
	b.mu.Lock()
	b.teardowns = append(b.teardowns, teardown{name: name, fn: fn})
	b.mu.Unlock()
}

// RunTeardowns executes and clears all queued teardown steps. Each step's
// failure is logged individually so one failing listener removal does not
// prevent the others from running. Never returns an error.
func (b *Base) RunTeardowns() {
	b.mu.Lock()
	steps := b.teardowns
	b.teardowns = nil
	b.mu.Unlock()

	for _, step := range steps {
		if err := step.fn(); err != nil {
			b.log.Warn("teardown step failed", zap.String("step", step.name), zap.Error(err))
		}
	}
}

// Log returns the variant's component logger.
func (b *Base) Log() *logging.Logger { return b.log }

// Debug reports whether verbose adapter logging was requested.
func (b *Base) Debug() bool { return b.debug }
