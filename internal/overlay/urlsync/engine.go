package urlsync

import (
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iceinvein/bootleg-msn-sub000/internal/logging"
	"github.com/iceinvein/bootleg-msn-sub000/internal/monitoring"
	"github.com/iceinvein/bootleg-msn-sub000/internal/overlay"
	"github.com/iceinvein/bootleg-msn-sub000/internal/shared/types"
)

// Navigator abstracts the host's location bar. Replace must rewrite the
// current history entry, not push a new one: overlay transitions must not
// pollute back/forward history.
type Navigator interface {
	Current() *url.URL
	Replace(u *url.URL) error
}

// ConflictStrategy picks the winner when the URL and the stack disagree on
// the open overlay's type while both are non-null.
type ConflictStrategy string

const (
	// StrategyURLWins replaces the state overlay with the URL's. Default.
	StrategyURLWins ConflictStrategy = "url-wins"
	// StrategyOverlayWins rewrites the URL from the state overlay.
	StrategyOverlayWins ConflictStrategy = "overlay-wins"
	// StrategyMerge keeps the state overlay's type and overlays URL props
	// on top of state props; state-only keys are retained.
	StrategyMerge ConflictStrategy = "merge"
	// StrategyIgnore leaves both sides alone.
	StrategyIgnore ConflictStrategy = "ignore"
)

// DefaultDebounce coalesces rapid overlay churn into one URL write.
const DefaultDebounce = 120 * time.Millisecond

// syncState is the engine's loop-prevention state machine. While one
// direction is executing, the opposite direction's effect is suppressed.
type syncState int

const (
	stateIdle syncState = iota
	stateSyncingFromURL
	stateSyncingFromState
)

// EngineConfig configures a sync engine.
type EngineConfig struct {
	Stack     *overlay.Stack
	Navigator Navigator
	Strategy  ConflictStrategy
	Debounce  time.Duration
	// MaxPropsLength bounds encoded props; zero selects the default.
	MaxPropsLength int
	Logger         *logging.Logger
	Metrics        *monitoring.Metrics
}

// Engine performs debounced bidirectional synchronization between the
// overlay stack's top entry and the URL query string.
type Engine struct {
	stack    *overlay.Stack
	nav      Navigator
	codec    *Codec
	strategy ConflictStrategy
	debounce time.Duration
	log      *logging.Logger
	metrics  *monitoring.Metrics

	mu          sync.Mutex
	state       syncState
	urlTimer    *time.Timer
	stateTimer  *time.Timer
	unsubscribe func()
	started     bool
}

// NewEngine creates a sync engine. Start must be called before it observes
// anything.
func NewEngine(cfg EngineConfig) *Engine {
	log := cfg.Logger
	if log == nil {
		log = logging.NewDefault()
	}
	strategy := cfg.Strategy
	if strategy == "" {
		strategy = StrategyURLWins
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	codec := NewCodec(cfg.MaxPropsLength, log)
	if cfg.Metrics != nil {
		codec = codec.WithMetrics(cfg.Metrics)
	}
	return &Engine{
		stack:    cfg.Stack,
		nav:      cfg.Navigator,
		codec:    codec,
		strategy: strategy,
		debounce: debounce,
		log:      log.Component("urlsync"),
		metrics:  cfg.Metrics,
	}
}

// Codec exposes the engine's codec for shareable-URL generation.
func (e *Engine) Codec() *Codec { return e.codec }

// Start adopts the overlay currently encoded in the URL, then begins
// observing both directions.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.mu.Unlock()

	e.adoptURL()
	e.unsubscribe = e.stack.Subscribe(func(overlay.Snapshot) {
		e.scheduleStateSync()
	})
}

// Stop cancels pending debounce timers and detaches from the stack. Safe to
// call repeatedly.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.started = false
	if e.urlTimer != nil {
		e.urlTimer.Stop()
		e.urlTimer = nil
	}
	if e.stateTimer != nil {
		e.stateTimer.Stop()
		e.stateTimer = nil
	}
	unsub := e.unsubscribe
	e.unsubscribe = nil
	e.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// HandleURLChange schedules a debounced URL-to-overlay pass. The UI router
// calls this on every location change it observes.
func (e *Engine) HandleURLChange() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return
	}
	if e.urlTimer != nil {
		e.urlTimer.Stop()
	}
	e.urlTimer = time.AfterFunc(e.debounce, e.syncFromURL)
}

// HandlePopState re-derives from the URL immediately, but only acts when the
// decoded type differs from the current top's type. History traversal fires
// popstate on every step; acting on identical types would churn the stack.
func (e *Engine) HandlePopState() {
	decoded := e.codec.Decode(e.nav.Current().Query())
	top := e.stack.Top()

	if decoded == nil && top == nil {
		return
	}
	if decoded != nil && top != nil && decoded.Type == top.Type {
		return
	}
	e.syncFromURL()
}

// Flush runs any pending debounced work immediately. Test support and
// teardown convenience.
func (e *Engine) Flush() {
	e.mu.Lock()
	urlPending := e.urlTimer != nil && e.urlTimer.Stop()
	statePending := e.stateTimer != nil && e.stateTimer.Stop()
	e.urlTimer = nil
	e.stateTimer = nil
	e.mu.Unlock()

	if urlPending {
		e.syncFromURL()
	}
	if statePending {
		e.syncFromState()
	}
}

// ShareableURL builds an absolute deep link to the given overlay based on
// the current origin and path.
func (e *Engine) ShareableURL(entry types.OverlayEntry) string {
	return e.codec.ShareableURL(e.nav.Current(), entry)
}

func (e *Engine) scheduleStateSync() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return
	}
	// A state notification raised by our own URL-driven mutation must not
	// bounce back into a URL write.
	if e.state == stateSyncingFromURL {
		return
	}
	if e.stateTimer != nil {
		e.stateTimer.Stop()
	}
	e.stateTimer = time.AfterFunc(e.debounce, e.syncFromState)
}

// adoptURL is the initial URL pass run by Start. Unlike later passes, an
// absent overlay param is not a close signal here: entries already on the
// stack (a restored snapshot) must survive a URL that simply says nothing,
// so the URL is brought up to date from the stack instead. A matching type
// on both sides is left alone; a mismatch resolves per strategy.
func (e *Engine) adoptURL() {
	if !e.enter(stateSyncingFromURL) {
		return
	}
	defer e.leave()

	if e.metrics != nil {
		e.metrics.SyncURLReads.Inc()
	}

	decoded := e.codec.Decode(e.nav.Current().Query())
	top := e.stack.Top()

	switch {
	case decoded == nil && top == nil:
	case decoded == nil:
		if top.PersistInURL {
			e.writeURL(top)
		}
	case top == nil:
		e.stack.Open(overlay.OpenRequest{
			Type:         decoded.Type,
			Props:        decoded.Props,
			PersistInURL: true,
		})
	case decoded.Type != top.Type:
		e.resolveConflict(decoded, top)
	}
}

// syncFromURL is direction (1): URL drives the stack.
func (e *Engine) syncFromURL() {
	if !e.enter(stateSyncingFromURL) {
		return
	}
	defer e.leave()

	if e.metrics != nil {
		e.metrics.SyncURLReads.Inc()
	}

	decoded := e.codec.Decode(e.nav.Current().Query())
	top := e.stack.Top()

	switch {
	case decoded == nil && top == nil:
		// Nothing on either side.
	case decoded == nil && top != nil:
		// URL cleared; close the URL-reflected overlay. Overlays that never
		// persisted to the URL are not the URL's to close.
		if top.PersistInURL {
			e.stack.CloseTop()
		}
	case decoded != nil && top == nil:
		e.stack.Open(overlay.OpenRequest{
			Type:         decoded.Type,
			Props:        decoded.Props,
			PersistInURL: true,
		})
	case decoded.Type != top.Type:
		e.resolveConflict(decoded, top)
	}
}

// syncFromState is direction (2): the stack drives the URL.
func (e *Engine) syncFromState() {
	if !e.enter(stateSyncingFromState) {
		return
	}
	defer e.leave()

	top := e.stack.Top()
	if top == nil || !top.PersistInURL {
		if e.nav.Current().Query().Get(ParamModal) == "" {
			return
		}
		e.writeURL(nil)
		return
	}
	e.writeURL(top)
}

// writeURL rewrites the current URL from entry (nil clears the overlay
// params). Runs inline under whichever sync state the caller holds.
func (e *Engine) writeURL(entry *types.OverlayEntry) {
	current := e.nav.Current()
	q := current.Query()
	e.codec.Apply(q, entry)

	u := *current
	u.RawQuery = q.Encode()
	if err := e.nav.Replace(&u); err != nil {
		e.log.Warn("failed to replace URL", zap.Error(err))
		return
	}
	if e.metrics != nil {
		e.metrics.SyncURLWrites.Inc()
	}
}

// resolveConflict applies the configured strategy to a type mismatch where
// both the URL and the stack hold an overlay.
func (e *Engine) resolveConflict(decoded, top *types.OverlayEntry) {
	if e.metrics != nil {
		e.metrics.SyncConflicts.WithLabelValues(string(e.strategy)).Inc()
	}
	e.log.Debug("overlay conflict",
		zap.String("url_type", string(decoded.Type)),
		zap.String("state_type", string(top.Type)),
		zap.String("strategy", string(e.strategy)))

	switch e.strategy {
	case StrategyOverlayWins:
		// Rewrite the URL from state.
		e.writeURL(top)
	case StrategyMerge:
		// Overlay wins on type; URL props override state props; state-only
		// keys are retained.
		merged := make(map[string]interface{}, len(top.Props)+len(decoded.Props))
		for k, v := range top.Props {
			merged[k] = v
		}
		for k, v := range decoded.Props {
			merged[k] = v
		}
		e.stack.ReplaceTop(overlay.OpenRequest{
			Type:         top.Type,
			Props:        merged,
			PersistInURL: true,
		})
		// The URL still holds the losing type; converge it onto the merged
		// entry or every later URL pass re-detects the same mismatch.
		e.writeURL(e.stack.Top())
	case StrategyIgnore:
		// Leave both sides alone.
	default: // StrategyURLWins
		e.stack.ReplaceTop(overlay.OpenRequest{
			Type:         decoded.Type,
			Props:        decoded.Props,
			PersistInURL: true,
		})
	}
}

// enter transitions idle -> target. Reports false when the opposite
// direction is executing, which suppresses this direction's effect.
func (e *Engine) enter(target syncState) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != stateIdle {
		return false
	}
	e.state = target
	return true
}

func (e *Engine) leave() {
	e.mu.Lock()
	e.state = stateIdle
	e.mu.Unlock()
}
