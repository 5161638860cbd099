// Package bootlegmsn assembles the client core: platform detection, the
// platform host adapter, the overlay stack, URL synchronization, and the
// supporting services (notifications, persistence, update checks). The UI
// layer constructs one Core per window and talks to its parts directly.
package bootlegmsn

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iceinvein/bootleg-msn-sub000/internal/config"
	"github.com/iceinvein/bootleg-msn-sub000/internal/hostadapter"
	"github.com/iceinvein/bootleg-msn-sub000/internal/logging"
	"github.com/iceinvein/bootleg-msn-sub000/internal/monitoring"
	"github.com/iceinvein/bootleg-msn-sub000/internal/notify"
	"github.com/iceinvein/bootleg-msn-sub000/internal/overlay"
	"github.com/iceinvein/bootleg-msn-sub000/internal/overlay/broadcast"
	"github.com/iceinvein/bootleg-msn-sub000/internal/overlay/persist"
	"github.com/iceinvein/bootleg-msn-sub000/internal/overlay/urlsync"
	"github.com/iceinvein/bootleg-msn-sub000/internal/platform/detect"
	"github.com/iceinvein/bootleg-msn-sub000/internal/share"
	"github.com/iceinvein/bootleg-msn-sub000/internal/update"
)

// Options carries everything the host must inject to build a Core.
type Options struct {
	Config      *config.Config
	Environment detect.Environment
	Bridges     hostadapter.Bridges
	Navigator   urlsync.Navigator
	// Focused reports window focus for notification suppression.
	Focused func() bool
	// StateDir is where window geometry and overlay snapshots live. Empty
	// disables persistence.
	StateDir string
	// Version is the running app version, used by the update checker.
	Version string
	Logger  *logging.Logger
}

// Core is one window's assembled client core.
type Core struct {
	Info     detect.Info
	Host     *hostadapter.HostAdapter
	Stack    *overlay.Stack
	Sync     *urlsync.Engine
	Notify   *notify.Router
	Share    *share.Dispatcher
	Update   *update.Checker
	Persist  *persist.Store
	Metrics  *monitoring.Metrics
	log      *logging.Logger
	client   *broadcast.Client
	hubAddr  string
	cfg      *config.Config
}

// New assembles a core. Construction never fails; components that cannot
// come up degrade per their own rules.
func New(opts Options) *Core {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.LoadOrDefault()
	}
	log := opts.Logger
	if log == nil {
		log = logging.NewDefault()
	}
	metrics, _ := monitoring.New()

	info := detect.Detect(opts.Environment)
	host := hostadapter.NewForEnvironment(opts.Environment, opts.Bridges, hostadapter.Options{
		Logger:  log,
		Metrics: metrics,
	})

	stack := overlay.NewStack().WithMetrics(metrics)

	var engine *urlsync.Engine
	if opts.Navigator != nil {
		engine = urlsync.NewEngine(urlsync.EngineConfig{
			Stack:          stack,
			Navigator:      opts.Navigator,
			Strategy:       urlsync.ConflictStrategy(cfg.Sync.ConflictStrategy),
			Debounce:       time.Duration(cfg.Sync.DebounceMS) * time.Millisecond,
			MaxPropsLength: cfg.Sync.MaxPropsLength,
			Logger:         log,
			Metrics:        metrics,
		})
	}

	core := &Core{
		Info:    info,
		Host:    host,
		Stack:   stack,
		Sync:    engine,
		Metrics: metrics,
		log:     log.Component("core"),
		hubAddr: cfg.Broadcast.Addr,
		cfg:     cfg,
	}

	core.Notify = notify.NewRouter(notify.Config{
		Settings:      notify.DefaultSettings(),
		Focused:       opts.Focused,
		RatePerSecond: cfg.Notify.RatePerSecond,
		Burst:         cfg.Notify.Burst,
		Logger:        log,
	})
	core.Share = share.NewDispatcher(host.Adapter(), log)

	if cfg.Update.Enabled && cfg.Update.ManifestURL != "" {
		core.Update = update.NewChecker(info.Platform, opts.Version, cfg.Update.ManifestURL, log)
	}
	if opts.StateDir != "" {
		core.Persist = persist.NewStore(opts.StateDir, log)
	}
	return core
}

// Start connects the overlay stack to the host adapter, restores persisted
// overlays, begins URL synchronization, and joins the cross-window hub when
// enabled.
func (c *Core) Start(ctx context.Context) {
	var codec *urlsync.Codec
	if c.Sync != nil {
		codec = c.Sync.Codec()
	}
	c.Host.ConnectOverlaySystem(hostadapter.StackSystem(c.Stack, codec))

	// Restore before URL adoption. When the snapshot and the URL both carry
	// an overlay the engine's initial pass reconciles them: a matching type
	// is left alone, a mismatch resolves per strategy. Restoring afterwards
	// would stack a duplicate on top of the adopted entry.
	if c.Persist != nil {
		if n := c.Persist.Restore(c.Stack); n > 0 {
			c.log.Info("restored overlays", zap.Int("count", n))
		}
	}
	if c.Sync != nil {
		c.Sync.Start()
	}
	if c.cfg.Broadcast.Enabled {
		client, err := broadcast.Dial(ctx, "ws://"+c.hubAddr+"/sync", c.log)
		if err != nil {
			c.log.Warn("cross-window sync unavailable", zap.Error(err))
		} else {
			client.BindStack(c.Stack)
			c.client = client
		}
	}
}

// Stop tears the core down in reverse order, saving persistent overlays
// on the way out.
func (c *Core) Stop(ctx context.Context) {
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
	if c.Sync != nil {
		c.Sync.Stop()
	}
	if c.Persist != nil {
		if err := c.Persist.Save(c.Stack); err != nil {
			c.log.Warn("failed to save overlays", zap.Error(err))
		}
	}
	c.Host.DisconnectOverlaySystem()
	c.Host.Cleanup(ctx)
}
