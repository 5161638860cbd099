package hostadapter

import (
	"github.com/iceinvein/bootleg-msn-sub000/internal/logging"
	"github.com/iceinvein/bootleg-msn-sub000/internal/platform"
	"github.com/iceinvein/bootleg-msn-sub000/internal/platform/desktop"
	"github.com/iceinvein/bootleg-msn-sub000/internal/platform/detect"
	"github.com/iceinvein/bootleg-msn-sub000/internal/platform/mobile"
	"github.com/iceinvein/bootleg-msn-sub000/internal/platform/web"
	"github.com/iceinvein/bootleg-msn-sub000/internal/shared/types"
)

// Bridges carries the host globals each adapter variant binds to. Only the
// bridge for the resolved platform needs to be non-nil.
type Bridges struct {
	Web     web.Host
	Mobile  mobile.Bridge
	Desktop desktop.Bridge
}

// NewAdapter builds the platform adapter variant for the resolved platform.
// Missing bridges surface later as ErrEnvironmentMismatch from Initialize,
// not as a construction failure.
func NewAdapter(info detect.Info, bridges Bridges, log *logging.Logger) platform.Adapter {
	cfg := platform.Config{
		Platform:     info.Platform,
		Capabilities: detect.Capabilities(info),
		Logger:       log,
		Debug:        info.Development,
	}

	switch info.Platform {
	case types.PlatformMobile:
		return mobile.New(bridges.Mobile, cfg)
	case types.PlatformDesktop:
		return desktop.New(bridges.Desktop, cfg)
	default:
		return web.New(bridges.Web, cfg)
	}
}

// NewForEnvironment detects the platform, builds its adapter, and wraps it in
// a host adapter. Wrapper platforms fall back to the web adapter when their
// native bridge fails to come up.
func NewForEnvironment(env detect.Environment, bridges Bridges, opts Options) *HostAdapter {
	info := detect.Detect(env)

	// The web adapter binds to the window global; without one its host
	// reference is unusable, so it is withheld and Initialize reports the
	// environment mismatch. This also rules out the web fallback.
	if !env.HasWindow {
		bridges.Web = nil
	}
	adapter := NewAdapter(info, bridges, opts.Logger)

	if opts.Fallback == nil && info.Platform != types.PlatformWeb && bridges.Web != nil {
		webInfo := info
		webInfo.Platform = types.PlatformWeb
		opts.Fallback = NewAdapter(webInfo, bridges, opts.Logger)
	}
	return New(adapter, opts)
}
