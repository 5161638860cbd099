// Package detect classifies the host environment hosting the client.
//
// The wrappers inject marker globals into the page; the Environment snapshot
// carries their presence plus the ambient user agent. Detection is pure: it
// never mutates anything and never fails, falling back to web when no wrapper
// marker is present.
package detect

import (
	"strings"

	"github.com/iceinvein/bootleg-msn-sub000/internal/shared/types"
)

// Environment is a snapshot of the ambient host globals. A zero Environment
// is valid and classifies as web.
type Environment struct {
	// DesktopBridge reports the desktop wrapper's marker global.
	DesktopBridge bool
	// MobileBridge reports the mobile wrapper's native bridge global.
	MobileBridge bool
	// HasWindow reports a window-like global. The web adapter cannot run
	// without one.
	HasWindow bool
	// HasShareAPI reports a native share capability on the host.
	HasShareAPI bool
	// UserAgent is the ambient user agent string, possibly empty.
	UserAgent string
	// Version is the wrapper-reported shell version, if any.
	Version string
	// OSHint is the wrapper-reported operating system ("android", "ios", ...).
	OSHint string
	// Development reports a development build of the shell.
	Development bool
}

// Info describes the resolved platform.
type Info struct {
	Platform    types.Platform
	OS          types.OS
	Version     string
	UserAgent   string
	Development bool
	HasShareAPI bool
	Metadata    map[string]string
}

// Detect classifies the environment into exactly one platform. Wrapper
// markers win over anything the user agent says; the desktop marker is
// probed first because desktop shells also embed a mobile-looking webview UA
// on some systems.
func Detect(env Environment) Info {
	info := Info{
		Platform:    types.PlatformWeb,
		OS:          detectOS(env),
		Version:     env.Version,
		UserAgent:   env.UserAgent,
		Development: env.Development,
		HasShareAPI: env.HasShareAPI,
		Metadata:    map[string]string{},
	}

	switch {
	case env.DesktopBridge:
		info.Platform = types.PlatformDesktop
	case env.MobileBridge:
		info.Platform = types.PlatformMobile
	}

	info.Metadata["platform"] = string(info.Platform)
	info.Metadata["os"] = string(info.OS)
	return info
}

// Capabilities derives the fixed six-boolean capability record for the
// resolved platform. Hardware back button exists only on Android mobile;
// web native sharing exists only when the host exposes a share capability.
func Capabilities(info Info) types.Capabilities {
	switch info.Platform {
	case types.PlatformMobile:
		return types.Capabilities{
			HasHardwareBackButton: info.OS == types.OSAndroid,
			HasSystemOverlays:     true,
			HasDeepLinking:        true,
			HasNativeSharing:      true,
			HasKeyboardShortcuts:  false,
			HasWindowManagement:   false,
		}
	case types.PlatformDesktop:
		return types.Capabilities{
			HasHardwareBackButton: false,
			HasSystemOverlays:     true,
			HasDeepLinking:        true,
			HasNativeSharing:      false,
			HasKeyboardShortcuts:  true,
			HasWindowManagement:   true,
		}
	default:
		return types.Capabilities{
			HasHardwareBackButton: false,
			HasSystemOverlays:     false,
			HasDeepLinking:        true,
			HasNativeSharing:      info.HasShareAPI,
			HasKeyboardShortcuts:  true,
			HasWindowManagement:   false,
		}
	}
}

var mobileUAPatterns = []string{
	"android", "iphone", "ipad", "ipod", "webos",
	"blackberry", "windows phone", "opera mini", "mobile",
}

// IsMobile reports whether the host should get the mobile presentation.
// Unknown or empty user agents classify as non-mobile.
func IsMobile(info Info) bool {
	if info.Platform == types.PlatformMobile {
		return true
	}
	ua := strings.ToLower(info.UserAgent)
	if ua == "" {
		return false
	}
	for _, pattern := range mobileUAPatterns {
		if strings.Contains(ua, pattern) {
			return true
		}
	}
	return false
}

// IsDesktop reports whether the host should get the desktop presentation.
func IsDesktop(info Info) bool {
	return info.Platform == types.PlatformDesktop || !IsMobile(info)
}

// Classes derives presentation tags for the resolved platform. Not consumed
// by the core logic; the UI layer attaches them to its root element.
func Classes(platform types.Platform) []string {
	switch platform {
	case types.PlatformMobile:
		return []string{"platform-mobile", "native-shell"}
	case types.PlatformDesktop:
		return []string{"platform-desktop", "native-shell"}
	default:
		return []string{"platform-web"}
	}
}

func detectOS(env Environment) types.OS {
	switch strings.ToLower(env.OSHint) {
	case "android":
		return types.OSAndroid
	case "ios":
		return types.OSIOS
	}

	ua := strings.ToLower(env.UserAgent)
	switch {
	case strings.Contains(ua, "android"):
		return types.OSAndroid
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"), strings.Contains(ua, "ipod"):
		return types.OSIOS
	default:
		return types.OSOther
	}
}
