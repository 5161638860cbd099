package types

// Platform identifies the host environment hosting the client.
type Platform string

const (
	PlatformWeb     Platform = "web"
	PlatformMobile  Platform = "mobile"
	PlatformDesktop Platform = "desktop"
)

// OS identifies the operating system beneath a platform. It matters mostly
// on mobile, where back-button conventions differ between Android and iOS.
type OS string

const (
	OSAndroid OS = "android"
	OSIOS     OS = "ios"
	OSOther   OS = "other"
)

// AppState represents host-reported application lifecycle states.
type AppState string

const (
	AppStateActive     AppState = "active"
	AppStateBackground AppState = "background"
	AppStateInactive   AppState = "inactive"
)

// Capabilities is the fixed record of what a platform can do. Every platform
// supplies a value for all six fields; there are no partial capability sets.
type Capabilities struct {
	HasHardwareBackButton bool `json:"has_hardware_back_button"`
	HasSystemOverlays     bool `json:"has_system_overlays"`
	HasDeepLinking        bool `json:"has_deep_linking"`
	HasNativeSharing      bool `json:"has_native_sharing"`
	HasKeyboardShortcuts  bool `json:"has_keyboard_shortcuts"`
	HasWindowManagement   bool `json:"has_window_management"`
}

// ShareContent is the payload handed to a platform share action.
type ShareContent struct {
	Title    string `json:"title,omitempty"`
	Text     string `json:"text,omitempty"`
	URL      string `json:"url,omitempty"`
	FilePath string `json:"file_path,omitempty"`
}
