// Package id provides centralized ID generation for the client core.
//
// IDs are UUIDv4 strings with a type prefix (ovl_*, adp_*, win_*, ntf_*) so
// that logs stay readable and an overlay ID can never be mistaken for a
// window ID. Overlay IDs in particular are generated fresh on every open and
// never reused.
package id

import (
	"fmt"

	"github.com/google/uuid"
)

// Prefixes for the ID domains used across the core.
const (
	OverlayPrefix      = "ovl"
	AdapterPrefix      = "adp"
	WindowPrefix       = "win"
	NotificationPrefix = "ntf"
)

// NewWithPrefix generates a prefixed UUID string.
func NewWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

// NewOverlayID generates a fresh overlay entry ID.
func NewOverlayID() string {
	return NewWithPrefix(OverlayPrefix)
}

// NewAdapterID generates an ID for a platform adapter instance.
func NewAdapterID() string {
	return NewWithPrefix(AdapterPrefix)
}

// NewWindowID generates an ID for a tracked window.
func NewWindowID() string {
	return NewWithPrefix(WindowPrefix)
}

// NewNotificationID generates an ID for a routed notification.
func NewNotificationID() string {
	return NewWithPrefix(NotificationPrefix)
}
