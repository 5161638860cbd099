// Package broadcast synchronizes overlay and unread state between the app's
// windows over a loopback WebSocket hub. Every window runs a Client; the main
// window (or a sidecar) runs the Hub. Messages carry an origin tag so a
// window never applies its own echoes.
package broadcast

import (
	"github.com/bytedance/sonic"

	"github.com/iceinvein/bootleg-msn-sub000/internal/shared/types"
)

// Message kinds.
const (
	TypeOverlaySync = "overlay_sync"
	TypeUnread      = "unread"
	TypePing        = "ping"
	TypePong        = "pong"
)

// Message is one broadcast frame. Origin identifies the sending window.
type Message struct {
	Type      string               `json:"type"`
	Origin    string               `json:"origin"`
	Timestamp int64                `json:"timestamp,omitempty"`
	Overlays  []types.OverlayEntry `json:"overlays,omitempty"`
	Unread    int                  `json:"unread,omitempty"`
}

func encode(msg Message) ([]byte, error) {
	return sonic.Marshal(msg)
}

func decode(data []byte) (Message, error) {
	var msg Message
	err := sonic.Unmarshal(data, &msg)
	return msg, err
}
