package broadcast

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/iceinvein/bootleg-msn-sub000/internal/logging"
	"github.com/iceinvein/bootleg-msn-sub000/internal/overlay"
	"github.com/iceinvein/bootleg-msn-sub000/internal/shared/id"
	"github.com/iceinvein/bootleg-msn-sub000/internal/shared/types"
)

// Client is one window's connection to the hub. It publishes local overlay
// transitions and applies remote ones; frames tagged with its own origin are
// dropped on receipt.
type Client struct {
	origin string
	log    *logging.Logger

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu          sync.Mutex
	stack       *overlay.Stack
	onMessage   func(Message)
	unsubscribe func()

	applying atomic.Bool
	done     chan struct{}
}

// Dial connects to the hub at url (ws://127.0.0.1:.../sync) and starts the
// receive loop. The origin tag is generated per window.
func Dial(ctx context.Context, url string, log *logging.Logger) (*Client, error) {
	if log == nil {
		log = logging.NewDefault()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		origin: id.NewWindowID(),
		log:    log.Component("broadcast.client"),
		conn:   conn,
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Origin returns this window's origin tag.
func (c *Client) Origin() string { return c.origin }

// OnMessage sets the callback invoked for every remote frame.
func (c *Client) OnMessage(fn func(Message)) {
	c.mu.Lock()
	c.onMessage = fn
	c.mu.Unlock()
}

// BindStack mirrors the given stack across windows: local transitions are
// published, remote overlay_sync frames are applied. Applying a remote frame
// never republishes it.
func (c *Client) BindStack(stack *overlay.Stack) {
	c.mu.Lock()
	c.stack = stack
	c.mu.Unlock()

	unsub := stack.Subscribe(func(snap overlay.Snapshot) {
		if c.applying.Load() {
			return
		}
		if err := c.PublishOverlays(snap.Stack); err != nil {
			c.log.Debug("overlay publish failed", zap.Error(err))
		}
	})
	c.mu.Lock()
	c.unsubscribe = unsub
	c.mu.Unlock()
}

// PublishOverlays sends the full overlay list to the other windows.
func (c *Client) PublishOverlays(entries []types.OverlayEntry) error {
	return c.send(Message{
		Type:      TypeOverlaySync,
		Origin:    c.origin,
		Timestamp: time.Now().UnixMilli(),
		Overlays:  entries,
	})
}

// PublishUnread sends the unread counter to the other windows.
func (c *Client) PublishUnread(count int) error {
	return c.send(Message{
		Type:      TypeUnread,
		Origin:    c.origin,
		Timestamp: time.Now().UnixMilli(),
		Unread:    count,
	})
}

// Close detaches from the stack and closes the connection.
func (c *Client) Close() {
	c.mu.Lock()
	unsub := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	c.conn.Close()
	<-c.done
}

func (c *Client) send(msg Message) error {
	data, err := encode(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := decode(data)
		if err != nil {
			c.log.Warn("malformed broadcast frame dropped", zap.Error(err))
			continue
		}
		if msg.Origin == c.origin {
			continue
		}

		c.mu.Lock()
		stack := c.stack
		handler := c.onMessage
		c.mu.Unlock()

		if msg.Type == TypeOverlaySync && stack != nil {
			c.applyOverlays(stack, msg.Overlays)
		}
		if handler != nil {
			handler(msg)
		}
	}
}

// applyOverlays rebuilds the local stack from a remote frame. The applying
// flag keeps the rebuild's own transitions from echoing back out.
func (c *Client) applyOverlays(stack *overlay.Stack, entries []types.OverlayEntry) {
	c.applying.Store(true)
	defer c.applying.Store(false)

	stack.CloseAll()
	for _, e := range entries {
		stack.Open(overlay.OpenRequest{
			Type:         e.Type,
			Props:        e.Props,
			PersistInURL: e.PersistInURL,
		})
	}
}
