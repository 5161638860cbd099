package broadcast

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/iceinvein/bootleg-msn-sub000/internal/logging"
	"github.com/iceinvein/bootleg-msn-sub000/internal/monitoring"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// App windows send a loopback Origin and the shell's own client
		// sends none at all; a remote page cannot forge either, so anything
		// else is refused.
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		switch u.Hostname() {
		case "localhost", "127.0.0.1", "::1":
			return true
		}
		return false
	},
}

// Hub fans every received frame out to all other connected windows.
type Hub struct {
	log     *logging.Logger
	metrics *monitoring.Metrics

	mu    sync.Mutex
	peers map[*peer]struct{}
}

type peer struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes
}

func (p *peer) write(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

// NewHub creates a hub.
func NewHub(log *logging.Logger) *Hub {
	if log == nil {
		log = logging.NewDefault()
	}
	return &Hub{
		log:   log.Component("broadcast.hub"),
		peers: make(map[*peer]struct{}),
	}
}

// WithMetrics adds metrics tracking to the hub.
func (h *Hub) WithMetrics(m *monitoring.Metrics) *Hub {
	h.metrics = m
	return h
}

// Router builds the hub's HTTP surface: a single websocket endpoint with
// CORS restricted to loopback origins.
func (h *Hub) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost", "http://127.0.0.1",
			"https://localhost", "https://127.0.0.1",
		},
		AllowMethods: []string{"GET"},
		MaxAge:       12 * time.Hour,
	}))
	r.GET("/sync", h.handleConnection)
	return r
}

// PeerCount reports the number of connected windows.
func (h *Hub) PeerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

func (h *Hub) handleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	p := &peer{conn: conn}
	h.add(p)
	defer h.remove(p)

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		msg, err := decode(data)
		if err != nil {
			h.log.Warn("malformed broadcast frame dropped", zap.Error(err))
			continue
		}
		if msg.Type == TypePing {
			pong, _ := encode(Message{Type: TypePong, Origin: msg.Origin})
			if err := p.write(pong); err != nil {
				return
			}
			continue
		}
		h.fanOut(p, data)
	}
}

// fanOut relays a frame to every peer except its sender. A failed write
// drops only that peer's frame; the read loop notices the dead socket.
func (h *Hub) fanOut(from *peer, data []byte) {
	h.mu.Lock()
	targets := make([]*peer, 0, len(h.peers))
	for p := range h.peers {
		if p != from {
			targets = append(targets, p)
		}
	}
	h.mu.Unlock()

	for _, p := range targets {
		if err := p.write(data); err != nil {
			h.log.Debug("broadcast write failed", zap.Error(err))
		}
	}
	if h.metrics != nil {
		h.metrics.BroadcastMessages.Inc()
	}
}

func (h *Hub) add(p *peer) {
	h.mu.Lock()
	h.peers[p] = struct{}{}
	count := len(h.peers)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.BroadcastPeers.Set(float64(count))
	}
	h.log.Debug("window connected", zap.Int("peers", count))
}

func (h *Hub) remove(p *peer) {
	h.mu.Lock()
	delete(h.peers, p)
	count := len(h.peers)
	h.mu.Unlock()

	p.conn.Close()
	if h.metrics != nil {
		h.metrics.BroadcastPeers.Set(float64(count))
	}
	h.log.Debug("window disconnected", zap.Int("peers", count))
}
