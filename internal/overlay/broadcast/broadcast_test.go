package broadcast

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iceinvein/bootleg-msn-sub000/internal/logging"
	"github.com/iceinvein/bootleg-msn-sub000/internal/overlay"
	"github.com/iceinvein/bootleg-msn-sub000/internal/shared/types"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(logging.NewNop())
	srv := httptest.NewServer(hub.Router())
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/sync"
}

func dial(t *testing.T, url string) *Client {
	t.Helper()
	c, err := Dial(context.Background(), url, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

type collector struct {
	mu       sync.Mutex
	messages []Message
}

func (c *collector) add(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (c *collector) last() Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages[len(c.messages)-1]
}

func TestFanOutSkipsSender(t *testing.T) {
	_, url := startHub(t)
	a := dial(t, url)
	b := dial(t, url)

	var gotA, gotB collector
	a.OnMessage(gotA.add)
	b.OnMessage(gotB.add)

	require.NoError(t, a.PublishUnread(5))

	require.Eventually(t, func() bool { return gotB.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, TypeUnread, gotB.last().Type)
	assert.Equal(t, 5, gotB.last().Unread)
	assert.Equal(t, a.Origin(), gotB.last().Origin)
	assert.Equal(t, 0, gotA.count(), "sender never sees its own frame")
}

func TestBoundStacksMirror(t *testing.T) {
	_, url := startHub(t)
	a := dial(t, url)
	b := dial(t, url)

	stackA := overlay.NewStack()
	stackB := overlay.NewStack()
	a.BindStack(stackA)
	b.BindStack(stackB)

	stackA.Open(overlay.OpenRequest{
		Type:         types.OverlayProfile,
		Props:        map[string]interface{}{"userId": "u1"},
		PersistInURL: true,
	})

	require.Eventually(t, func() bool { return stackB.Count() == 1 }, time.Second, 5*time.Millisecond)
	top := stackB.Top()
	require.NotNil(t, top)
	assert.Equal(t, types.OverlayProfile, top.Type)
	assert.Equal(t, "u1", top.Props["userId"])

	// The applied frame must not echo back and wipe A.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, stackA.Count())
}

func TestRemoteCloseAllPropagates(t *testing.T) {
	_, url := startHub(t)
	a := dial(t, url)
	b := dial(t, url)

	stackA := overlay.NewStack()
	stackB := overlay.NewStack()
	a.BindStack(stackA)
	b.BindStack(stackB)

	stackA.Open(overlay.OpenRequest{Type: types.OverlayInfo})
	require.Eventually(t, func() bool { return stackB.Count() == 1 }, time.Second, 5*time.Millisecond)

	stackA.CloseAll()
	require.Eventually(t, func() bool { return stackB.Count() == 0 }, time.Second, 5*time.Millisecond)
}

func TestPingPong(t *testing.T) {
	_, url := startHub(t)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	ping, err := encode(Message{Type: TypePing, Origin: "win_test"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, ping))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := decode(data)
	require.NoError(t, err)
	assert.Equal(t, TypePong, msg.Type)
}

func TestMalformedFrameDoesNotKillPeer(t *testing.T) {
	_, url := startHub(t)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	b := dial(t, url)
	var got collector
	b.OnMessage(got.add)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	valid, err := encode(Message{Type: TypeUnread, Origin: "win_x", Unread: 2})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, valid))

	require.Eventually(t, func() bool { return got.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, got.last().Unread)
}

func TestRemoteOriginRefused(t *testing.T) {
	_, wsURL := startHub(t)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL,
		http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.Nil(t, conn)
	if resp != nil {
		resp.Body.Close()
	}
}

func TestLoopbackOriginAccepted(t *testing.T) {
	_, wsURL := startHub(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL,
		http.Header{"Origin": {"http://localhost"}})
	require.NoError(t, err)
	conn.Close()
}

func TestPeerCountTracksConnections(t *testing.T) {
	hub, url := startHub(t)
	a := dial(t, url)
	_ = dial(t, url)

	require.Eventually(t, func() bool { return hub.PeerCount() == 2 }, time.Second, 5*time.Millisecond)
	a.Close()
	require.Eventually(t, func() bool { return hub.PeerCount() == 1 }, time.Second, 5*time.Millisecond)
}
