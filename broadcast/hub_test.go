package broadcast

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dial(t *testing.T, hub *Hub, sid string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, sid)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	return ev
}

func TestHub_RefreshReachesEveryTabOfTheSession(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	tab1 := dial(t, hub, "s1")
	tab2 := dial(t, hub, "s1")
	other := dial(t, hub, "s2")
	require.Eventually(t, func() bool { return hub.Subscribers("s1") == 2 && hub.Subscribers("s2") == 1 },
		time.Second, 5*time.Millisecond)

	hub.Refreshed("s1", "inventario")

	assert.Equal(t, Event{Type: EventRefresh, Page: "inventario"}, readEvent(t, tab1))
	assert.Equal(t, Event{Type: EventRefresh, Page: "inventario"}, readEvent(t, tab2))

	require.NoError(t, other.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "other sessions get nothing")
}

func TestHub_LogoutClosesConnections(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	tab := dial(t, hub, "s1")
	require.Eventually(t, func() bool { return hub.Subscribers("s1") == 1 }, time.Second, 5*time.Millisecond)

	hub.SessionInvalidated("s1")

	assert.Equal(t, Event{Type: EventLogout}, readEvent(t, tab))
	_, _, err := tab.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
	assert.Eventually(t, func() bool { return hub.Subscribers("s1") == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	assert.Zero(t, hub.Publish("nobody", Event{Type: EventRefresh}))
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	hub := NewHub([]string{"https://arena.example"}, zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, "s1")
	}))
	defer srv.Close()

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
