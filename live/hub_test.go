package live

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, hub *Hub) string {
	t.Helper()
	router := httprouter.New()
	router.GET("/ws/restaurants/:id", hub.HandleWS)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBroadcastReachesOnlyThatRestaurant(t *testing.T) {
	hub := NewHub([]string{"*"})
	base := startServer(t, hub)

	r1 := dial(t, base+"/ws/restaurants/R1")
	r2 := dial(t, base+"/ws/restaurants/R2")
	require.Eventually(t, func() bool {
		return hub.Subscribers("R1") == 1 && hub.Subscribers("R2") == 1
	}, time.Second, 10*time.Millisecond)

	hub.Broadcast("R1", []byte(`{"type":"reservation.created"}`))

	r1.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := r1.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"reservation.created"}`, string(msg))

	r2.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = r2.ReadMessage()
	assert.Error(t, err)
}

func TestDisconnectUnsubscribes(t *testing.T) {
	hub := NewHub([]string{"*"})
	base := startServer(t, hub)

	conn := dial(t, base+"/ws/restaurants/R1")
	require.Eventually(t, func() bool { return hub.Subscribers("R1") == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Subscribers("R1") == 0 }, time.Second, 10*time.Millisecond)
}

func TestOriginCheck(t *testing.T) {
	hub := NewHub([]string{"https://tablebook.example"})
	base := startServer(t, hub)

	header := map[string][]string{"Origin": {"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(base+"/ws/restaurants/R1", header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)
}
