package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/vigil/internal/events"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(hub)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg, &got))
	return got
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	a := dialHub(t, hub)
	b := dialHub(t, hub)
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, time.Second, 5*time.Millisecond)

	hub.Send(events.Envelope{
		Type:      events.TypeLevelChanged,
		Payload:   events.LevelChanged{Level: "severe"},
		Timestamp: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	})

	for _, conn := range []*websocket.Conn{a, b} {
		got := readEnvelope(t, conn)
		assert.Equal(t, events.TypeLevelChanged, got["type"])
		assert.Equal(t, map[string]any{"level": "severe"}, got["payload"])
		assert.Equal(t, "2026-03-01T09:00:00Z", got["timestamp"])
	}
}

func TestHub_ClientDisconnect(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	conn := dialHub(t, hub)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 5*time.Millisecond)

	// sending with no clients is a no-op
	hub.Send(events.Envelope{Type: events.TypeBlink})
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(nil)

	conn := dialHub(t, hub)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	hub.Close()
	assert.Equal(t, 0, hub.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "expected normal closure, got %v", err)
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	// registered directly so nothing drains the queue
	c := &wsClient{id: "slow", send: make(chan []byte, 1)}
	hub.clients[c.id] = c

	hub.Send(events.Envelope{Type: events.TypeBlink})
	assert.Equal(t, 1, hub.Clients())

	hub.Send(events.Envelope{Type: events.TypeBlink})
	assert.Equal(t, 0, hub.Clients())

	_, open := <-c.send
	assert.True(t, open, "queued message should still be readable")
	_, open = <-c.send
	assert.False(t, open, "queue should be closed after drop")
}
