package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaura/internal/events"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	logger := zerolog.Nop()
	hub := NewHub(&logger)
	go hub.Run()

	srv := httptest.NewServer(Handler(hub))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d clients, have %d", n, hub.ClientCount())
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubBroadcastToAll(t *testing.T) {
	hub, srv := newTestHub(t)

	c1 := dial(t, srv, "")
	c2 := dial(t, srv, "")
	waitForClients(t, hub, 2)

	hub.Broadcast("listing-1", Message{
		Type:      string(events.ListingLocationUpdated),
		Timestamp: time.Now(),
		Data:      map[string]any{"id": "listing-1"},
	})

	for _, conn := range []*websocket.Conn{c1, c2} {
		msg := readMessage(t, conn)
		assert.Equal(t, string(events.ListingLocationUpdated), msg.Type)
	}
}

func TestHubScopedClientSkipsForeignTopics(t *testing.T) {
	hub, srv := newTestHub(t)

	scoped := dial(t, srv, "?listings=listing-1")
	waitForClients(t, hub, 1)

	hub.Broadcast("listing-2", Message{Type: "listingLocationUpdated", Timestamp: time.Now()})
	hub.Broadcast("listing-1", Message{
		Type:      "listingLocationUpdated",
		Timestamp: time.Now(),
		Data:      map[string]any{"id": "listing-1"},
	})

	// Only the listing-1 message should arrive.
	msg := readMessage(t, scoped)
	data, ok := msg.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "listing-1", data["id"])
}

func TestHubClientDisconnect(t *testing.T) {
	hub, srv := newTestHub(t)

	conn := dial(t, srv, "")
	waitForClients(t, hub, 1)

	require.NoError(t, conn.Close())
	waitForClients(t, hub, 0)
}

func TestSubscriberRoutesByListingID(t *testing.T) {
	hub, srv := newTestHub(t)

	scoped := dial(t, srv, "?listings=abc")
	waitForClients(t, hub, 1)

	sub := NewSubscriber(hub)
	err := sub.Send(events.Event{
		Type:      events.ListingLocationUpdated,
		Timestamp: time.Now(),
		Data: events.LocationUpdate{
			ID:          "abc",
			Title:       "Hilltop Cabin",
			Location:    "Manali, India",
			Coordinates: []float64{77.18, 32.24},
		},
	})
	require.NoError(t, err)

	msg := readMessage(t, scoped)
	assert.Equal(t, "listingLocationUpdated", msg.Type)

	data, ok := msg.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "abc", data["id"])
	assert.Equal(t, "Hilltop Cabin", data["title"])
}
