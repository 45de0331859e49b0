// Package ws provides the WebSocket transport for live listing updates.
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Hub maintains active WebSocket connections and delivers listing events
// to them. Each client may be scoped to a set of listing ids; a client
// with no scope receives every event.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan broadcast
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	logger     *zerolog.Logger
}

type broadcast struct {
	topic   string
	message Message
}

// NewHub creates a WebSocket hub.
func NewHub(logger *zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan broadcast, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run starts the hub's main loop. Should be called in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info().
				Str("client_id", client.id).
				Int("listings", len(client.listings)).
				Int("total_clients", total).
				Msg("websocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info().
				Str("client_id", client.id).
				Int("total_clients", total).
				Msg("websocket client disconnected")

		case b := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.wants(b.topic) {
					continue
				}
				select {
				case client.send <- b.message:
				default:
					// Client buffer full, disconnect
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast delivers a message to every client subscribed to the listing
// topic. It never blocks; when the hub buffer is full the message is
// dropped.
func (h *Hub) Broadcast(topic string, message Message) {
	select {
	case h.broadcast <- broadcast{topic: topic, message: message}:
	default:
		h.logger.Warn().Str("topic", topic).Msg("broadcast channel full, message dropped")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Message is a WebSocket wire message.
type Message struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Client represents one WebSocket connection.
type Client struct {
	id       string
	hub      *Hub
	conn     *websocket.Conn
	send     chan Message
	listings map[string]struct{} // nil means all listings
}

// NewClient creates a client scoped to the given listing ids. An empty
// slice subscribes to all updates.
func NewClient(id string, hub *Hub, conn *websocket.Conn, listings []string) *Client {
	var scope map[string]struct{}
	if len(listings) > 0 {
		scope = make(map[string]struct{}, len(listings))
		for _, l := range listings {
			scope[l] = struct{}{}
		}
	}
	return &Client{
		id:       id,
		hub:      hub,
		conn:     conn,
		send:     make(chan Message, 256),
		listings: scope,
	}
}

func (c *Client) wants(topic string) bool {
	if c.listings == nil {
		return true
	}
	_, ok := c.listings[topic]
	return ok
}

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// ReadPump pumps control messages from the connection and unregisters the
// client when it goes away.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error().Err(err).Str("client_id", c.id).Msg("websocket read error")
			}
			break
		}
	}
}

// WritePump pumps messages from the hub to the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				c.hub.logger.Error().Err(err).Msg("failed to marshal websocket message")
				continue
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
