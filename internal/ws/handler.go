package ws

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients are served from the same origin; cross-origin use is
	// governed by the CORS allowlist at the HTTP layer.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades HTTP requests to WebSocket connections and attaches
// them to the hub. The optional `listings` query parameter is a
// comma-separated set of listing ids to scope the subscription; without
// it the client receives every update.
func Handler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.logger.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		var listings []string
		if raw := r.URL.Query().Get("listings"); raw != "" {
			for _, id := range strings.Split(raw, ",") {
				if id = strings.TrimSpace(id); id != "" {
					listings = append(listings, id)
				}
			}
		}

		client := NewClient(uuid.New().String(), hub, conn, listings)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}
