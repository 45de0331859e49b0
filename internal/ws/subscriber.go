package ws

import "restaura/internal/events"

// Subscriber adapts the hub to the event broker's Subscriber interface.
// The broker already resolves topic scoping for subscribers, but the hub
// keeps per-client scope too, so the adapter registers for all topics and
// lets the hub fan out.
type Subscriber struct {
	hub *Hub
}

// NewSubscriber creates a broker subscriber backed by the hub.
func NewSubscriber(hub *Hub) *Subscriber {
	return &Subscriber{hub: hub}
}

// Send delivers an event to the hub's clients.
func (s *Subscriber) Send(event events.Event) error {
	topic := ""
	if u, ok := event.Data.(events.LocationUpdate); ok {
		topic = u.ID
	}
	s.hub.Broadcast(topic, Message{
		Type:      string(event.Type),
		Timestamp: event.Timestamp,
		Data:      event.Data,
	})
	return nil
}

// Close is a no-op; the hub manages its own lifecycle.
func (s *Subscriber) Close() error {
	return nil
}
