package events

// Subscriber consumes events from the broker. Implementations adapt the
// stream to a transport (WebSocket today; SSE or webhooks would slot in
// the same way).
type Subscriber interface {
	// Send delivers an event. Implementations should not block and should
	// swallow per-client delivery problems.
	Send(Event) error

	// Close shuts the subscriber down.
	Close() error
}
