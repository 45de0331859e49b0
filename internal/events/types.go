// Package events distributes listing events to connected realtime
// transports.
//
// It implements a broker that fans listing updates out to registered
// subscribers. Delivery is best-effort and at-most-once: events are a UI
// freshness hint, not a source of truth, so there is no retry, queueing,
// or acknowledgement.
package events

import "time"

// Type identifies the kind of event on the wire.
type Type string

// ListingLocationUpdated is published after an update moves a listing
// to a new geometry.
const ListingLocationUpdated Type = "listingLocationUpdated"

// LocationUpdate is the payload for ListingLocationUpdated. Coordinates
// are GeoJSON order, [longitude, latitude]. Consumers must treat a
// missing coordinates slice as "skip this update".
type LocationUpdate struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Location    string    `json:"location"`
	Coordinates []float64 `json:"coordinates,omitempty"`
}

// Event wraps a payload with its type and publish time.
type Event struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}
