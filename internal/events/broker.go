package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Broker routes listing events to subscribers. Topics are listing ids; a
// subscriber registered with no topics receives every event, which is the
// default for map views showing all listings.
type Broker struct {
	subscribers map[Subscriber]map[string]struct{}
	events      chan publish
	register    chan subscription
	unregister  chan Subscriber
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

type subscription struct {
	sub    Subscriber
	topics []string
}

type publish struct {
	topic string
	event Event
}

// NewBroker creates an event broker.
func NewBroker(logger *zerolog.Logger) *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]map[string]struct{}),
		events:      make(chan publish, 256),
		register:    make(chan subscription),
		unregister:  make(chan Subscriber),
		logger:      logger,
	}
}

// Run starts the broker's event loop. Should be called in a goroutine.
// The broker runs until the context is cancelled, then closes all
// subscribers.
func (b *Broker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for sub := range b.subscribers {
				_ = sub.Close()
			}
			b.subscribers = make(map[Subscriber]map[string]struct{})
			b.mu.Unlock()
			b.logger.Info().Msg("event broker shut down")
			return

		case reg := <-b.register:
			b.mu.Lock()
			var topics map[string]struct{}
			if len(reg.topics) > 0 {
				topics = make(map[string]struct{}, len(reg.topics))
				for _, t := range reg.topics {
					topics[t] = struct{}{}
				}
			}
			b.subscribers[reg.sub] = topics
			total := len(b.subscribers)
			b.mu.Unlock()
			b.logger.Info().
				Int("topics", len(reg.topics)).
				Int("total_subscribers", total).
				Msg("subscriber registered")

		case sub := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.subscribers[sub]; ok {
				delete(b.subscribers, sub)
				_ = sub.Close()
			}
			total := len(b.subscribers)
			b.mu.Unlock()
			b.logger.Info().
				Int("total_subscribers", total).
				Msg("subscriber unregistered")

		case p := <-b.events:
			b.mu.RLock()
			targets := make([]Subscriber, 0, len(b.subscribers))
			for sub, topics := range b.subscribers {
				if topics == nil {
					targets = append(targets, sub)
					continue
				}
				if _, ok := topics[p.topic]; ok {
					targets = append(targets, sub)
				}
			}
			b.mu.RUnlock()

			for _, sub := range targets {
				go func(s Subscriber, e Event) {
					if err := s.Send(e); err != nil {
						b.logger.Warn().
							Err(err).
							Str("event_type", string(e.Type)).
							Msg("failed to send event to subscriber")
					}
				}(sub, p.event)
			}

			b.logger.Debug().
				Str("event_type", string(p.event.Type)).
				Str("topic", p.topic).
				Int("subscribers", len(targets)).
				Msg("event broadcast")
		}
	}
}

// Publish sends an event on the given topic. Publishing never blocks; if
// the broker's buffer is full the event is dropped.
func (b *Broker) Publish(topic string, eventType Type, data any) {
	p := publish{
		topic: topic,
		event: Event{
			Type:      eventType,
			Timestamp: time.Now(),
			Data:      data,
		},
	}

	select {
	case b.events <- p:
	default:
		b.logger.Warn().
			Str("event_type", string(eventType)).
			Str("topic", topic).
			Msg("event channel full, event dropped")
	}
}

// Subscribe registers a subscriber for the given topics. No topics means
// all events.
func (b *Broker) Subscribe(sub Subscriber, topics ...string) {
	b.register <- subscription{sub: sub, topics: topics}
}

// Unsubscribe removes and closes a subscriber.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.unregister <- sub
}

// SubscriberCount returns the current number of subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
