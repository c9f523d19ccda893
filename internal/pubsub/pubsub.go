package pubsub

import (
	"github.com/Billy-Davies-2/esports-draft/internal/logger"
)

// Broker is implemented by every event bus in this package
type Broker interface {
	Publish(Event)
	Subscribe() chan Event
	Unsubscribe(chan Event)
}

// PubSub implements a simple publish-subscribe system
type PubSub struct {
	hub      *hub
	upstream Broker // optional, e.g. NATS
}

// New creates a new in-process PubSub
func New() *PubSub {
	return &PubSub{hub: newHub(10)}
}

// NewWithUpstream creates a PubSub that bridges to an upstream broker.
// Publish goes to the upstream, which broadcasts to every instance; events
// arriving from the upstream are forwarded to local subscribers.
func NewWithUpstream(upstream Broker) *PubSub {
	ps := &PubSub{hub: newHub(10), upstream: upstream}

	ch := upstream.Subscribe()
	go func() {
		logger.Debug("PubSub: Subscribed to upstream, waiting for events")
		for event := range ch {
			ps.publishLocal(event)
		}
		logger.Debug("PubSub: Upstream channel closed")
	}()

	return ps
}

// Subscribe adds a new subscriber and returns a channel for receiving events
func (ps *PubSub) Subscribe() chan Event {
	ch := ps.hub.add()
	logger.Debug("PubSub: New subscriber added", "totalSubscribers", ps.hub.count())
	return ch
}

// Unsubscribe removes a subscriber and closes its channel
func (ps *PubSub) Unsubscribe(ch chan Event) {
	ps.hub.remove(ch)
}

// Publish sends an event to all subscribers, through the upstream when one
// is configured
func (ps *PubSub) Publish(event Event) {
	if ps.upstream != nil {
		ps.upstream.Publish(event)
		return
	}
	ps.publishLocal(event)
}

func (ps *PubSub) publishLocal(event Event) {
	if dropped := ps.hub.broadcast(event); dropped > 0 {
		logger.Debug("PubSub: Skipped slow subscribers", "type", event.Type, "dropped", dropped)
	}
}
