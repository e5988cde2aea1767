package pubsub

import (
	"sync"

	"github.com/Billy-Davies-2/hitchart-input/internal/logger"
)

// Event types published by the annotation UI
const (
	EventRecordCreated    = "record:created"
	EventRecordDeleted    = "record:deleted"
	EventMarkersCleared   = "markers:cleared"
	EventSelectionChanged = "selection:changed"
)

// Event is a change notification scoped to one annotation session
type Event struct {
	Type    string         `json:"type"`
	Session string         `json:"session,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Upstream is an interface for upstream publishers (e.g., NATS)
type Upstream interface {
	Publish(Event)
	Subscribe() chan Event
	Unsubscribe(chan Event)
}

// broadcaster fans events out to buffered subscriber channels. Slow
// subscribers lose events instead of blocking publishers.
type broadcaster struct {
	mu          sync.RWMutex
	subscribers []chan Event
	buffer      int
}

func (b *broadcaster) add() chan Event {
	ch := make(chan Event, b.buffer)
	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()
	return ch
}

func (b *broadcaster) remove(ch chan Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subscribers {
		if sub == ch {
			close(ch)
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			return true
		}
	}
	return false
}

// send delivers event to every subscriber and returns how many were skipped
func (b *broadcaster) send(event Event) int {
	b.mu.RLock()
	subs := make([]chan Event, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	dropped := 0
	for _, ch := range subs {
		select {
		case ch <- event:
		default:
			dropped++
		}
	}
	return dropped
}

func (b *broadcaster) count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}

// PubSub is the in-process event bus used by the HTTP and gRPC layers.
// With an upstream, events make a round trip through it so that every
// instance sharing the upstream sees them.
type PubSub struct {
	broadcaster
	upstream Upstream
}

// New creates a local-only PubSub
func New() *PubSub {
	return &PubSub{broadcaster: broadcaster{buffer: 10}}
}

// NewWithUpstream creates a PubSub bridged to upstream
func NewWithUpstream(upstream Upstream) *PubSub {
	ps := &PubSub{
		broadcaster: broadcaster{buffer: 10},
		upstream:    upstream,
	}

	ch := upstream.Subscribe()
	go func() {
		for event := range ch {
			ps.publishLocal(event)
		}
		logger.Debug("PubSub: upstream channel closed")
	}()

	return ps
}

// Subscribe adds a new subscriber and returns a channel for receiving events
func (ps *PubSub) Subscribe() chan Event {
	ch := ps.add()
	logger.Debug("PubSub: subscriber added", "total_subscribers", ps.count())
	return ch
}

// Unsubscribe removes a subscriber and closes its channel
func (ps *PubSub) Unsubscribe(ch chan Event) {
	ps.remove(ch)
}

// SubscriberCount returns the number of local subscribers
func (ps *PubSub) SubscriberCount() int {
	return ps.count()
}

// Publish sends an event to all subscribers, via the upstream when there is one
func (ps *PubSub) Publish(event Event) {
	if ps.upstream != nil {
		ps.upstream.Publish(event)
		return
	}
	ps.publishLocal(event)
}

func (ps *PubSub) publishLocal(event Event) {
	if dropped := ps.send(event); dropped > 0 {
		logger.Debug("PubSub: skipped slow subscribers", "type", event.Type, "dropped", dropped)
	}
}
