package pubsub

import (
	"sync"
	"testing"
	"time"
)

func recv(t *testing.T, ch chan Event) Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
	return Event{}
}

func TestNew(t *testing.T) {
	ps := New()
	if ps.upstream != nil {
		t.Error("upstream should be nil for local PubSub")
	}
	if ps.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", ps.SubscriberCount())
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	ps := New()

	ch1 := ps.Subscribe()
	ch2 := ps.Subscribe()
	ch3 := ps.Subscribe()
	if ps.SubscriberCount() != 3 {
		t.Fatalf("expected 3 subscribers, got %d", ps.SubscriberCount())
	}

	ps.Unsubscribe(ch2)
	if ps.SubscriberCount() != 2 {
		t.Errorf("expected 2 subscribers, got %d", ps.SubscriberCount())
	}
	if _, ok := <-ch2; ok {
		t.Error("unsubscribed channel should be closed")
	}

	ps.Publish(Event{Type: EventMarkersCleared, Session: "s1"})
	for _, ch := range []chan Event{ch1, ch3} {
		if e := recv(t, ch); e.Type != EventMarkersCleared {
			t.Errorf("unexpected event %+v", e)
		}
	}
}

func TestUnsubscribeNonexistent(t *testing.T) {
	ps := New()
	ps.Subscribe()

	ps.Unsubscribe(make(chan Event))
	if ps.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber, got %d", ps.SubscriberCount())
	}
}

func TestPublishNoSubscribers(t *testing.T) {
	ps := New()
	ps.Publish(Event{Type: EventRecordCreated})
}

func TestPublishCarriesSessionAndPayload(t *testing.T) {
	ps := New()
	ch := ps.Subscribe()

	ps.Publish(Event{
		Type:    EventRecordCreated,
		Session: "abc",
		Payload: map[string]any{"id": "r1", "x": 10, "y": 20},
	})

	e := recv(t, ch)
	if e.Session != "abc" {
		t.Errorf("expected session abc, got %q", e.Session)
	}
	if e.Payload["id"] != "r1" || e.Payload["x"] != 10 {
		t.Errorf("unexpected payload %v", e.Payload)
	}
}

func TestPublishDropsWhenChannelFull(t *testing.T) {
	ps := New()
	ch := ps.Subscribe()

	for i := 0; i < 15; i++ {
		ps.Publish(Event{Type: EventRecordCreated, Payload: map[string]any{"n": i}})
	}

	if len(ch) != 10 {
		t.Errorf("expected buffer of 10 events, got %d", len(ch))
	}
	if e := recv(t, ch); e.Payload["n"] != 0 {
		t.Errorf("expected oldest event first, got %v", e.Payload)
	}
}

func TestConcurrentPublishAndSubscribe(t *testing.T) {
	ps := New()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ch := ps.Subscribe()
			time.Sleep(time.Millisecond)
			ps.Unsubscribe(ch)
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				ps.Publish(Event{Type: EventRecordDeleted})
			}
		}()
	}
	wg.Wait()

	if ps.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", ps.SubscriberCount())
	}
}

// fakeUpstream echoes published events back to its subscribers
type fakeUpstream struct {
	mu        sync.Mutex
	published []Event
	subs      broadcaster
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{subs: broadcaster{buffer: 100}}
}

func (f *fakeUpstream) Publish(event Event) {
	f.mu.Lock()
	f.published = append(f.published, event)
	f.mu.Unlock()
	f.subs.send(event)
}

func (f *fakeUpstream) Subscribe() chan Event     { return f.subs.add() }
func (f *fakeUpstream) Unsubscribe(ch chan Event) { f.subs.remove(ch) }

func (f *fakeUpstream) Published() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Event(nil), f.published...)
}

func TestPublishWithUpstream(t *testing.T) {
	up := newFakeUpstream()
	ps := NewWithUpstream(up)
	ch := ps.Subscribe()

	ps.Publish(Event{Type: EventRecordCreated, Session: "s1"})

	if got := up.Published(); len(got) != 1 || got[0].Session != "s1" {
		t.Fatalf("expected event to reach upstream, got %+v", got)
	}
	if e := recv(t, ch); e.Type != EventRecordCreated {
		t.Errorf("expected echoed event, got %+v", e)
	}
}

func TestUpstreamEventsReachLocalSubscribers(t *testing.T) {
	up := newFakeUpstream()
	ps := NewWithUpstream(up)
	ch := ps.Subscribe()

	// Another instance publishing on the shared upstream.
	up.Publish(Event{Type: EventMarkersCleared, Session: "other"})

	if e := recv(t, ch); e.Session != "other" {
		t.Errorf("expected event from upstream, got %+v", e)
	}
}
