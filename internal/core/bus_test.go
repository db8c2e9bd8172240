package core

import (
	"testing"
	"time"
)

// newTestBus returns a bus backed by a single worker, so queued listener
// jobs of equal priority run strictly in submission order.
func newTestBus() *EventBus {
	return NewEventBus(NewWorkerPool(1, nil), nil)
}

func expectEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func expectNoEvent(t *testing.T, ch <-chan Event) {
	t.Helper()
	select {
	case e := <-ch:
		t.Fatalf("unexpected event %q", e.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublishReachesSubscriber(t *testing.T) {
	bus := newTestBus()
	got := make(chan Event, 1)
	bus.Subscribe("test_event", func(e Event) { got <- e })

	bus.Publish("test_event", map[string]any{"some": "data"}, OriginLocal)

	e := expectEvent(t, got)
	if e.Type != "test_event" {
		t.Errorf("event type = %q, want %q", e.Type, "test_event")
	}
	if e.Origin != OriginLocal {
		t.Errorf("event origin = %q, want %q", e.Origin, OriginLocal)
	}
	if e.Data["some"] != "data" {
		t.Errorf("event data = %v, want some=data", e.Data)
	}
}

func TestPublishIgnoresUnrelatedSubscribers(t *testing.T) {
	bus := newTestBus()
	got := make(chan Event, 1)
	bus.Subscribe("other_event", func(e Event) { got <- e })

	bus.Publish("test_event", nil, OriginLocal)

	expectNoEvent(t, got)
}

func TestMatchAllReceivesEverything(t *testing.T) {
	bus := newTestBus()
	got := make(chan Event, 2)
	bus.Subscribe(MatchAll, func(e Event) { got <- e })

	bus.Publish("first", nil, OriginLocal)
	bus.Publish("second", nil, OriginRemote)

	if e := expectEvent(t, got); e.Type != "first" {
		t.Errorf("first event type = %q, want %q", e.Type, "first")
	}
	if e := expectEvent(t, got); e.Type != "second" {
		t.Errorf("second event type = %q, want %q", e.Type, "second")
	}
}

func TestListenersRunInSubscriptionOrder(t *testing.T) {
	bus := newTestBus()
	got := make(chan string, 3)

	bus.Subscribe(MatchAll, func(Event) { got <- "match_all" })
	bus.Subscribe("test_event", func(Event) { got <- "first" })
	bus.Subscribe("test_event", func(Event) { got <- "second" })

	bus.Publish("test_event", nil, OriginLocal)

	want := []string{"match_all", "first", "second"}
	for _, expected := range want {
		select {
		case name := <-got:
			if name != expected {
				t.Fatalf("listener %q ran, want %q", name, expected)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("listener %q never ran", expected)
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := newTestBus()
	got := make(chan Event, 1)
	sub := bus.Subscribe("test_event", func(e Event) { got <- e })

	bus.Unsubscribe(sub)
	bus.Publish("test_event", nil, OriginLocal)

	expectNoEvent(t, got)

	if counts := bus.ListenerCounts(); counts["test_event"] != 0 {
		t.Errorf("listener count after unsubscribe = %d, want 0", counts["test_event"])
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	bus := newTestBus()
	sub := bus.Subscribe("test_event", func(Event) {})

	bus.Unsubscribe(sub)
	bus.Unsubscribe(sub)
	bus.Unsubscribe(nil)
}

func TestListenOnceFiresExactlyOnce(t *testing.T) {
	bus := newTestBus()
	got := make(chan Event, 2)
	bus.ListenOnce("test_event", func(e Event) { got <- e })

	bus.Publish("test_event", nil, OriginLocal)
	bus.Publish("test_event", nil, OriginLocal)

	expectEvent(t, got)
	expectNoEvent(t, got)

	if counts := bus.ListenerCounts(); counts["test_event"] != 0 {
		t.Errorf("listener count after one-shot = %d, want 0", counts["test_event"])
	}
}

func TestListenerCounts(t *testing.T) {
	bus := newTestBus()
	bus.Subscribe("state_changed", func(Event) {})
	bus.Subscribe("state_changed", func(Event) {})
	bus.Subscribe(MatchAll, func(Event) {})

	counts := bus.ListenerCounts()
	if counts["state_changed"] != 2 {
		t.Errorf("state_changed count = %d, want 2", counts["state_changed"])
	}
	if counts[MatchAll] != 1 {
		t.Errorf("match-all count = %d, want 1", counts[MatchAll])
	}
}

func TestPanickingListenerDoesNotDisturbOthers(t *testing.T) {
	bus := newTestBus()
	got := make(chan Event, 2)

	bus.Subscribe("test_event", func(Event) { panic("listener exploded") })
	bus.Subscribe("test_event", func(e Event) { got <- e })

	bus.Publish("test_event", nil, OriginLocal)
	expectEvent(t, got)

	// The worker that recovered the panic must still be draining jobs.
	bus.Publish("test_event", nil, OriginLocal)
	expectEvent(t, got)
}

func TestListenerCanUnsubscribeItselfDuringDispatch(t *testing.T) {
	bus := newTestBus()
	got := make(chan Event, 2)

	var sub *Subscription
	done := make(chan struct{})
	sub = bus.Subscribe("test_event", func(e Event) {
		<-done // wait until sub is assigned
		bus.Unsubscribe(sub)
		got <- e
	})
	close(done)

	bus.Publish("test_event", nil, OriginLocal)
	expectEvent(t, got)

	bus.Publish("test_event", nil, OriginLocal)
	expectNoEvent(t, got)
}
