package remote

import (
	"testing"
	"time"

	"github.com/nerrad567/hearth-core/internal/core"
)

func TestForwarderReplaysEventsToEveryTarget(t *testing.T) {
	bus := newLocalPool()
	f := NewForwarder(bus, "", nil)

	srvA, receivedA := eventSink(t)
	srvB, receivedB := eventSink(t)
	f.Connect(testBinding(t, srvA, "secret"))
	f.Connect(testBinding(t, srvB, "secret"))

	bus.Publish("test_event", map[string]any{"some": "data"}, core.OriginLocal)

	expectWireCall(t, receivedA, "/api/events/test_event")
	expectWireCall(t, receivedB, "/api/events/test_event")

	if got := len(f.Targets()); got != 2 {
		t.Errorf("Targets() has %d entries, want 2", got)
	}
}

func TestForwarderDeduplicatesEndpoints(t *testing.T) {
	bus := newLocalPool()
	f := NewForwarder(bus, "", nil)

	srv, received := eventSink(t)
	// Same host:port registered twice, second time with another password.
	f.Connect(testBinding(t, srv, "old-secret"))
	f.Connect(testBinding(t, srv, "new-secret"))

	if got := len(f.Targets()); got != 1 {
		t.Fatalf("Targets() has %d entries, want 1", got)
	}

	bus.Publish("test_event", nil, core.OriginLocal)

	expectWireCall(t, received, "/api/events/test_event")
	expectNoWireCall(t, received)
}

func TestForwarderDisconnectReportsRemoval(t *testing.T) {
	bus := newLocalPool()
	f := NewForwarder(bus, "", nil)

	srv, _ := eventSink(t)
	api := testBinding(t, srv, "secret")

	if f.Disconnect(api) {
		t.Error("Disconnect reported removal of an unregistered target")
	}

	f.Connect(api)
	if !f.Disconnect(api) {
		t.Error("Disconnect did not report removal of a registered target")
	}
	if f.Disconnect(api) {
		t.Error("second Disconnect reported removal again")
	}
}

func TestForwarderGoesQuietAfterLastDisconnect(t *testing.T) {
	bus := newLocalPool()
	f := NewForwarder(bus, "", nil)

	srv, received := eventSink(t)
	api := testBinding(t, srv, "secret")

	f.Connect(api)
	bus.Publish("test_event", nil, core.OriginLocal)
	expectWireCall(t, received, "/api/events/test_event")

	f.Disconnect(api)
	bus.Publish("test_event", nil, core.OriginLocal)
	expectNoWireCall(t, received)

	if got := bus.ListenerCounts()[core.MatchAll]; got != 0 {
		t.Errorf("%d match-all listeners left behind", got)
	}
}

func TestForwarderSkipsTimeTicks(t *testing.T) {
	bus := newLocalPool()
	f := NewForwarder(bus, "", nil)

	srv, received := eventSink(t)
	f.Connect(testBinding(t, srv, "secret"))

	bus.Publish(core.EventTimeChanged, map[string]any{core.AttrNow: time.Now()}, core.OriginLocal)
	bus.Publish("test_event", nil, core.OriginLocal)

	// Only the non-tick event may arrive, and it proves the tick was skipped
	// rather than still queued.
	expectWireCall(t, received, "/api/events/test_event")
	expectNoWireCall(t, received)
}

func TestForwarderRestrictsOrigin(t *testing.T) {
	bus := newLocalPool()
	f := NewForwarder(bus, core.OriginLocal, nil)

	srv, received := eventSink(t)
	f.Connect(testBinding(t, srv, "secret"))

	bus.Publish("test_event", nil, core.OriginRemote)
	bus.Publish("test_event", map[string]any{"pass": true}, core.OriginLocal)

	expectWireCall(t, received, "/api/events/test_event")
	expectNoWireCall(t, received)
}
