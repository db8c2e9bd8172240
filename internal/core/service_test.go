package core

import (
	"reflect"
	"testing"
	"time"
)

func newTestRegistry() (*ServiceRegistry, *EventBus) {
	bus := newTestBus()
	return NewServiceRegistry(bus, nil), bus
}

func TestRegisterAndCall(t *testing.T) {
	registry, _ := newTestRegistry()
	got := make(chan ServiceCall, 1)
	registry.Register("light", "turn_on", func(call ServiceCall) { got <- call })

	registry.Call("light", "turn_on", map[string]any{"entity_id": "light.kitchen"})

	select {
	case call := <-got:
		if call.Domain != "light" || call.Service != "turn_on" {
			t.Errorf("call routed as %s.%s", call.Domain, call.Service)
		}
		if call.Data["entity_id"] != "light.kitchen" {
			t.Errorf("call data = %v", call.Data)
		}
		// The routing attributes are stripped before the handler sees the data.
		if _, present := call.Data[AttrDomain]; present {
			t.Error("domain leaked into handler data")
		}
		if _, present := call.Data[AttrService]; present {
			t.Error("service leaked into handler data")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler never ran")
	}
}

func TestCallUnknownServiceIsDropped(t *testing.T) {
	registry, _ := newTestRegistry()
	got := make(chan ServiceCall, 1)
	registry.Register("light", "turn_on", func(call ServiceCall) { got <- call })

	registry.Call("light", "no_such_service", nil)
	registry.Call("no_such_domain", "turn_on", nil)

	select {
	case call := <-got:
		t.Fatalf("unexpected handler run: %s.%s", call.Domain, call.Service)
	case <-time.After(100 * time.Millisecond):
	}

	// The registry must still be healthy afterwards.
	registry.Call("light", "turn_on", nil)
	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("known service no longer runs")
	}
}

func TestRegisterReplacesHandler(t *testing.T) {
	registry, _ := newTestRegistry()
	got := make(chan string, 1)
	registry.Register("light", "turn_on", func(ServiceCall) { got <- "first" })
	registry.Register("light", "turn_on", func(ServiceCall) { got <- "second" })

	registry.Call("light", "turn_on", nil)

	select {
	case name := <-got:
		if name != "second" {
			t.Errorf("handler %q ran, want %q", name, "second")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler never ran")
	}
}

func TestServicesListing(t *testing.T) {
	registry, _ := newTestRegistry()
	registry.Register("light", "turn_on", func(ServiceCall) {})
	registry.Register("light", "turn_off", func(ServiceCall) {})
	registry.Register("switch", "toggle", func(ServiceCall) {})

	got := registry.Services()
	want := map[string][]string{
		"light":  {"turn_off", "turn_on"},
		"switch": {"toggle"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Services() = %v, want %v", got, want)
	}

	if !registry.HasService("light", "turn_on") {
		t.Error("HasService(light.turn_on) = false")
	}
	if registry.HasService("light", "explode") {
		t.Error("HasService(light.explode) = true")
	}
}

func TestCallArrivesViaBusEvent(t *testing.T) {
	registry, bus := newTestRegistry()
	got := make(chan Event, 1)
	bus.Subscribe(EventCallService, func(e Event) { got <- e })

	registry.Call("light", "turn_on", map[string]any{"brightness": 80})

	e := expectEvent(t, got)
	if e.Data[AttrDomain] != "light" || e.Data[AttrService] != "turn_on" {
		t.Errorf("event data = %v", e.Data)
	}
	if e.Data["brightness"] != 80 {
		t.Errorf("caller data missing from event: %v", e.Data)
	}
}
