package remote

import (
	"context"
	"sort"
	"sync"

	"github.com/nerrad567/hearth-core/internal/core"
)

// Forwarder replays local bus events to registered peer APIs. It is the
// server-side machinery behind POST /api/event_forwarding.
//
// Targets are keyed by host:port, so re-registering an endpoint overwrites
// the previous binding instead of duplicating deliveries. The bus listener
// only exists while at least one target is registered; an idle forwarder
// costs nothing per event.
type Forwarder struct {
	bus core.Bus

	// restrictOrigin, when set, limits forwarding to events of that origin.
	// A chain of hubs uses OriginLocal here to stop events ping-ponging.
	restrictOrigin core.Origin

	logger core.Logger

	mu      sync.Mutex
	targets map[string]*Binding
	sub     *core.Subscription
}

// NewForwarder creates a forwarder replaying events from bus. Pass a
// non-empty restrictOrigin to forward only events of that origin.
func NewForwarder(bus core.Bus, restrictOrigin core.Origin, logger core.Logger) *Forwarder {
	return &Forwarder{
		bus:            bus,
		restrictOrigin: restrictOrigin,
		logger:         orNoop(logger),
		targets:        make(map[string]*Binding),
	}
}

// Connect registers api to receive every future non-tick event. The first
// target installs the match-all bus listener; registering an endpoint that
// is already present replaces its binding.
func (f *Forwarder) Connect(api *Binding) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.targets) == 0 {
		f.sub = f.bus.Subscribe(core.MatchAll, f.eventListener)
	}
	f.targets[api.Addr()] = api
	f.logger.Info("event forwarding connected", "target", api.Addr())
}

// Disconnect removes api from the target set and reports whether it was
// registered. Removing the last target also removes the bus listener.
func (f *Forwarder) Disconnect(api *Binding) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := api.Addr()
	_, registered := f.targets[key]
	if registered {
		delete(f.targets, key)
		f.logger.Info("event forwarding disconnected", "target", key)
	}

	if len(f.targets) == 0 && f.sub != nil {
		f.bus.Unsubscribe(f.sub)
		f.sub = nil
	}
	return registered
}

// Targets returns the registered endpoints, sorted. Intended for logs and
// diagnostics.
func (f *Forwarder) Targets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	targets := make([]string, 0, len(f.targets))
	for key := range f.targets {
		targets = append(targets, key)
	}
	sort.Strings(targets)
	return targets
}

// eventListener replays one event to every target. It holds the same mutex
// as Connect and Disconnect for the whole broadcast, so the target set
// cannot change mid-replay; a slow peer therefore also delays concurrent
// (de)registrations, bounded by the binding timeout per target.
func (f *Forwarder) eventListener(e core.Event) {
	if e.Type == core.EventTimeChanged {
		return
	}
	if f.restrictOrigin != "" && e.Origin != f.restrictOrigin {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, api := range f.targets {
		if err := FireEvent(context.Background(), api, e.Type, e.Data); err != nil {
			f.logger.Error("forwarding event",
				"target", api.Addr(), "event_type", e.Type, "error", err.Error())
		}
	}
}
