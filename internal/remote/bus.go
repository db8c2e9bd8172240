package remote

import (
	"context"

	"github.com/nerrad567/hearth-core/internal/core"
	"github.com/nerrad567/hearth-core/internal/pool"
)

// EventBus is the peer-backed core.Bus. Events published locally are pushed
// to the peer hub instead of dispatched here; the peer re-fires them with
// remote origin, and whatever comes back over the forwarding link (or is of
// remote origin for any other reason) fans out to local listeners as usual.
// Time ticks always stay local.
type EventBus struct {
	*core.EventBus

	api    *Binding
	logger core.Logger
}

// NewEventBus creates a bus that pushes local events to the peer behind api.
func NewEventBus(api *Binding, p *pool.Pool, logger core.Logger) *EventBus {
	return &EventBus{
		EventBus: core.NewEventBus(p, logger),
		api:      api,
		logger:   orNoop(logger),
	}
}

// Publish routes an event: local non-tick events go up the wire,
// everything else dispatches to local listeners. Wire failures are logged
// and dropped; publishing stays fire-and-forget either way.
func (b *EventBus) Publish(eventType string, data map[string]any, origin core.Origin) {
	if origin == core.OriginLocal && eventType != core.EventTimeChanged {
		if err := FireEvent(context.Background(), b.api, eventType, data); err != nil {
			b.logger.Error("pushing event to peer",
				"event_type", eventType, "target", b.api.Addr(), "error", err.Error())
		}
		return
	}
	b.EventBus.Publish(eventType, data, origin)
}
