package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/hearth-core/internal/core"
)

// NewHub assembles a core.Hub whose bus and store are backed by the peer
// behind api: reads serve from a mirrored cache, writes and local events go
// up the wire. Code written against a local hub runs unchanged on the
// returned one.
//
// localAPI optionally names this process's own HTTP API. When given, the
// peer is asked to forward its events back to it, which is what keeps the
// mirrored state cache current; without it the hub still works but only
// sees the peer's state as of the initial mirror.
//
// Validation of api is mandatory and failure is fatal: a hub half-built on
// an unreachable or rejecting peer would dispatch into nothing.
func NewHub(api, localAPI *Binding, workerCount int, tickInterval time.Duration, logger core.Logger) (*core.Hub, error) {
	logger = orNoop(logger)

	if !api.Validate(false) {
		return nil, fmt.Errorf("%w: %s (%s)", ErrBindingInvalid, api.Status(), api.Addr())
	}

	if workerCount < 1 {
		workerCount = core.DefaultWorkerCount
	}

	p := core.NewWorkerPool(workerCount, logger)
	bus := NewEventBus(api, p, logger)
	states := NewStateStore(bus, api, logger)
	services := core.NewServiceRegistry(bus, logger)

	hub := core.Assemble(bus, states, services, p, tickInterval, logger)
	// Lifecycle events describe this process, not the peer. Fired with
	// remote origin they dispatch locally instead of going up the wire.
	hub.LifecycleOrigin = core.OriginRemote

	if localAPI != nil {
		if err := ConnectForwarding(context.Background(), api, localAPI); err != nil {
			logger.Error("connecting peer event forwarding",
				"peer", api.Addr(), "local", localAPI.Addr(), "error", err.Error())
		} else {
			logger.Info("peer forwards events to local api",
				"peer", api.Addr(), "local", localAPI.Addr())
		}
	}

	return hub, nil
}
