package core

import (
	"time"

	"github.com/nerrad567/hearth-core/internal/pool"
)

// DefaultWorkerCount is the pool size of a hub when none is configured.
const DefaultWorkerCount = 4

// Hub aggregates the bus, state store, service registry and worker pool
// that make up one Hearth instance. The Bus and States fields hold
// interfaces: a hub assembled by package remote carries peer-backed
// implementations behind the same surface.
type Hub struct {
	Bus      Bus
	States   StateStore
	Services *ServiceRegistry
	Pool     *pool.Pool

	// LifecycleOrigin stamps the hearth_start and hearth_stop events. A
	// remote-backed hub sets OriginRemote so its own lifecycle dispatches
	// locally instead of being pushed to the peer.
	LifecycleOrigin Origin

	logger Logger
	ticker *Ticker
}

// New builds a hub with local bus and store implementations. workerCount
// and tickInterval fall back to the defaults when non-positive.
func New(workerCount int, tickInterval time.Duration, logger Logger) *Hub {
	if logger == nil {
		logger = noopLogger{}
	}
	if workerCount < 1 {
		workerCount = DefaultWorkerCount
	}

	p := NewWorkerPool(workerCount, logger)
	bus := NewEventBus(p, logger)
	states := NewStore(bus, logger)
	services := NewServiceRegistry(bus, logger)

	return Assemble(bus, states, services, p, tickInterval, logger)
}

// Assemble wires explicit component implementations into a hub. Package
// remote uses it to substitute peer-backed bus and store variants.
func Assemble(bus Bus, states StateStore, services *ServiceRegistry, p *pool.Pool, tickInterval time.Duration, logger Logger) *Hub {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Hub{
		Bus:             bus,
		States:          states,
		Services:        services,
		Pool:            p,
		LifecycleOrigin: OriginLocal,
		logger:          logger,
		ticker:          NewTicker(bus, tickInterval, logger),
	}
}

// Start announces the hub on the bus and begins ticking.
func (h *Hub) Start() {
	h.logger.Info("hub starting")
	h.Bus.Publish(EventHearthStart, nil, h.lifecycleOrigin())
	h.ticker.Start()
}

// Stop halts the ticker and announces shutdown. The worker pool keeps
// draining; queued jobs run to completion as the process winds down.
func (h *Hub) Stop() {
	h.ticker.Stop()
	h.Bus.Publish(EventHearthStop, nil, h.lifecycleOrigin())
	h.logger.Info("hub stopped")
}

func (h *Hub) lifecycleOrigin() Origin {
	if h.LifecycleOrigin == "" {
		return OriginLocal
	}
	return h.LifecycleOrigin
}

// NewWorkerPool builds the worker pool used by hubs: payloads run with panic
// isolation and backlog warnings are logged together with the jobs holding
// the workers.
func NewWorkerPool(workerCount int, logger Logger) *pool.Pool {
	if logger == nil {
		logger = noopLogger{}
	}

	handler := func(job pool.Job) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("worker job panicked", "priority", job.Priority.String(), "panic", r)
			}
		}()
		job.Payload()
	}

	busy := func(running []pool.RunningJob, pending int) {
		logger.Warn("worker pool saturated", "running", len(running), "pending", pending)
		for _, job := range running {
			logger.Warn("worker pool job still running",
				"priority", job.Priority.String(),
				"since", job.Started.UTC().Format(time.RFC3339))
		}
	}

	return pool.New(workerCount, handler, busy)
}
