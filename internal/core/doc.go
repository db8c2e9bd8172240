// Package core implements the synchronisation heart of Hearth: the event
// bus, the state store, the service registry and the hub aggregate that
// ties them to a worker pool.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────┐
//	│                              Hub                                  │
//	│                                                                   │
//	│  ┌────────────┐   ┌─────────────┐   ┌─────────────────┐          │
//	│  │  EventBus  │◀──│    Store    │   │ ServiceRegistry │          │
//	│  │  (bus.go)  │   │ (store.go)  │   │  (service.go)   │          │
//	│  │            │   │             │   │                 │          │
//	│  │ • publish  │   │ • entity →  │   │ • domain.service│          │
//	│  │ • subscribe│   │   State map │   │   handlers      │          │
//	│  │ • listener │   │ • immutable │   │ • call_service  │          │
//	│  │   fan-out  │   │   snapshots │   │   listener      │          │
//	│  └─────┬──────┘   └─────────────┘   └─────────────────┘          │
//	│        │ one job per listener                                     │
//	│        ▼                                                          │
//	│  ┌────────────┐   ┌─────────────┐                                 │
//	│  │ pool.Pool  │   │   Ticker    │── time_changed every interval   │
//	│  │ (workers)  │   │ (ticker.go) │                                 │
//	│  └────────────┘   └─────────────┘                                 │
//	└──────────────────────────────────────────────────────────────────┘
//
// # Event flow
//
// Publishing an event resolves the listeners registered for its exact type
// plus the MatchAll wildcard and submits one pool job per listener. Dispatch
// is asynchronous and fire-and-forget: publishers never learn whether a
// listener ran, and a panicking listener is recovered by the pool's job
// handler without disturbing its siblings.
//
// Setting a state stores an immutable State snapshot and publishes exactly
// one state_changed event carrying the entity ID, the previous state (absent
// on first sight of an entity) and the new state.
//
// Service handlers are invoked indirectly: Call publishes a reserved
// call_service event and a single registry listener resolves and runs the
// handler on the worker that picked the job up. Unknown services are
// dropped.
//
// # Local and remote variants
//
// Bus and StateStore are interfaces. This package provides the
// process-local implementations; package remote provides variants backed by
// a peer hub's HTTP API. Callers hold the interfaces, so code written
// against a local hub runs unchanged against a remote-backed one.
//
// # Thread safety
//
// All types in this package are safe for concurrent use. Event data and
// State attributes must be treated as read-only once handed to the bus or
// store.
package core
