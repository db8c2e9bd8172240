package remote

import (
	"context"
	"sort"
	"sync"

	"github.com/nerrad567/hearth-core/internal/core"
)

// StateStore is the peer-backed core.StateStore. Reads serve from a local
// cache of the peer's entities: Mirror loads it in bulk and incoming
// state_changed events of remote origin keep it current. Writes go straight
// to the peer's API and deliberately never touch the cache; the
// authoritative change arrives back as an event, so the cache has exactly
// one update path.
type StateStore struct {
	api    *Binding
	logger core.Logger

	mu     sync.RWMutex
	states map[string]*core.State
}

// NewStateStore creates a peer-backed store, mirrors the peer once and
// subscribes to state_changed events on bus for incremental updates.
func NewStateStore(bus core.Bus, api *Binding, logger core.Logger) *StateStore {
	s := &StateStore{
		api:    api,
		logger: orNoop(logger),
		states: make(map[string]*core.State),
	}
	s.Mirror()
	bus.Subscribe(core.EventStateChanged, s.stateChangedListener)
	return s
}

// Mirror discards the cache and repopulates it with one bulk read of the
// peer. A failed read leaves an empty cache rather than a stale or partial
// one.
func (s *StateStore) Mirror() {
	states, err := GetStates(context.Background(), s.api)
	if err != nil {
		s.logger.Error("mirroring peer states", "target", s.api.Addr(), "error", err.Error())
	}

	s.mu.Lock()
	s.states = states
	s.mu.Unlock()

	s.logger.Debug("mirrored peer states", "count", len(states))
}

// Get returns the cached state of an entity.
func (s *StateStore) Get(entityID string) (*core.State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[entityID]
	return state, ok
}

// All returns a point-in-time copy of the cached entity map.
func (s *StateStore) All() map[string]*core.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	states := make(map[string]*core.State, len(s.states))
	for id, state := range s.states {
		states[id] = state
	}
	return states
}

// EntityIDs returns the cached entity IDs, sorted.
func (s *StateStore) EntityIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.states))
	for id := range s.states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Set writes through to the peer. Failures are logged and dropped; callers
// observe the change only once the peer's state_changed event arrives.
func (s *StateStore) Set(entityID, newState string, attributes map[string]any) {
	if err := SetState(context.Background(), s.api, entityID, newState, attributes); err != nil {
		s.logger.Error("setting peer state",
			"entity_id", entityID, "target", s.api.Addr(), "error", err.Error())
	}
}

// stateChangedListener applies remote state changes to the cache. The
// payload arrives as wire dicts; undecodable ones are dropped.
func (s *StateStore) stateChangedListener(e core.Event) {
	if e.Origin != core.OriginRemote {
		return
	}
	entityID, _, newState, ok := core.StateChangeFromEvent(e)
	if !ok {
		return
	}

	s.mu.Lock()
	s.states[entityID] = newState
	s.mu.Unlock()
}
