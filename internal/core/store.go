package core

import (
	"sort"
	"sync"
	"time"
)

// StateStore is the entity state surface shared by the local store and its
// remote-backed variant.
type StateStore interface {
	// Get returns the current state of an entity.
	Get(entityID string) (*State, bool)

	// All returns a point-in-time copy of the entity map. Mutating the
	// returned map does not affect the store.
	All() map[string]*State

	// Set records a new state for an entity, creating it on first sight.
	// The local implementation publishes exactly one state_changed event
	// per call; the remote one writes through to the peer and reports
	// nothing back.
	Set(entityID, newState string, attributes map[string]any)

	// EntityIDs returns the known entity IDs, sorted.
	EntityIDs() []string
}

// IsState reports whether the store currently holds entityID with the given
// state value. Unknown entities report false.
func IsState(store StateStore, entityID, state string) bool {
	current, ok := store.Get(entityID)
	return ok && current.State == state
}

// Store is the process-local StateStore. Every Set swaps in a fresh
// immutable State and publishes state_changed, even when the value did not
// change; listeners decide for themselves whether a transition matters.
type Store struct {
	bus    Bus
	logger Logger

	mu     sync.RWMutex
	states map[string]*State
}

// NewStore creates a local state store publishing changes on bus.
func NewStore(bus Bus, logger Logger) *Store {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Store{
		bus:    bus,
		logger: logger,
		states: make(map[string]*State),
	}
}

// Get returns the current state of an entity.
func (s *Store) Get(entityID string) (*State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[entityID]
	return state, ok
}

// All returns a point-in-time copy of the entity map.
func (s *Store) All() map[string]*State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	states := make(map[string]*State, len(s.states))
	for id, state := range s.states {
		states[id] = state
	}
	return states
}

// EntityIDs returns the known entity IDs, sorted.
func (s *Store) EntityIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.states))
	for id := range s.states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Set records a new state and publishes state_changed {entity_id,
// old_state, new_state}. old_state is omitted from the payload on an
// entity's first set. The set is visible to Get before the event is
// published.
func (s *Store) Set(entityID, newState string, attributes map[string]any) {
	state := NewState(entityID, newState, attributes, time.Time{})

	s.mu.Lock()
	old := s.states[entityID]
	s.states[entityID] = state
	s.mu.Unlock()

	s.logger.Debug("state set", "entity_id", entityID, "state", newState)

	data := map[string]any{
		AttrEntityID: entityID,
		AttrNewState: state,
	}
	if old != nil {
		data[AttrOldState] = old
	}
	s.bus.Publish(EventStateChanged, data, OriginLocal)
}
