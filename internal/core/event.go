package core

import "time"

// Origin describes where an event entered the system: fired by this process
// or received from a peer hub over a transport.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

// MatchAll subscribes a listener to every event type. It is also accepted by
// the state filters of Hub.TrackStateChange.
const MatchAll = "*"

// Reserved event types.
const (
	// EventStateChanged is published by the state store on every set.
	EventStateChanged = "state_changed"

	// EventTimeChanged is published by the ticker. Time ticks never cross
	// process boundaries: neither the event forwarder nor a remote bus
	// pushes them to a peer.
	EventTimeChanged = "time_changed"

	// EventCallService routes service invocations to the registry.
	EventCallService = "call_service"

	// EventHearthStart and EventHearthStop mark hub lifecycle.
	EventHearthStart = "hearth_start"
	EventHearthStop  = "hearth_stop"
)

// Data keys used by the reserved events.
const (
	AttrEntityID = "entity_id"
	AttrOldState = "old_state"
	AttrNewState = "new_state"
	AttrDomain   = "domain"
	AttrService  = "service"
	AttrNow      = "now"
)

// Event is a typed message on the bus. Data is shared between all listeners
// of the event and must not be mutated after publishing.
type Event struct {
	Type   string
	Data   map[string]any
	Origin Origin
}

// Listener receives events from the bus on a worker goroutine.
type Listener func(e Event)

// eventNow extracts the timestamp carried by a time_changed event.
func eventNow(e Event) (time.Time, bool) {
	now, ok := e.Data[AttrNow].(time.Time)
	return now, ok
}

// StateChangeFromEvent unpacks a state_changed event. It accepts both local
// payloads carrying *State values and payloads decoded from the wire, where
// the states arrive as plain maps. oldState is nil on an entity's first
// change; ok is false when the payload is not a usable state change.
func StateChangeFromEvent(e Event) (entityID string, oldState, newState *State, ok bool) {
	if e.Type != EventStateChanged {
		return "", nil, nil, false
	}
	entityID, _ = e.Data[AttrEntityID].(string)
	if entityID == "" {
		return "", nil, nil, false
	}
	newState = stateFromEventValue(entityID, e.Data[AttrNewState])
	if newState == nil {
		return "", nil, nil, false
	}
	oldState = stateFromEventValue(entityID, e.Data[AttrOldState])
	return entityID, oldState, newState, true
}

func stateFromEventValue(entityID string, v any) *State {
	switch s := v.(type) {
	case *State:
		return s
	case map[string]any:
		return StateFromMap(entityID, s)
	default:
		return nil
	}
}
