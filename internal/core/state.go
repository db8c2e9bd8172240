package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/hearth-core/internal/util"
)

// State is an immutable snapshot of one entity. Attributes are deep-copied
// at construction so no two State values ever share a map; treat the fields
// as read-only.
type State struct {
	EntityID    string
	State       string
	Attributes  map[string]any
	LastChanged time.Time
}

// NewState builds a State. A nil attributes map becomes an empty one and a
// zero lastChanged is stamped with the current time.
func NewState(entityID, state string, attributes map[string]any, lastChanged time.Time) *State {
	if lastChanged.IsZero() {
		lastChanged = time.Now().UTC()
	}
	return &State{
		EntityID:    entityID,
		State:       state,
		Attributes:  copyAttributes(attributes),
		LastChanged: lastChanged,
	}
}

// StateFromMap builds a State from a decoded wire dict
// ({state, attributes, last_changed}). Returns nil when the dict has no
// usable state value; a missing or unparseable last_changed falls back to
// the current time.
func StateFromMap(entityID string, raw map[string]any) *State {
	if entityID == "" || raw == nil {
		return nil
	}

	value, ok := raw["state"].(string)
	if !ok {
		return nil
	}

	attributes, _ := raw["attributes"].(map[string]any)

	var lastChanged time.Time
	if s, ok := raw["last_changed"].(string); ok {
		if t, err := util.ParseTimestamp(s); err == nil {
			lastChanged = t
		}
	}

	return NewState(entityID, value, attributes, lastChanged)
}

// String implements fmt.Stringer for log lines.
func (s *State) String() string {
	return fmt.Sprintf("<state %s=%s @ %s>", s.EntityID, s.State, util.FormatTimestamp(s.LastChanged))
}

// wireState is the JSON shape states take on the wire. The entity ID is
// deliberately absent: it always travels beside the dict, as a map key, a
// URL path segment or an entity_id event attribute.
type wireState struct {
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged string         `json:"last_changed"`
}

// MarshalJSON renders the state as its wire dict.
func (s *State) MarshalJSON() ([]byte, error) {
	attributes := s.Attributes
	if attributes == nil {
		attributes = map[string]any{}
	}
	return json.Marshal(wireState{
		State:       s.State,
		Attributes:  attributes,
		LastChanged: util.FormatTimestamp(s.LastChanged),
	})
}

// copyAttributes deep-copies an attribute map. Nested maps and slices are
// what JSON decoding produces, so those are the shapes copied structurally;
// scalar values are immutable and copied by value.
func copyAttributes(attributes map[string]any) map[string]any {
	copied := make(map[string]any, len(attributes))
	for k, v := range attributes {
		copied[k] = copyValue(v)
	}
	return copied
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyAttributes(val)
	case []any:
		copied := make([]any, len(val))
		for i, item := range val {
			copied[i] = copyValue(item)
		}
		return copied
	default:
		return val
	}
}
