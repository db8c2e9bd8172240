package core

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNewStateDefaults(t *testing.T) {
	state := NewState("light.kitchen", "on", nil, time.Time{})

	if state.Attributes == nil || len(state.Attributes) != 0 {
		t.Errorf("nil attributes should become an empty map, got %v", state.Attributes)
	}
	if state.LastChanged.IsZero() {
		t.Error("zero lastChanged should be stamped with the current time")
	}
}

func TestNewStateCopiesNestedAttributes(t *testing.T) {
	nested := map[string]any{"rgb": []any{255, 128, 0}}
	attrs := map[string]any{"color": nested}

	state := NewState("light.kitchen", "on", attrs, time.Time{})
	nested["rgb"] = []any{0, 0, 0}

	rgb := state.Attributes["color"].(map[string]any)["rgb"].([]any)
	if rgb[0] != 255 {
		t.Errorf("nested attribute aliased caller's map: %v", rgb)
	}
}

func TestStateFromMap(t *testing.T) {
	t.Run("complete dict", func(t *testing.T) {
		state := StateFromMap("light.kitchen", map[string]any{
			"state":        "on",
			"attributes":   map[string]any{"brightness": float64(80)},
			"last_changed": "19:10:05 02-01-2026",
		})
		if state == nil {
			t.Fatal("StateFromMap returned nil for a complete dict")
		}
		if state.EntityID != "light.kitchen" || state.State != "on" {
			t.Errorf("got %v", state)
		}
		want := time.Date(2026, time.January, 2, 19, 10, 5, 0, time.UTC)
		if !state.LastChanged.Equal(want) {
			t.Errorf("LastChanged = %v, want %v", state.LastChanged, want)
		}
	})

	t.Run("missing state value", func(t *testing.T) {
		if state := StateFromMap("light.kitchen", map[string]any{"attributes": map[string]any{}}); state != nil {
			t.Errorf("got %v, want nil", state)
		}
	})

	t.Run("nil dict", func(t *testing.T) {
		if state := StateFromMap("light.kitchen", nil); state != nil {
			t.Errorf("got %v, want nil", state)
		}
	})

	t.Run("empty entity id", func(t *testing.T) {
		if state := StateFromMap("", map[string]any{"state": "on"}); state != nil {
			t.Errorf("got %v, want nil", state)
		}
	})

	t.Run("unparseable last_changed falls back to now", func(t *testing.T) {
		state := StateFromMap("light.kitchen", map[string]any{
			"state":        "on",
			"last_changed": "garbage",
		})
		if state == nil || state.LastChanged.IsZero() {
			t.Errorf("got %v, want state with stamped LastChanged", state)
		}
	})
}

func TestStateJSONRoundTrip(t *testing.T) {
	orig := NewState("light.kitchen", "on",
		map[string]any{"brightness": float64(80)},
		time.Date(2026, time.January, 2, 19, 10, 5, 0, time.UTC))

	raw, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var dict map[string]any
	if err := json.Unmarshal(raw, &dict); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, present := dict["entity_id"]; present {
		t.Error("wire dict must not carry entity_id")
	}
	if dict["last_changed"] != "19:10:05 02-01-2026" {
		t.Errorf("last_changed = %v", dict["last_changed"])
	}

	decoded := StateFromMap("light.kitchen", dict)
	if decoded == nil {
		t.Fatal("decode returned nil")
	}
	if decoded.State != orig.State || !decoded.LastChanged.Equal(orig.LastChanged) {
		t.Errorf("round trip mismatch: %v vs %v", decoded, orig)
	}
	if decoded.Attributes["brightness"] != float64(80) {
		t.Errorf("attributes = %v", decoded.Attributes)
	}
}

func TestStateString(t *testing.T) {
	state := NewState("light.kitchen", "on", nil, time.Time{})
	if got := state.String(); !strings.Contains(got, "light.kitchen") || !strings.Contains(got, "on") {
		t.Errorf("String() = %q", got)
	}
}

func TestStateChangeFromEvent(t *testing.T) {
	newState := NewState("light.kitchen", "on", nil, time.Time{})
	oldState := NewState("light.kitchen", "off", nil, time.Time{})

	t.Run("local payload", func(t *testing.T) {
		entityID, old, current, ok := StateChangeFromEvent(Event{
			Type: EventStateChanged,
			Data: map[string]any{
				AttrEntityID: "light.kitchen",
				AttrOldState: oldState,
				AttrNewState: newState,
			},
		})
		if !ok || entityID != "light.kitchen" || old.State != "off" || current.State != "on" {
			t.Errorf("got (%q, %v, %v, %v)", entityID, old, current, ok)
		}
	})

	t.Run("wire payload", func(t *testing.T) {
		entityID, old, current, ok := StateChangeFromEvent(Event{
			Type: EventStateChanged,
			Data: map[string]any{
				AttrEntityID: "light.kitchen",
				AttrNewState: map[string]any{"state": "on"},
			},
		})
		if !ok || entityID != "light.kitchen" || current.State != "on" {
			t.Errorf("got (%q, %v, %v)", entityID, current, ok)
		}
		if old != nil {
			t.Errorf("old = %v, want nil", old)
		}
	})

	t.Run("wrong event type", func(t *testing.T) {
		if _, _, _, ok := StateChangeFromEvent(Event{Type: "time_changed"}); ok {
			t.Error("accepted a non state_changed event")
		}
	})

	t.Run("unusable new_state", func(t *testing.T) {
		_, _, _, ok := StateChangeFromEvent(Event{
			Type: EventStateChanged,
			Data: map[string]any{AttrEntityID: "light.kitchen", AttrNewState: "on"},
		})
		if ok {
			t.Error("accepted a string new_state")
		}
	})
}
