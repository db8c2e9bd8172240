package recorder

import (
	"strconv"
	"strings"

	"github.com/nerrad567/hearth-core/internal/core"
)

// exportNumeric ships the numeric parts of a state change to InfluxDB.
// Non-numeric states and attributes are simply not series material.
func (r *Recorder) exportNumeric(s *core.State) {
	if r.influx == nil {
		return
	}

	if v, ok := parseNumericState(s.State); ok {
		r.influx.WriteStateValue(s.EntityID, v, s.LastChanged)
	}

	for name, raw := range s.Attributes {
		if v, ok := numericAttribute(raw); ok {
			r.influx.WriteAttributeValue(s.EntityID, name, v, s.LastChanged)
		}
	}
}

// parseNumericState interprets a state string as a float.
func parseNumericState(state string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(state), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// numericAttribute unwraps the numeric types an attribute map can carry:
// float64 from JSON decoding, Go integer types from local publishers.
func numericAttribute(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
