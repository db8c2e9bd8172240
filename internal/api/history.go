package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/hearth-core/internal/recorder"
	"github.com/nerrad567/hearth-core/internal/util"
)

// History paging bounds, matching the recorder's own clamp.
const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

var errInvalidLimit = errors.New("invalid limit")

// handleStateHistory returns recorded state changes for one entity, newest
// first. limit bounds the page size; since (RFC3339) drops older entries.
// An entity with no recorded history answers an empty list, not an error.
func (s *Server) handleStateHistory(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid limit.")
		return
	}

	since, err := parseSinceParam(r.URL.Query().Get("since"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid since timestamp.")
		return
	}

	entries, err := s.history.StateHistory(r.Context(), entityID, since, limit)
	if err != nil {
		s.logger.Error("querying state history", "entity_id", entityID, "error", err)
		writeMessage(w, http.StatusInternalServerError, "History query failed.")
		return
	}

	history := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		history = append(history, map[string]any{
			"entity_id":    entry.EntityID,
			"state":        entry.State,
			"attributes":   entry.Attributes,
			"last_changed": util.FormatTimestamp(entry.LastChanged),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entity_id": entityID,
		"history":   history,
		"count":     len(history),
	})
}

// handleEventHistory returns recorded events, newest first. The type query
// parameter filters to one event type.
func (s *Server) handleEventHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid limit.")
		return
	}

	var entries []recorder.EventEntry
	if eventType := r.URL.Query().Get("type"); eventType != "" {
		entries, err = s.history.EventsByType(r.Context(), eventType, limit)
	} else {
		entries, err = s.history.RecentEvents(r.Context(), limit)
	}
	if err != nil {
		s.logger.Error("querying event history", "error", err)
		writeMessage(w, http.StatusInternalServerError, "History query failed.")
		return
	}

	events := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		events = append(events, map[string]any{
			"event_type": entry.EventType,
			"event_data": entry.Data,
			"origin":     string(entry.Origin),
			"time_fired": util.FormatTimestamp(entry.TimeFired),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

// parseHistoryLimit parses the limit query parameter with bounds
// enforcement. Empty means the default page size.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, errInvalidLimit
	}
	if limit > maxHistoryLimit {
		return 0, errInvalidLimit
	}
	return limit, nil
}

// parseSinceParam parses the since query parameter as RFC3339. Empty means
// no lower bound.
func parseSinceParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}
