package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/hearth-core/internal/core"
)

const (
	defaultQueryLimit = 50
	maxQueryLimit     = 200
)

// EventEntry is one recorded event.
type EventEntry struct {
	ID        string
	EventType string
	Data      map[string]any
	Origin    core.Origin
	TimeFired time.Time
}

// StateEntry is one recorded state change.
type StateEntry struct {
	ID          string
	EntityID    string
	State       string
	Attributes  map[string]any
	LastChanged time.Time
	EventID     string
}

// RecentEvents returns the newest recorded events, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []EventEntry: Events ordered by time_fired DESC
//   - error: nil on success, otherwise the underlying query error
func (r *Recorder) RecentEvents(ctx context.Context, limit int) ([]EventEntry, error) {
	return r.queryEvents(ctx,
		`SELECT id, event_type, event_data, origin, time_fired
		 FROM events
		 ORDER BY time_fired DESC, id
		 LIMIT ?`,
		clampLimit(limit),
	)
}

// EventsByType returns the newest recorded events of one type, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - eventType: Event type to filter on
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []EventEntry: Matching events ordered by time_fired DESC
//   - error: nil on success, otherwise the underlying query error
func (r *Recorder) EventsByType(ctx context.Context, eventType string, limit int) ([]EventEntry, error) {
	if eventType == "" {
		return nil, fmt.Errorf("event type is required")
	}
	return r.queryEvents(ctx,
		`SELECT id, event_type, event_data, origin, time_fired
		 FROM events
		 WHERE event_type = ?
		 ORDER BY time_fired DESC, id
		 LIMIT ?`,
		eventType, clampLimit(limit),
	)
}

// StateHistory returns recorded state changes for an entity, newest first.
// A zero since means no lower bound.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - entityID: Entity to look up
//   - since: Oldest change to include (zero for unbounded)
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []StateEntry: Changes ordered by last_changed DESC
//   - error: nil on success, otherwise the underlying query error
func (r *Recorder) StateHistory(ctx context.Context, entityID string, since time.Time, limit int) ([]StateEntry, error) {
	if entityID == "" {
		return nil, fmt.Errorf("entity id is required")
	}

	query := `SELECT id, entity_id, state, attributes, last_changed, event_id
	          FROM states
	          WHERE entity_id = ?`
	args := []any{entityID}
	if !since.IsZero() {
		query += " AND last_changed >= ?"
		args = append(args, since.UTC().Format(time.RFC3339))
	}
	query += " ORDER BY last_changed DESC, id LIMIT ?"
	args = append(args, clampLimit(limit))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying state history: %w", err)
	}
	defer rows.Close()

	var entries []StateEntry
	for rows.Next() {
		var entry StateEntry
		var attrJSON, lastChanged string
		var eventID sql.NullString

		if err := rows.Scan(&entry.ID, &entry.EntityID, &entry.State, &attrJSON, &lastChanged, &eventID); err != nil {
			return nil, fmt.Errorf("scanning state row: %w", err)
		}
		if err := json.Unmarshal([]byte(attrJSON), &entry.Attributes); err != nil {
			return nil, fmt.Errorf("unmarshalling attributes: %w", err)
		}
		entry.LastChanged, err = parseStoredTimestamp(lastChanged)
		if err != nil {
			return nil, err
		}
		entry.EventID = eventID.String

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating state history: %w", err)
	}
	return entries, nil
}

// EventCount returns the number of recorded events.
func (r *Recorder) EventCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&count)
	return count, err
}

// StateCount returns the number of recorded state changes.
func (r *Recorder) StateCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM states").Scan(&count)
	return count, err
}

// queryEvents runs an event query and decodes the rows.
func (r *Recorder) queryEvents(ctx context.Context, query string, args ...any) ([]EventEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var entries []EventEntry
	for rows.Next() {
		var entry EventEntry
		var dataJSON, origin, timeFired string

		if err := rows.Scan(&entry.ID, &entry.EventType, &dataJSON, &origin, &timeFired); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		if err := json.Unmarshal([]byte(dataJSON), &entry.Data); err != nil {
			return nil, fmt.Errorf("unmarshalling event data: %w", err)
		}
		entry.Origin = core.Origin(origin)
		entry.TimeFired, err = parseStoredTimestamp(timeFired)
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return entries, nil
}

// clampLimit applies the default and ceiling to a row limit.
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultQueryLimit
	}
	if limit > maxQueryLimit {
		return maxQueryLimit
	}
	return limit
}

// parseStoredTimestamp parses an RFC 3339 timestamp written by the recorder.
func parseStoredTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored timestamp: %w", err)
	}
	return t, nil
}
