package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/hearth-core/internal/core"
	"github.com/nerrad567/hearth-core/internal/infrastructure/database"
	"github.com/nerrad567/hearth-core/internal/infrastructure/influxdb"
)

const (
	// defaultQueueSize bounds the listener-to-writer queue. A full queue
	// drops events instead of blocking bus workers.
	defaultQueueSize = 1024

	// writeTimeout caps a single row write.
	writeTimeout = 5 * time.Second

	// purgeTimeout caps one retention sweep.
	purgeTimeout = time.Minute

	// purgeInterval is how often the retention sweep runs after startup.
	purgeInterval = 24 * time.Hour
)

// Deps carries the recorder's dependencies.
type Deps struct {
	// DB is the open recorder database. Required. The schema must be
	// migrated before Start.
	DB *database.DB

	// Bus is the event bus to record. Required.
	Bus core.Bus

	// Logger receives operational logs. Optional.
	Logger core.Logger

	// Influx, when set, receives numeric states and attributes as
	// time-series points. Optional.
	Influx *influxdb.Client

	// PurgeDays is the retention window. Zero disables purging.
	PurgeDays int

	// QueueSize overrides the default listener queue capacity.
	QueueSize int
}

// Recorder is the persistence service. One writer goroutine owns all
// database writes.
type Recorder struct {
	db     *database.DB
	bus    core.Bus
	logger core.Logger
	influx *influxdb.Client

	purgeDays int

	queue chan core.Event
	sub   *core.Subscription
	done  chan struct{}
	wg    sync.WaitGroup

	mu      sync.Mutex
	started bool
	closed  bool
}

// New validates deps and builds a Recorder. Call Start to begin recording.
func New(deps Deps) (*Recorder, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("recorder: database is required")
	}
	if deps.Bus == nil {
		return nil, fmt.Errorf("recorder: bus is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	queueSize := deps.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	return &Recorder{
		db:        deps.DB,
		bus:       deps.Bus,
		logger:    logger,
		influx:    deps.Influx,
		purgeDays: deps.PurgeDays,
		queue:     make(chan core.Event, queueSize),
		done:      make(chan struct{}),
	}, nil
}

// Start runs the initial retention sweep, subscribes to the bus and
// launches the writer goroutine.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return fmt.Errorf("recorder: already started")
	}
	r.started = true
	r.mu.Unlock()

	if r.purgeDays > 0 {
		deleted, err := r.Purge(ctx)
		switch {
		case err != nil:
			r.logger.Warn("initial history purge failed", "error", err)
		case deleted > 0:
			r.logger.Info("purged old history", "rows", deleted, "purge_days", r.purgeDays)
		}
	}

	r.sub = r.bus.Subscribe(core.MatchAll, r.enqueue)
	r.wg.Add(1)
	go r.run()

	r.logger.Info("recorder started", "database", r.db.Path())
	return nil
}

// Close detaches from the bus, drains queued events and stops the writer.
// The database itself is left open; its owner closes it.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if !r.started || r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.bus.Unsubscribe(r.sub)
	close(r.done)
	r.wg.Wait()

	r.logger.Info("recorder stopped")
	return nil
}

// HealthCheck reports whether the backing database answers queries.
func (r *Recorder) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// enqueue is the bus listener. It runs on pool workers and must not block.
func (r *Recorder) enqueue(e core.Event) {
	if e.Type == core.EventTimeChanged {
		// Ticks would dwarf every real event in the table.
		return
	}

	select {
	case r.queue <- e:
	default:
		r.logger.Warn("recorder queue full, dropping event", "event_type", e.Type)
	}
}

// run is the writer loop. All inserts and purges happen here.
func (r *Recorder) run() {
	defer r.wg.Done()

	var purgeC <-chan time.Time
	if r.purgeDays > 0 {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		purgeC = ticker.C
	}

	for {
		select {
		case e := <-r.queue:
			r.record(e)
		case <-purgeC:
			if _, err := r.Purge(context.Background()); err != nil {
				r.logger.Error("scheduled history purge failed", "error", err)
			}
		case <-r.done:
			r.drain()
			return
		}
	}
}

// drain records whatever was queued before shutdown.
func (r *Recorder) drain() {
	for {
		select {
		case e := <-r.queue:
			r.record(e)
		default:
			return
		}
	}
}

// record writes one event row, plus a state row when the event carries a
// usable state change.
func (r *Recorder) record(e core.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	eventID, err := r.insertEvent(ctx, e)
	if err != nil {
		r.logger.Error("recording event", "event_type", e.Type, "error", err)
		return
	}

	entityID, _, newState, ok := core.StateChangeFromEvent(e)
	if !ok {
		return
	}

	if err := r.insertState(ctx, eventID, newState); err != nil {
		r.logger.Error("recording state", "entity_id", entityID, "error", err)
		return
	}

	r.exportNumeric(newState)
}

// insertEvent appends the event row and returns its generated ID.
func (r *Recorder) insertEvent(ctx context.Context, e core.Event) (string, error) {
	data, err := marshalEventData(e.Data)
	if err != nil {
		return "", fmt.Errorf("marshalling event data: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO events (id, event_type, event_data, origin, time_fired, created)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, e.Type, data, string(e.Origin), now, now,
	)
	if err != nil {
		return "", fmt.Errorf("inserting event: %w", err)
	}
	return id, nil
}

// insertState appends a state row linked to the event that produced it.
func (r *Recorder) insertState(ctx context.Context, eventID string, s *core.State) error {
	attributes := s.Attributes
	if attributes == nil {
		attributes = map[string]any{}
	}
	attrJSON, err := json.Marshal(attributes)
	if err != nil {
		return fmt.Errorf("marshalling attributes: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO states (id, entity_id, state, attributes, last_changed, created, event_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		s.EntityID,
		s.State,
		string(attrJSON),
		s.LastChanged.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
		eventID,
	)
	if err != nil {
		return fmt.Errorf("inserting state: %w", err)
	}
	return nil
}

// Purge deletes rows older than the configured retention window and
// returns the number of rows removed. A zero purge_days makes it a no-op.
func (r *Recorder) Purge(ctx context.Context) (int64, error) {
	if r.purgeDays <= 0 {
		return 0, nil
	}

	purgeCtx, cancel := context.WithTimeout(ctx, purgeTimeout)
	defer cancel()

	cutoff := time.Now().UTC().AddDate(0, 0, -r.purgeDays).Format(time.RFC3339)

	states, err := r.db.ExecContext(purgeCtx, "DELETE FROM states WHERE last_changed < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging states: %w", err)
	}
	events, err := r.db.ExecContext(purgeCtx, "DELETE FROM events WHERE time_fired < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging events: %w", err)
	}

	stateRows, _ := states.RowsAffected() //nolint:errcheck // SQLite driver never fails here
	eventRows, _ := events.RowsAffected() //nolint:errcheck // SQLite driver never fails here
	return stateRows + eventRows, nil
}

// marshalEventData renders event data as the stored JSON document.
func marshalEventData(data map[string]any) (string, error) {
	if len(data) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
