// Package recorder persists the hub's event stream to SQLite.
//
// A match-all bus listener feeds every event except time ticks into a
// single writer goroutine, which appends one row per event and, for
// state_changed events, one row per new state. Bus workers never touch
// the disk: the listener only enqueues, and when the queue is full the
// event is dropped with a warning rather than stalling the pool.
//
// The recorder is an observer. It never publishes, never mutates state,
// and losing it costs history, not behaviour.
//
// When an InfluxDB client is attached, numeric states and numeric
// attributes are additionally exported as time-series points. SQLite
// remains the source of truth; InfluxDB is a sink.
//
// Retention is driven by purge_days: rows older than the cutoff are
// deleted at startup and then daily.
package recorder
