package core

import (
	"sync"

	"github.com/nerrad567/hearth-core/internal/pool"
)

// Bus is the pub/sub surface shared by the local event bus and its
// remote-backed variant. Callers depend on this interface so a hub can swap
// implementations without touching listener code.
type Bus interface {
	// Publish fires an event to all matching listeners and returns
	// immediately. Listeners run asynchronously on pool workers.
	Publish(eventType string, data map[string]any, origin Origin)

	// Subscribe registers a listener for eventType, or for every event when
	// eventType is MatchAll. The returned handle identifies the registration
	// for Unsubscribe.
	Subscribe(eventType string, listener Listener) *Subscription

	// Unsubscribe removes a previously registered listener. It is a no-op
	// for nil or already removed subscriptions.
	Unsubscribe(sub *Subscription)

	// ListenerCounts reports the number of listeners per event type,
	// including MatchAll under its own key.
	ListenerCounts() map[string]int
}

// Subscription identifies a bus listener registration. Listener functions
// are not comparable in Go, so removal goes through this handle instead of
// the function value.
type Subscription struct {
	eventType string
	id        uint64
}

// EventType returns the event type the subscription was registered for.
func (s *Subscription) EventType() string {
	return s.eventType
}

type listenerEntry struct {
	id uint64
	fn Listener
}

// EventBus is the process-local Bus implementation. Listeners are kept in
// registration order per event type; dispatch submits one worker job per
// listener, so equal-priority listeners of a single event run in the order
// they subscribed.
type EventBus struct {
	pool   *pool.Pool
	logger Logger

	mu        sync.RWMutex
	listeners map[string][]listenerEntry
	nextID    uint64
}

// NewEventBus creates a local event bus dispatching through p.
func NewEventBus(p *pool.Pool, logger Logger) *EventBus {
	if logger == nil {
		logger = noopLogger{}
	}
	return &EventBus{
		pool:      p,
		logger:    logger,
		listeners: make(map[string][]listenerEntry),
	}
}

// Publish fires an event to every listener registered for its exact type
// plus all MatchAll listeners. The call never blocks on listener execution
// and reports nothing back; a panicking listener is contained by the pool's
// job handler.
func (b *EventBus) Publish(eventType string, data map[string]any, origin Origin) {
	if eventType != EventTimeChanged {
		// Ticks are far too chatty to log; everything else is useful noise.
		b.logger.Debug("handling event", "event_type", eventType, "origin", string(origin))
	}

	// Snapshot under the read lock: listeners may unsubscribe themselves
	// while their dispatch is still queued.
	b.mu.RLock()
	matched := b.listeners[MatchAll]
	exact := b.listeners[eventType]
	entries := make([]listenerEntry, 0, len(matched)+len(exact))
	entries = append(entries, matched...)
	entries = append(entries, exact...)
	b.mu.RUnlock()

	if len(entries) == 0 {
		return
	}

	event := Event{Type: eventType, Data: data, Origin: origin}
	priority := priorityFor(eventType)
	for _, entry := range entries {
		fn := entry.fn
		b.pool.Submit(priority, func() { fn(event) })
	}
}

// Subscribe registers a listener and returns its removal handle.
func (b *EventBus) Subscribe(eventType string, listener Listener) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addLocked(eventType, listener)
}

// ListenOnce registers a listener that removes itself after its first event.
func (b *EventBus) ListenOnce(eventType string, listener Listener) *Subscription {
	var once sync.Once

	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{eventType: eventType}
	b.nextID++
	sub.id = b.nextID
	b.listeners[eventType] = append(b.listeners[eventType], listenerEntry{
		id: sub.id,
		fn: func(e Event) {
			once.Do(func() {
				b.Unsubscribe(sub)
				listener(e)
			})
		},
	})
	return sub
}

// addLocked appends a listener entry. Caller must hold b.mu.
func (b *EventBus) addLocked(eventType string, listener Listener) *Subscription {
	b.nextID++
	sub := &Subscription{eventType: eventType, id: b.nextID}
	b.listeners[eventType] = append(b.listeners[eventType], listenerEntry{id: sub.id, fn: listener})
	return sub
}

// Unsubscribe removes the listener identified by sub. Safe to call from
// inside the listener itself and idempotent for unknown handles.
func (b *EventBus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.listeners[sub.eventType]
	for i, entry := range entries {
		if entry.id != sub.id {
			continue
		}
		entries = append(entries[:i], entries[i+1:]...)
		if len(entries) == 0 {
			delete(b.listeners, sub.eventType)
		} else {
			b.listeners[sub.eventType] = entries
		}
		return
	}
}

// ListenerCounts reports listeners per event type. Feeds GET /api/events.
func (b *EventBus) ListenerCounts() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	counts := make(map[string]int, len(b.listeners))
	for eventType, entries := range b.listeners {
		counts[eventType] = len(entries)
	}
	return counts
}

// priorityFor grades dispatch urgency by event type.
func priorityFor(eventType string) pool.Priority {
	switch eventType {
	case EventTimeChanged:
		return pool.PriorityTime
	case EventStateChanged:
		return pool.PriorityState
	case EventCallService:
		return pool.PriorityService
	default:
		return pool.PriorityDefault
	}
}
