package core

import (
	"sync"
	"time"
)

// TrackPointInTime runs action exactly once at or after point, driven by
// time ticks. The returned subscription can be unsubscribed to cancel the
// callback before it fires.
func (h *Hub) TrackPointInTime(action func(now time.Time), point time.Time) *Subscription {
	var (
		mu   sync.Mutex
		sub  *Subscription
		done bool
	)

	handle := h.Bus.Subscribe(EventTimeChanged, func(e Event) {
		now, ok := eventNow(e)
		if !ok || now.Before(point) {
			return
		}

		mu.Lock()
		if done {
			mu.Unlock()
			return
		}
		done = true
		s := sub
		mu.Unlock()

		h.Bus.Unsubscribe(s)
		action(now)
	})

	// The listener can win the race and fire before the handle is stored;
	// clean up its registration here in that case.
	mu.Lock()
	sub = handle
	fired := done
	mu.Unlock()
	if fired {
		h.Bus.Unsubscribe(handle)
	}

	return handle
}

// TrackStateChange runs action for every state_changed event of entityID.
// from and to filter on the old and new state values; pass MatchAll to
// accept any. A missing old state (entity's first change) only matches when
// from is MatchAll.
func (h *Hub) TrackStateChange(entityID string, action func(entityID string, oldState, newState *State), from, to string) *Subscription {
	return h.Bus.Subscribe(EventStateChanged, func(e Event) {
		id, oldState, newState, ok := StateChangeFromEvent(e)
		if !ok || id != entityID {
			return
		}
		if !matchState(from, oldState) || !matchState(to, newState) {
			return
		}
		action(id, oldState, newState)
	})
}

// TrackTimeChange runs action on time ticks. With no seconds given it fires
// on every tick; otherwise only on ticks whose wall-clock second matches.
func (h *Hub) TrackTimeChange(action func(now time.Time), seconds ...int) *Subscription {
	match := make(map[int]bool, len(seconds))
	for _, s := range seconds {
		match[s] = true
	}

	return h.Bus.Subscribe(EventTimeChanged, func(e Event) {
		now, ok := eventNow(e)
		if !ok {
			return
		}
		if len(match) > 0 && !match[now.Second()] {
			return
		}
		action(now)
	})
}

func matchState(filter string, s *State) bool {
	if filter == MatchAll {
		return true
	}
	return s != nil && s.State == filter
}
