package core

import (
	"sync"
	"time"
)

// DefaultTickInterval is the spacing of time_changed events when no interval
// is configured.
const DefaultTickInterval = 10 * time.Second

// Ticker publishes time_changed events aligned to wall-clock multiples of
// its interval, so a 10s ticker fires at :00, :10, :20 and listeners can
// filter on the tick's second.
type Ticker struct {
	bus      Bus
	interval time.Duration
	logger   Logger

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
}

// NewTicker creates a ticker publishing on bus. A non-positive interval
// falls back to DefaultTickInterval.
func NewTicker(bus Bus, interval time.Duration, logger Logger) *Ticker {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Ticker{
		bus:      bus,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start launches the tick goroutine. Subsequent calls are no-ops.
func (t *Ticker) Start() {
	t.startOnce.Do(func() {
		t.logger.Info("ticker started", "interval", t.interval.String())
		go t.run()
	})
}

// Stop ends ticking. A stopped ticker cannot be restarted.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stop)
	})
}

func (t *Ticker) run() {
	for {
		now := time.Now().UTC()
		next := now.Truncate(t.interval).Add(t.interval)

		select {
		case <-t.stop:
			return
		case <-time.After(time.Until(next)):
		}

		t.bus.Publish(EventTimeChanged, map[string]any{AttrNow: time.Now().UTC()}, OriginLocal)
	}
}
