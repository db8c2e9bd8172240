package pool

import (
	"sync"
	"testing"
	"time"
)

// runPayloads is a handler that just executes the payload.
func runPayloads(job Job) {
	job.Payload()
}

// wedge submits one blocking payload per worker and waits until every worker
// holds one, leaving the queue empty and all workers occupied. The returned
// func releases them.
func wedge(t *testing.T, p *Pool) func() {
	t.Helper()

	workers := p.WorkerCount()
	started := make(chan struct{}, workers)
	release := make(chan struct{})

	for i := 0; i < workers; i++ {
		p.Submit(PriorityDefault, func() {
			started <- struct{}{}
			<-release
		})
	}
	for i := 0; i < workers; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatalf("worker %d never picked up wedge job", i)
		}
	}

	return func() { close(release) }
}

func TestSubmitRunsInOrderWithinPriority(t *testing.T) {
	p := New(1, runPayloads, nil)
	releaseWedge := wedge(t, p)

	var (
		mu    sync.Mutex
		order []int
	)
	done := make(chan struct{}, 10)
	for i := 0; i < 10; i++ {
		p.Submit(PriorityDefault, func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			done <- struct{}{}
		})
	}

	releaseWedge()
	for i := 0; i < 10; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("job %d never ran", i)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for i, got := range order {
		if got != i {
			t.Fatalf("position %d ran job %d, want %d (order %v)", i, got, i, order)
		}
	}
}

func TestSubmitDrainsByPriority(t *testing.T) {
	p := New(1, runPayloads, nil)
	releaseWedge := wedge(t, p)

	var (
		mu    sync.Mutex
		order []string
	)
	done := make(chan struct{}, 3)
	record := func(name string) func() {
		return func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			done <- struct{}{}
		}
	}

	// Queued lowest-urgency first; the heap must reorder them.
	p.Submit(PriorityDefault, record("default"))
	p.Submit(PriorityState, record("state"))
	p.Submit(PriorityCallback, record("callback"))

	releaseWedge()
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("queued jobs never drained")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"callback", "state", "default"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("drain order %v, want %v", order, want)
		}
	}
}

func TestBusyCallbackDoublesThreshold(t *testing.T) {
	const workers = 2

	var (
		mu     sync.Mutex
		depths []int
		seen   []int // running jobs reported alongside each warning
	)
	p := New(workers, runPayloads, func(running []RunningJob, pending int) {
		mu.Lock()
		depths = append(depths, pending)
		seen = append(seen, len(running))
		mu.Unlock()
	})

	releaseWedge := wedge(t, p)
	defer releaseWedge()

	// Threshold starts at workers² = 4 and doubles on each warning. With all
	// workers wedged the queue depth tracks the submission count exactly, so
	// warnings land at depths 5 and 9.
	for i := 0; i < 2*workers*workers+2; i++ {
		p.Submit(PriorityDefault, func() {})
	}

	mu.Lock()
	defer mu.Unlock()
	if len(depths) < 2 {
		t.Fatalf("got %d busy warnings (%v), want at least 2", len(depths), depths)
	}
	for i := 1; i < len(depths); i++ {
		if depths[i] <= depths[i-1] {
			t.Errorf("warning depths not strictly increasing: %v", depths)
		}
	}
	if depths[0] != workers*workers+1 {
		t.Errorf("first warning at depth %d, want %d", depths[0], workers*workers+1)
	}
	for i, n := range seen {
		if n != workers {
			t.Errorf("warning %d reported %d running jobs, want %d", i, n, workers)
		}
	}
}

func TestBusyCallbackSilentBelowThreshold(t *testing.T) {
	const workers = 2

	warned := make(chan int, 8)
	p := New(workers, runPayloads, func(_ []RunningJob, pending int) {
		warned <- pending
	})

	releaseWedge := wedge(t, p)

	// Exactly threshold jobs: depth never exceeds workers², so no warning.
	for i := 0; i < workers*workers; i++ {
		p.Submit(PriorityDefault, func() {})
	}

	select {
	case depth := <-warned:
		t.Fatalf("unexpected busy warning at depth %d", depth)
	default:
	}

	releaseWedge()
}

func TestNewClampsWorkerCount(t *testing.T) {
	p := New(0, runPayloads, nil)
	if got := p.WorkerCount(); got != 1 {
		t.Fatalf("WorkerCount() = %d, want 1", got)
	}

	ran := make(chan struct{})
	p.Submit(PriorityDefault, func() { close(ran) })
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran on clamped pool")
	}
}

func TestQueueDepthExcludesRunningJobs(t *testing.T) {
	p := New(1, runPayloads, nil)
	releaseWedge := wedge(t, p)
	defer releaseWedge()

	if got := p.QueueDepth(); got != 0 {
		t.Fatalf("QueueDepth() = %d with only a running job, want 0", got)
	}

	p.Submit(PriorityDefault, func() {})
	p.Submit(PriorityDefault, func() {})
	if got := p.QueueDepth(); got != 2 {
		t.Fatalf("QueueDepth() = %d, want 2", got)
	}
}
