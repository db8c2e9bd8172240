package pool

import (
	"container/heap"
	"sync"
	"time"
)

// Priority orders queued jobs. Lower values are drained first.
type Priority int

// Job priorities, graded by how latency-sensitive the work is. Tracker
// callbacks jump the queue; bulk time-tick fan-out yields to everything
// except untyped work.
const (
	PriorityCallback Priority = iota
	PriorityService
	PriorityState
	PriorityTime
	PriorityDefault
)

// String returns a short label for logging.
func (p Priority) String() string {
	switch p {
	case PriorityCallback:
		return "callback"
	case PriorityService:
		return "service"
	case PriorityState:
		return "state"
	case PriorityTime:
		return "time"
	case PriorityDefault:
		return "default"
	default:
		return "unknown"
	}
}

// Job is a unit of work drained by a worker.
type Job struct {
	Priority Priority
	Payload  func()

	// sequence preserves submission order within a priority class.
	sequence uint64
}

// RunningJob describes a job currently held by a worker, as reported to the
// busy callback.
type RunningJob struct {
	Priority Priority
	Started  time.Time
}

// Handler is applied by a worker to each job it drains. The handler is
// responsible for isolating failures; a panic escaping the handler kills the
// worker goroutine.
type Handler func(job Job)

// BusyFunc is invoked on the submitting goroutine whenever the queue depth
// passes the current warning threshold. running lists the jobs workers are
// executing at that moment; pending is the queue depth that tripped the
// warning. The pool holds no locks during the call.
type BusyFunc func(running []RunningJob, pending int)

// Pool is a fixed-size worker pool draining a priority queue.
// All methods are safe for concurrent use.
type Pool struct {
	handler Handler
	busy    BusyFunc

	mu        sync.Mutex
	queue     jobQueue
	available sync.Cond // signalled when queue gains a job
	seq       uint64
	threshold int
	running   []runningSlot // one slot per worker
}

type runningSlot struct {
	active   bool
	priority Priority
	started  time.Time
}

// New starts workerCount workers draining jobs through handler. busy may be
// nil to disable backlog warnings. The workers run for the remaining lifetime
// of the process; there is no shutdown.
func New(workerCount int, handler Handler, busy BusyFunc) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}

	p := &Pool{
		handler:   handler,
		busy:      busy,
		threshold: workerCount * workerCount,
		running:   make([]runningSlot, workerCount),
	}
	p.available.L = &p.mu

	for i := 0; i < workerCount; i++ {
		go p.worker(i)
	}

	return p
}

// WorkerCount returns the number of worker goroutines.
func (p *Pool) WorkerCount() int {
	return len(p.running)
}

// QueueDepth returns the number of jobs waiting to be drained. Jobs already
// held by workers are not counted.
func (p *Pool) QueueDepth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Len()
}

// Submit queues payload at the given priority and returns immediately.
// Equal-priority jobs are drained in submission order.
func (p *Pool) Submit(priority Priority, payload func()) {
	if payload == nil {
		return
	}

	var (
		warn    bool
		depth   int
		current []RunningJob
	)

	p.mu.Lock()
	p.seq++
	heap.Push(&p.queue, Job{Priority: priority, Payload: payload, sequence: p.seq})
	depth = p.queue.Len()

	if p.busy != nil && depth > p.threshold {
		// Next warning fires at double the depth, so a sustained
		// backlog stays loggable instead of log-flooding.
		p.threshold *= 2
		warn = true
		current = p.snapshotRunning()
	}
	p.mu.Unlock()

	p.available.Signal()

	if warn {
		p.busy(current, depth)
	}
}

// snapshotRunning copies the active worker slots. Caller must hold p.mu.
func (p *Pool) snapshotRunning() []RunningJob {
	jobs := make([]RunningJob, 0, len(p.running))
	for _, slot := range p.running {
		if slot.active {
			jobs = append(jobs, RunningJob{Priority: slot.priority, Started: slot.started})
		}
	}
	return jobs
}

// worker drains jobs forever.
func (p *Pool) worker(slot int) {
	for {
		p.mu.Lock()
		for p.queue.Len() == 0 {
			p.available.Wait()
		}
		job := heap.Pop(&p.queue).(Job)
		p.running[slot] = runningSlot{active: true, priority: job.Priority, started: time.Now()}
		p.mu.Unlock()

		p.handler(job)

		p.mu.Lock()
		p.running[slot] = runningSlot{}
		p.mu.Unlock()
	}
}

// jobQueue is a min-heap ordered by (priority, sequence).
type jobQueue []Job

func (q jobQueue) Len() int { return len(q) }

func (q jobQueue) Less(i, j int) bool {
	if q[i].Priority != q[j].Priority {
		return q[i].Priority < q[j].Priority
	}
	return q[i].sequence < q[j].sequence
}

func (q jobQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *jobQueue) Push(x any) { *q = append(*q, x.(Job)) }

func (q *jobQueue) Pop() any {
	old := *q
	n := len(old)
	job := old[n-1]
	old[n-1] = Job{}
	*q = old[:n-1]
	return job
}
