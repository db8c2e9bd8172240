// Package pool provides the priority worker pool that executes all event
// listeners and service handlers for Hearth Core.
//
// Jobs are submitted with a priority and drained by a fixed set of worker
// goroutines. Within a priority class jobs run in submission order, so two
// listeners queued by the same event never overtake each other's class.
// Workers never exit; the pool has no shutdown and inherits the lifetime of
// the process.
//
// The pool watches its own backlog. When the queue depth passes a warning
// threshold (initially workerCount squared) it invokes the busy callback on
// the submitting goroutine and doubles the threshold, so a sustained overload
// produces a logarithmic number of warnings rather than a flood. The callback
// is advisory only: the pool never blocks a submitter or sheds jobs.
//
// # Usage
//
//	p := pool.New(4, func(job pool.Job) {
//	    job.Payload()
//	}, nil)
//	p.Submit(pool.PriorityDefault, func() {
//	    // runs on a worker goroutine
//	})
//
// The job handler owns failure isolation: it is expected to recover panics so
// a misbehaving payload cannot take a worker down with it.
package pool
