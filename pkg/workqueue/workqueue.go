// Package workqueue provides a serial delayed-work queue. Jobs may be
// scheduled from any goroutine - including download completion callbacks -
// and are executed one at a time by a single drain worker.
package workqueue

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/releasehound/releasehound/pkg/logging"
)

const (
	// maxQueuedJobs bounds the number of jobs waiting to run. Enqueueing
	// beyond the bound drops the job rather than blocking the caller.
	maxQueuedJobs = 64
)

// Queue runs scheduled jobs serially on its drain worker.
type Queue struct {
	log     logging.Logger
	jobs    chan func()
	stopped atomic.Bool
}

// New creates a Queue. The queue accepts jobs immediately; they are not
// executed until Run is started.
func New(log logging.Logger) *Queue {
	return &Queue{
		log:  log,
		jobs: make(chan func(), maxQueuedJobs),
	}
}

// Schedule arranges for fn to run once on the queue after delay. It is safe
// to call from any goroutine. A non-positive delay enqueues immediately.
func (q *Queue) Schedule(delay time.Duration, fn func()) {
	if delay <= 0 {
		q.enqueue(fn)
		return
	}
	time.AfterFunc(delay, func() {
		q.enqueue(fn)
	})
}

func (q *Queue) enqueue(fn func()) {
	if q.stopped.Load() {
		q.log.Debug("queue stopped, discarding job")
		return
	}
	select {
	case q.jobs <- fn:
	default:
		q.log.Warn("queue full, dropping job")
	}
}

// Run drains the queue until ctx is done. Timers armed by Schedule may
// still fire afterwards; their jobs are discarded.
func (q *Queue) Run(ctx context.Context) error {
	q.log.Debug("starting")
	defer q.log.Debug("finished")

	for {
		select {
		case <-ctx.Done():
			q.stopped.Store(true)
			return nil
		case fn := <-q.jobs:
			q.runJob(fn)
		}
	}
}

// runJob contains a panicking job so a single bad job cannot take down the
// drain worker the retry protocol depends on.
func (q *Queue) runJob(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Errorf("queued job panicked: %v", r)
		}
	}()
	fn()
}
