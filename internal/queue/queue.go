// Package queue is the in-process job queue driving sync and
// classification: a bounded worker pool over a buffered channel, with
// per-kind handlers, panic recovery and delayed retries. Both job
// kinds tolerate re-delivery, so jobs lost in a crash are simply
// enqueued again.
package queue

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job kinds.
const (
	KindSync     = "sync"
	KindClassify = "classify"
)

// AllEnabledAccounts is the AccountID of a sync job that means "sweep
// every enabled account" instead of syncing one.
const AllEnabledAccounts = "all-enabled"

// Job is one unit of queued work. Sync jobs carry an AccountID,
// classify jobs a MessageID.
type Job struct {
	ID        string
	Kind      string
	AccountID string
	MessageID string
	// Attempts counts completed failed runs; it starts at zero.
	Attempts int
}

// Handler processes one job. A returned error schedules a retry until
// the dispatcher's attempt limit is reached.
type Handler func(ctx context.Context, job *Job) error

// Options tunes a Dispatcher. Zero values fall back to the defaults.
type Options struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	RetryDelay  time.Duration
}

// Dispatcher fans queued jobs out to a fixed pool of workers. Handlers
// must be registered before Start.
type Dispatcher struct {
	jobs        chan *Job
	handlers    map[string]Handler
	workers     int
	maxAttempts int
	retryDelay  time.Duration

	ctx      context.Context
	cancel   context.CancelFunc
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewDispatcher builds a dispatcher; Start brings the workers up.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 30 * time.Second
	}

	return &Dispatcher{
		jobs:        make(chan *Job, opts.QueueSize),
		handlers:    make(map[string]Handler),
		workers:     opts.Workers,
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
		quit:        make(chan struct{}),
	}
}

// Handle registers the handler for a job kind.
func (d *Dispatcher) Handle(kind string, handler Handler) {
	d.handlers[kind] = handler
}

// Start brings up the worker pool. Handlers receive a context derived
// from ctx and should stop promptly when it is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// Stop shuts the pool down: workers stop taking new jobs and in-flight
// ones get up to timeout to finish before their context is cancelled.
// Jobs still queued are dropped; re-enqueueing them later is safe.
func (d *Dispatcher) Stop(timeout time.Duration) {
	d.stopOnce.Do(func() {
		close(d.quit)

		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(timeout):
			log.Printf("Warning: dispatcher stop timed out after %s, cancelling in-flight jobs", timeout)
		}
		if d.cancel != nil {
			d.cancel()
		}
	})
}

// Enqueue adds a job to the queue, assigning an id when it has none.
// It reports false when the queue is full; the job is dropped and
// logged, never blocked on.
func (d *Dispatcher) Enqueue(job *Job) bool {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	select {
	case d.jobs <- job:
		return true
	default:
		log.Printf("Warning: job queue full, dropping %s job %s", job.Kind, job.ID)
		return false
	}
}

// EnqueueSync queues a sync pass for one account, or a sweep over
// every enabled account when accountID is AllEnabledAccounts.
func (d *Dispatcher) EnqueueSync(accountID string) {
	d.Enqueue(&Job{Kind: KindSync, AccountID: accountID})
}

// EnqueueClassify queues classification of one message. This is the
// hand-off the sync orchestrator calls for each newly-synced message.
func (d *Dispatcher) EnqueueClassify(messageID string) {
	d.Enqueue(&Job{Kind: KindClassify, MessageID: messageID})
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.quit:
			return
		case job := <-d.jobs:
			d.run(job)
		}
	}
}

func (d *Dispatcher) run(job *Job) {
	handler, ok := d.handlers[job.Kind]
	if !ok {
		log.Printf("Warning: no handler registered for %s job %s", job.Kind, job.ID)
		return
	}

	err := d.invoke(handler, job)
	if err == nil {
		return
	}

	job.Attempts++
	if job.Attempts >= d.maxAttempts {
		log.Printf("Warning: %s job %s failed after %d attempts, giving up: %v", job.Kind, job.ID, job.Attempts, err)
		return
	}

	log.Printf("Warning: %s job %s failed (attempt %d/%d), retrying in %s: %v",
		job.Kind, job.ID, job.Attempts, d.maxAttempts, d.retryDelay, err)
	d.retryLater(job)
}

// invoke runs one handler, converting a panic into an error so a bad
// job cannot take a worker down with it.
func (d *Dispatcher) invoke(handler Handler, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler(d.ctx, job)
}

func (d *Dispatcher) retryLater(job *Job) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		select {
		case <-d.quit:
		case <-time.After(d.retryDelay):
			d.Enqueue(job)
		}
	}()
}
