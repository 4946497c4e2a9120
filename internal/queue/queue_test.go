package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDispatcher(opts Options) *Dispatcher {
	if opts.RetryDelay == 0 {
		opts.RetryDelay = 10 * time.Millisecond
	}
	if opts.QueueSize == 0 {
		opts.QueueSize = 16
	}
	return NewDispatcher(opts)
}

func collect(t *testing.T, ch chan string, n int) []string {
	t.Helper()

	var out []string
	for i := 0; i < n; i++ {
		select {
		case v := <-ch:
			out = append(out, v)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %d results, got %d", n, len(out))
		}
	}
	return out
}

func TestDispatcherRunsJobs(t *testing.T) {
	d := testDispatcher(Options{Workers: 2})

	synced := make(chan string, 4)
	classified := make(chan string, 4)
	d.Handle(KindSync, func(_ context.Context, job *Job) error {
		synced <- job.AccountID
		return nil
	})
	d.Handle(KindClassify, func(_ context.Context, job *Job) error {
		classified <- job.MessageID
		return nil
	})

	d.Start(context.Background())
	defer d.Stop(time.Second)

	d.EnqueueSync("acct-1")
	d.EnqueueSync(AllEnabledAccounts)
	d.EnqueueClassify("msg-1")

	assert.ElementsMatch(t, []string{"acct-1", AllEnabledAccounts}, collect(t, synced, 2))
	assert.ElementsMatch(t, []string{"msg-1"}, collect(t, classified, 1))
}

func TestDispatcherAssignsJobIDs(t *testing.T) {
	d := testDispatcher(Options{Workers: 1})

	job := &Job{Kind: KindClassify, MessageID: "msg-1"}
	assert.True(t, d.Enqueue(job))
	assert.NotEmpty(t, job.ID)
}

func TestDispatcherRetriesFailures(t *testing.T) {
	d := testDispatcher(Options{Workers: 2, MaxAttempts: 5})

	var (
		mu    sync.Mutex
		calls int
	)
	done := make(chan int, 1)
	d.Handle(KindSync, func(_ context.Context, job *Job) error {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()

		if n < 3 {
			return errors.New("transient failure")
		}
		done <- job.Attempts
		return nil
	})

	d.Start(context.Background())
	defer d.Stop(time.Second)

	d.EnqueueSync("acct-1")

	select {
	case attempts := <-done:
		assert.Equal(t, 2, attempts)
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, calls)
}

func TestDispatcherGivesUpAfterMaxAttempts(t *testing.T) {
	d := testDispatcher(Options{Workers: 1, MaxAttempts: 2})

	var (
		mu    sync.Mutex
		calls int
	)
	d.Handle(KindSync, func(context.Context, *Job) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return errors.New("permanent failure")
	})

	d.Start(context.Background())
	defer d.Stop(time.Second)

	d.EnqueueSync("acct-1")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 2
	}, 2*time.Second, 5*time.Millisecond)

	// No further retries are scheduled once the limit is hit.
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls)
}

func TestDispatcherRecoversFromPanics(t *testing.T) {
	d := testDispatcher(Options{Workers: 1, MaxAttempts: 3})

	var (
		mu    sync.Mutex
		calls int
	)
	done := make(chan int, 1)
	d.Handle(KindClassify, func(_ context.Context, job *Job) error {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()

		if n == 1 {
			panic("bad message payload")
		}
		done <- job.Attempts
		return nil
	})

	d.Start(context.Background())
	defer d.Stop(time.Second)

	d.EnqueueClassify("msg-1")

	select {
	case attempts := <-done:
		// The panic counted as one failed attempt.
		assert.Equal(t, 1, attempts)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive the panic")
	}
}

func TestDispatcherIgnoresUnknownKinds(t *testing.T) {
	d := testDispatcher(Options{Workers: 1})

	classified := make(chan string, 1)
	d.Handle(KindClassify, func(_ context.Context, job *Job) error {
		classified <- job.MessageID
		return nil
	})

	d.Start(context.Background())
	defer d.Stop(time.Second)

	d.Enqueue(&Job{Kind: "compact", AccountID: "acct-1"})
	d.EnqueueClassify("msg-1")

	// The unknown job is dropped and the worker keeps going.
	assert.Equal(t, []string{"msg-1"}, collect(t, classified, 1))
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	d := testDispatcher(Options{Workers: 1, QueueSize: 1})

	// Not started, so nothing drains the queue.
	assert.True(t, d.Enqueue(&Job{Kind: KindSync, AccountID: "acct-1"}))
	assert.False(t, d.Enqueue(&Job{Kind: KindSync, AccountID: "acct-2"}))
}

func TestDispatcherStopWaitsForInflightJobs(t *testing.T) {
	d := testDispatcher(Options{Workers: 1})

	started := make(chan struct{})
	var (
		mu       sync.Mutex
		finished bool
	)
	d.Handle(KindSync, func(context.Context, *Job) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		mu.Lock()
		finished = true
		mu.Unlock()
		return nil
	})

	d.Start(context.Background())
	d.EnqueueSync("acct-1")

	<-started
	d.Stop(time.Second)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, finished, "Stop should wait for the in-flight job")
}

func TestSchedulerSweeps(t *testing.T) {
	t.Run("ticks enqueue sweeps", func(t *testing.T) {
		rec := &countingEnqueuer{}
		s := NewScheduler(rec, 20*time.Millisecond)

		s.Start()
		defer s.Stop()

		// One immediate sweep plus at least one tick.
		require.Eventually(t, func() bool { return rec.count() >= 2 }, 2*time.Second, 5*time.Millisecond)
		assert.Equal(t, AllEnabledAccounts, rec.first())
	})

	t.Run("manual trigger skips the wait", func(t *testing.T) {
		rec := &countingEnqueuer{}
		s := NewScheduler(rec, time.Hour)

		s.Start()
		defer s.Stop()

		require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 5*time.Millisecond)

		s.TriggerSync()
		require.Eventually(t, func() bool { return rec.count() == 2 }, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		rec := &countingEnqueuer{}
		s := NewScheduler(rec, time.Hour)

		s.Start()
		s.Stop()
		s.Stop()
	})
}

type countingEnqueuer struct {
	mu    sync.Mutex
	calls []string
}

func (c *countingEnqueuer) EnqueueSync(accountID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, accountID)
}

func (c *countingEnqueuer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (c *countingEnqueuer) first() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.calls) == 0 {
		return ""
	}
	return c.calls[0]
}
