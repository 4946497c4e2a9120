package queue

import (
	"sync"
	"time"
)

// SyncEnqueuer is the slice of the dispatcher the scheduler needs.
type SyncEnqueuer interface {
	EnqueueSync(accountID string)
}

// Scheduler turns time into sweep jobs: one immediately on start, one
// per tick, and one for every manual trigger in between.
type Scheduler struct {
	enqueuer SyncEnqueuer
	interval time.Duration

	trigger  chan struct{}
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewScheduler builds a scheduler that enqueues an all-accounts sweep
// every interval.
func NewScheduler(enqueuer SyncEnqueuer, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		enqueuer: enqueuer,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the schedule loop.
func (s *Scheduler) Start() {
	go s.loop()
}

// TriggerSync requests a sweep right away instead of waiting for the
// next tick. Triggers coalesce while one is already pending.
func (s *Scheduler) TriggerSync() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Stop ends the schedule loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		<-s.done
	})
}

func (s *Scheduler) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.enqueuer.EnqueueSync(AllEnabledAccounts)
	for {
		select {
		case <-s.quit:
			return
		case <-ticker.C:
			s.enqueuer.EnqueueSync(AllEnabledAccounts)
		case <-s.trigger:
			s.enqueuer.EnqueueSync(AllEnabledAccounts)
		}
	}
}
