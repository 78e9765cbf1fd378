package journey

import (
	"context"
	"sync"
	"time"
)

// Scheduler runs fn once after delay unless ctx is cancelled first.
// Implementations must not run fn after ctx is done.
type Scheduler interface {
	Schedule(ctx context.Context, delay time.Duration, fn func())
}

// TimerScheduler runs each task on its own goroutine backed by a timer.
type TimerScheduler struct{}

// Schedule implements Scheduler.
func (TimerScheduler) Schedule(ctx context.Context, delay time.Duration, fn func()) {
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if ctx.Err() == nil {
				fn()
			}
		}
	}()
}

// ImmediateScheduler runs tasks synchronously, ignoring the delay.
type ImmediateScheduler struct{}

// Schedule implements Scheduler.
func (ImmediateScheduler) Schedule(ctx context.Context, _ time.Duration, fn func()) {
	if ctx.Err() == nil {
		fn()
	}
}

type manualTask struct {
	ctx   context.Context
	delay time.Duration
	fn    func()
}

// ManualScheduler queues tasks until the caller runs them. Used to step simulated delays in tests.
type ManualScheduler struct {
	mu     sync.Mutex
	tasks  []manualTask
	delays []time.Duration
}

// NewManualScheduler creates an empty ManualScheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Schedule implements Scheduler.
func (s *ManualScheduler) Schedule(ctx context.Context, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, manualTask{ctx: ctx, delay: delay, fn: fn})
	s.delays = append(s.delays, delay)
}

// Pending returns the number of queued tasks, including ones whose context is already cancelled.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Delays returns the delay of every task ever scheduled, in order.
func (s *ManualScheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.delays))
	copy(out, s.delays)
	return out
}

// RunNext pops the oldest task and runs it if its context is still live.
// It reports whether a task was popped.
func (s *ManualScheduler) RunNext() bool {
	s.mu.Lock()
	if len(s.tasks) == 0 {
		s.mu.Unlock()
		return false
	}
	task := s.tasks[0]
	s.tasks = s.tasks[1:]
	s.mu.Unlock()

	if task.ctx.Err() == nil {
		task.fn()
	}
	return true
}

// RunAll runs tasks until the queue is empty, including tasks scheduled by other tasks.
func (s *ManualScheduler) RunAll() {
	for s.RunNext() {
	}
}
