package mocks

import (
	"sync"
	"time"

	"github.com/mcoot/miniapp-session/internal/dependencies/scheduler"
)

// ManualScheduler is a mock Scheduler whose tasks only run when the test asks
type ManualScheduler struct {
	mu     sync.Mutex
	tasks  []*ManualTask
	delays []time.Duration
}

// Ensure ManualScheduler implements Scheduler
var _ scheduler.Scheduler = (*ManualScheduler)(nil)

// ManualTask is a task registered with a ManualScheduler
type ManualTask struct {
	s       *ManualScheduler
	f       func()
	delay   time.Duration
	stopped bool
	ran     bool
}

// NewManualScheduler creates an empty ManualScheduler
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc queues f; the delay is recorded but not waited on
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) scheduler.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &ManualTask{s: s, f: f, delay: d}
	s.tasks = append(s.tasks, t)
	s.delays = append(s.delays, d)
	return t
}

// Stop cancels the task if it has not run yet
func (t *ManualTask) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.ran {
		return false
	}
	t.stopped = true
	return true
}

// Pending returns the number of tasks that are neither run nor stopped
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.stopped && !t.ran {
			n++
		}
	}
	return n
}

// RunNext runs the oldest pending task synchronously.
// It returns false when nothing is pending.
func (s *ManualScheduler) RunNext() bool {
	s.mu.Lock()
	var next *ManualTask
	for _, t := range s.tasks {
		if !t.stopped && !t.ran {
			next = t
			break
		}
	}
	if next == nil {
		s.mu.Unlock()
		return false
	}
	next.ran = true
	s.mu.Unlock()

	next.f()
	return true
}

// RunAll runs pending tasks, including ones scheduled by the tasks themselves,
// until none remain or limit tasks have run. It returns the number run.
func (s *ManualScheduler) RunAll(limit int) int {
	n := 0
	for n < limit && s.RunNext() {
		n++
	}
	return n
}

// Delays returns the delay of every task ever scheduled, in order
func (s *ManualScheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.delays))
	copy(out, s.delays)
	return out
}
