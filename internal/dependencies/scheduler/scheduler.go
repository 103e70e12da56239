package scheduler

import "time"

// Task is a handle to a scheduled callback
type Task interface {
	// Stop cancels the task. It returns false if the task already ran or was stopped.
	Stop() bool
}

// Scheduler runs callbacks after a delay and can be mocked for testing
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Task
}

// TimerScheduler implements Scheduler using runtime timers
type TimerScheduler struct{}

// New creates a new TimerScheduler
func New() *TimerScheduler {
	return &TimerScheduler{}
}

// AfterFunc runs f on its own goroutine after d elapses
func (s *TimerScheduler) AfterFunc(d time.Duration, f func()) Task {
	return time.AfterFunc(d, f)
}
