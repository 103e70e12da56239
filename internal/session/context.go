package session

import (
	"sync"

	"github.com/mcoot/miniapp-session/internal/model"
)

// Context is the process-scoped bookkeeping that survives remounts: whether
// the session has been resolved, whether a resolution is in flight, and the
// last state. Only the Controller mutates it.
type Context struct {
	mu          sync.Mutex
	resolved    bool
	inFlight    bool
	flight      chan struct{}
	state       model.SessionState
	subscribers map[chan model.SessionState]struct{}
}

// NewContext creates an unresolved session context
func NewContext() *Context {
	return &Context{
		state:       model.InitialSessionState(),
		subscribers: make(map[chan model.SessionState]struct{}),
	}
}

// Resolved reports whether a resolution has completed since the last reinitialize
func (c *Context) Resolved() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolved
}

// InFlight reports whether a resolution is running
func (c *Context) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// begin marks a resolution as started and returns its completion channel
func (c *Context) beginLocked() chan struct{} {
	c.inFlight = true
	c.flight = make(chan struct{})
	c.setStateLocked(model.LoadingState(c.state.User))
	return c.flight
}

func (c *Context) completeLocked(state model.SessionState) {
	c.resolved = true
	c.inFlight = false
	c.setStateLocked(state)
	close(c.flight)
}

// setStateLocked stores state and hands the latest value to each subscriber
func (c *Context) setStateLocked(state model.SessionState) {
	c.state = state
	for ch := range c.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- state
	}
}

func (c *Context) subscribe() (<-chan model.SessionState, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan model.SessionState, 1)
	ch <- c.state
	c.subscribers[ch] = struct{}{}
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, ch)
	}
}
