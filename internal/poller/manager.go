package poller

import (
	"log/slog"
	"sync"

	"github.com/mcoot/miniapp-session/internal/dependencies/scheduler"
	"github.com/mcoot/miniapp-session/internal/model"
)

// Manager hands out at most one Poller per flow purpose
type Manager struct {
	api    API
	opener Opener
	sched  scheduler.Scheduler
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	pollers map[model.FlowPurpose]*Poller
}

// NewManager creates a manager whose pollers share the given dependencies
func NewManager(api API, opener Opener, sched scheduler.Scheduler, cfg Config, logger *slog.Logger) *Manager {
	return &Manager{
		api:     api,
		opener:  opener,
		sched:   sched,
		cfg:     cfg,
		logger:  logger,
		pollers: make(map[model.FlowPurpose]*Poller),
	}
}

// For returns the poller for flow.Purpose, creating it on first use. The flow
// registered first for a purpose is kept.
func (m *Manager) For(flow Flow) *Poller {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.pollers[flow.Purpose]; ok {
		return p
	}
	p := New(flow, m.api, m.opener, m.sched, m.cfg, m.logger)
	m.pollers[flow.Purpose] = p
	return p
}

// Get returns the poller for purpose if one exists
func (m *Manager) Get(purpose model.FlowPurpose) (*Poller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pollers[purpose]
	return p, ok
}

// StopAll stops every poller. Call on teardown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	pollers := make([]*Poller, 0, len(m.pollers))
	for _, p := range m.pollers {
		pollers = append(pollers, p)
	}
	m.mu.Unlock()

	for _, p := range pollers {
		p.Stop()
	}
}
