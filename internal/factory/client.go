package factory

import (
	"context"
	"io"
	"log/slog"

	"github.com/mcoot/miniapp-session/internal/analytics"
	"github.com/mcoot/miniapp-session/internal/cache"
	"github.com/mcoot/miniapp-session/internal/credentials"
	"github.com/mcoot/miniapp-session/internal/dependencies/clock"
	"github.com/mcoot/miniapp-session/internal/dependencies/scheduler"
	"github.com/mcoot/miniapp-session/internal/model"
	"github.com/mcoot/miniapp-session/internal/platform"
	"github.com/mcoot/miniapp-session/internal/poller"
	"github.com/mcoot/miniapp-session/internal/prefs"
	"github.com/mcoot/miniapp-session/internal/session"
	"github.com/mcoot/miniapp-session/internal/transport"
)

// ClientConfig holds configuration for the client-side components
type ClientConfig struct {
	// Transport holds the backend URL and timeout
	Transport transport.Config
	// Platform controls the probe; AllowOverrides is only set in local test builds
	Platform platform.Config
	// Session holds the controller policy, timezone and entry URL
	Session session.Config
	// Poller holds deep-link polling timing
	Poller poller.Config

	// Prefs persists the mock override (optional, in-memory if nil)
	Prefs prefs.Store
	// Signals exposes the host-provided init data (optional)
	Signals platform.Signals
	// Opener opens deep links (optional, system browser if nil)
	Opener poller.Opener
	// Navigator performs post-login navigation (optional)
	Navigator session.Navigator
	// Identifier receives the backend user id (optional, logged if nil)
	Identifier analytics.Identifier
	// Scheduler drives poll ticks (optional, timers if nil)
	Scheduler scheduler.Scheduler
	// Clock stamps synthesized init data and cache entries (optional)
	Clock clock.Clock
	// SessionContext shares one resolution across controllers (optional)
	SessionContext *session.Context
	// Logger is the client logger (optional)
	Logger *slog.Logger
}

// Client contains the wired client-side components
type Client struct {
	Prefs       prefs.Store
	Probe       *platform.Probe
	Credentials *credentials.Provider
	Transport   *transport.Client
	Cache       *cache.Cache
	Session     *session.Controller
	Pollers     *poller.Manager

	logger *slog.Logger
}

// NewClient wires the session controller and deep-link pollers against one backend
func NewClient(cfg ClientConfig) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	store := cfg.Prefs
	if store == nil {
		store = prefs.NewMemory()
	}
	identifier := cfg.Identifier
	if identifier == nil {
		identifier = analytics.NewLogger(logger)
	}
	sessionCfg := cfg.Session
	if sessionCfg == (session.Config{}) {
		sessionCfg = session.DefaultConfig()
	}

	probe := platform.NewProbe(cfg.Signals, store, cfg.Platform, logger)
	provider := credentials.NewProvider(probe, clk)
	client, err := transport.New(cfg.Transport, provider, logger)
	if err != nil {
		return nil, err
	}
	queryCache := cache.New(clk)

	controller := session.NewController(session.Deps{
		Context:    cfg.SessionContext,
		Probe:      probe,
		API:        client,
		Cache:      queryCache,
		Identifier: identifier,
		Navigator:  cfg.Navigator,
		Logger:     logger,
	}, sessionCfg)

	return &Client{
		Prefs:       store,
		Probe:       probe,
		Credentials: provider,
		Transport:   client,
		Cache:       queryCache,
		Session:     controller,
		Pollers:     poller.NewManager(client, cfg.Opener, cfg.Scheduler, cfg.Poller, logger),
		logger:      logger,
	}, nil
}

// LoginPoller returns the deep-link login poller. Success re-resolves the
// session. A resolution already in flight went out without the new session
// cookie, so it is awaited and followed by a fresh one.
func (c *Client) LoginPoller() *poller.Poller {
	return c.Pollers.For(poller.LoginFlow(func(ctx context.Context, _ model.PollOutcome) error {
		if _, started := c.Session.Reinitialize(ctx); started {
			return nil
		}
		c.logger.Info("session resolve in flight at login, resolving again once it completes")
		c.Session.Mount(ctx)
		if _, started := c.Session.Reinitialize(ctx); !started {
			c.logger.Warn("session not refreshed after login")
		}
		return nil
	}))
}

// LinkPoller returns the deep-link link poller. Success refetches the current user.
func (c *Client) LinkPoller() *poller.Poller {
	return c.Pollers.For(poller.LinkFlow(func(ctx context.Context, _ model.PollOutcome) error {
		_, err := c.Session.InvalidateUser(ctx)
		return err
	}))
}

// Close stops any running deep-link flow
func (c *Client) Close() {
	c.Pollers.StopAll()
}
