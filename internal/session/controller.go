// Package session bootstraps the user session on app start. The Controller
// resolves the session once per process, survives repeated mounts, and is the
// only sanctioned place to force a fresh resolution.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/mcoot/miniapp-session/internal/analytics"
	"github.com/mcoot/miniapp-session/internal/cache"
	"github.com/mcoot/miniapp-session/internal/metrics"
	"github.com/mcoot/miniapp-session/internal/model"
	"github.com/mcoot/miniapp-session/internal/platform"
	"github.com/mcoot/miniapp-session/internal/transport"
)

// Backend paths
const (
	ResolvePath        = "/process_start"
	CurrentUserPath    = "/user/me"
	LinkedAccountsPath = "/user/linked_accounts"
)

// API is the transport surface the controller needs
type API interface {
	Get(ctx context.Context, path string, query url.Values, result any) error
	Post(ctx context.Context, path string, body, result any) error
	Jar() http.CookieJar
	BaseURL() *url.URL
}

// Navigator performs post-login navigation
type Navigator interface {
	Navigate(ctx context.Context, page string) error
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(ctx context.Context, page string) error

// Navigate calls f
func (f NavigatorFunc) Navigate(ctx context.Context, page string) error {
	return f(ctx, page)
}

// Policy decides how an unreachable backend is surfaced
type Policy struct {
	// FailOnUnreachable moves to Failed on a network error. When false the
	// visitor is treated as anonymous.
	FailOnUnreachable bool
}

// Config holds controller configuration
type Config struct {
	Policy   Policy
	Timezone string
	EntryURL string
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Policy:   Policy{FailOnUnreachable: true},
		Timezone: LocalTimezone(),
	}
}

// Deps are the collaborators of a Controller
type Deps struct {
	Context    *Context
	Probe      *platform.Probe
	API        API
	Cache      *cache.Cache
	Identifier analytics.Identifier
	Navigator  Navigator
	Logger     *slog.Logger
}

// Controller is the app init state machine
type Controller struct {
	sc         *Context
	probe      *platform.Probe
	api        API
	cache      *cache.Cache
	identifier analytics.Identifier
	navigator  Navigator
	cfg        Config
	logger     *slog.Logger

	entryMu sync.Mutex
	entry   Entry

	prefetching sync.WaitGroup
}

// NewController creates a controller. An unparseable entry URL is logged and ignored.
func NewController(deps Deps, cfg Config) *Controller {
	if deps.Context == nil {
		deps.Context = NewContext()
	}
	if deps.Cache == nil {
		deps.Cache = cache.New(nil)
	}
	if deps.Identifier == nil {
		deps.Identifier = analytics.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultConfig().Timezone
	}

	c := &Controller{
		sc:         deps.Context,
		probe:      deps.Probe,
		api:        deps.API,
		cache:      deps.Cache,
		identifier: deps.Identifier,
		navigator:  deps.Navigator,
		cfg:        cfg,
		logger:     deps.Logger,
	}

	entry, err := ParseEntry(cfg.EntryURL)
	if err != nil {
		c.logger.Warn("ignoring entry url", slog.String("error", err.Error()))
	}
	c.entry = entry
	return c
}

// State returns the current session state
func (c *Controller) State() model.SessionState {
	c.sc.mu.Lock()
	defer c.sc.mu.Unlock()
	return c.sc.state
}

// Subscribe returns a channel that always holds the latest state, and a
// function to stop receiving.
func (c *Controller) Subscribe() (<-chan model.SessionState, func()) {
	return c.sc.subscribe()
}

// Cache returns the query cache the controller writes to
func (c *Controller) Cache() *cache.Cache {
	return c.cache
}

// Mount brings the session up. A resolved session is returned as is, a
// resolution already in flight is joined, and otherwise one is started. If
// ctx ends first the current (loading) state is returned and the resolution
// carries on.
func (c *Controller) Mount(ctx context.Context) model.SessionState {
	c.sc.mu.Lock()
	if c.sc.inFlight {
		flight := c.sc.flight
		c.sc.mu.Unlock()
		return c.await(ctx, flight)
	}
	if c.sc.resolved {
		state := c.sc.state
		c.sc.mu.Unlock()
		return state
	}
	flight := c.sc.beginLocked()
	c.sc.mu.Unlock()

	go c.resolve(context.WithoutCancel(ctx))
	return c.await(ctx, flight)
}

// Reinitialize forces a fresh resolution. It returns false without doing
// anything while a resolution is already in flight.
func (c *Controller) Reinitialize(ctx context.Context) (model.SessionState, bool) {
	c.sc.mu.Lock()
	if c.sc.inFlight {
		state := c.sc.state
		c.sc.mu.Unlock()
		return state, false
	}
	c.sc.resolved = false
	flight := c.sc.beginLocked()
	c.sc.mu.Unlock()

	c.logger.Info("reinitializing session")
	go c.resolve(context.WithoutCancel(ctx))
	return c.await(ctx, flight), true
}

func (c *Controller) await(ctx context.Context, flight <-chan struct{}) model.SessionState {
	select {
	case <-flight:
	case <-ctx.Done():
	}
	return c.State()
}

type resolveRequest struct {
	InviteCode string `json:"invite_code,omitempty"`
	ReferalID  string `json:"referal_id,omitempty"`
	Mode       string `json:"mode,omitempty"`
	Page       string `json:"page,omitempty"`
	Timezone   string `json:"timezone"`
}

type userResponse struct {
	CurrentUser *model.User `json:"current_user"`
	Mode        string      `json:"mode,omitempty"`
}

// resolve runs one resolution and always completes the flight
func (c *Controller) resolve(ctx context.Context) {
	start := time.Now()
	state, outcome := c.runResolve(ctx)
	metrics.RecordResolve(outcome, time.Since(start))

	c.sc.mu.Lock()
	c.sc.completeLocked(state)
	c.sc.mu.Unlock()

	c.logger.Info("session resolved",
		slog.String("phase", string(state.Phase)),
		slog.String("outcome", outcome),
		slog.Duration("duration", time.Since(start)),
	)
}

func (c *Controller) runResolve(ctx context.Context) (model.SessionState, string) {
	verdict, err := c.probe.Detect(ctx)
	if err != nil {
		return model.FailedState(fmt.Errorf("detect platform: %w", err)), "credentials_error"
	}
	platform.WriteCookie(c.api.Jar(), c.api.BaseURL(), verdict)

	entry := c.pendingEntry()
	req := resolveRequest{
		InviteCode: entry.InviteCode,
		ReferalID:  entry.ReferralID,
		Mode:       entry.Mode,
		Page:       entry.Page,
		Timezone:   c.cfg.Timezone,
	}

	var resp userResponse
	if err := c.api.Post(ctx, ResolvePath, req, &resp); err != nil {
		return c.resolveFailed(err)
	}
	c.consumeEntry()

	user := resp.CurrentUser
	if user == nil {
		c.cache.Invalidate(cache.KeyCurrentUser)
		c.navigate(ctx, entry, resp.Mode)
		return model.ReadyState(nil), "anonymous"
	}

	c.cache.Set(cache.KeyCurrentUser, user)
	c.identifier.Identify(ctx, string(user.ID), map[string]string{
		"platform": verdict.CookieValue(),
	})
	c.navigate(ctx, entry, resp.Mode)
	c.prefetch(ctx)
	return model.ReadyState(user), "authenticated"
}

func (c *Controller) resolveFailed(err error) (model.SessionState, string) {
	c.cache.Invalidate(cache.KeyCurrentUser)

	switch {
	case transport.IsNetwork(err):
		c.logger.Warn("backend unreachable", slog.String("error", err.Error()))
		if c.cfg.Policy.FailOnUnreachable {
			return model.FailedState(err), "unreachable"
		}
		return model.ReadyState(nil), "unreachable"

	case transport.StatusCode(err) != 0:
		c.logger.Debug("no session", slog.Int("status", transport.StatusCode(err)))
		return model.ReadyState(nil), "unauthenticated"

	default:
		c.logger.Warn("session resolve failed", slog.String("error", err.Error()))
		return model.ReadyState(nil), "error"
	}
}

func (c *Controller) pendingEntry() Entry {
	c.entryMu.Lock()
	defer c.entryMu.Unlock()
	return c.entry
}

// consumeEntry drops the entry intent once the backend has seen it
func (c *Controller) consumeEntry() {
	c.entryMu.Lock()
	defer c.entryMu.Unlock()
	c.entry = Entry{}
}

func (c *Controller) navigate(ctx context.Context, entry Entry, mode string) {
	if c.navigator == nil {
		return
	}
	page := entry.Page
	if page == "" {
		page = mode
	}
	if page == "" {
		return
	}
	if err := c.navigator.Navigate(ctx, page); err != nil {
		c.logger.Warn("post-login navigation failed", slog.String("page", page), slog.String("error", err.Error()))
	}
}

// prefetch warms the linked accounts query in the background
func (c *Controller) prefetch(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	c.prefetching.Add(1)
	go func() {
		defer c.prefetching.Done()
		_, err := c.cache.Refresh(ctx, cache.KeyLinkedAccounts, func(ctx context.Context) (any, error) {
			var accounts model.LinkedAccounts
			if err := c.api.Get(ctx, LinkedAccountsPath, nil, &accounts); err != nil {
				return nil, err
			}
			return &accounts, nil
		})
		if err != nil {
			c.logger.Debug("prefetch failed", slog.String("error", err.Error()))
		}
	}()
}

// WaitPrefetch blocks until background prefetches have finished
func (c *Controller) WaitPrefetch() {
	c.prefetching.Wait()
}

// InvalidateUser drops the cached user and refetches it, leaving the
// resolved flag alone. Used after linking an identity to the current session.
func (c *Controller) InvalidateUser(ctx context.Context) (*model.User, error) {
	c.cache.Invalidate(cache.KeyCurrentUser)

	var resp userResponse
	if err := c.api.Get(ctx, CurrentUserPath, nil, &resp); err != nil {
		return nil, fmt.Errorf("refetch current user: %w", err)
	}
	user := resp.CurrentUser
	if user != nil {
		c.cache.Set(cache.KeyCurrentUser, user)
		c.prefetch(ctx)
	}

	c.sc.mu.Lock()
	if c.sc.state.IsReady {
		c.sc.setStateLocked(model.ReadyState(user))
	}
	c.sc.mu.Unlock()
	return user, nil
}
