// Package poller drives the deep-link authentication handshake: it asks the
// backend for a one-time token, opens the bot link for the user and polls the
// backend until the handshake resolves, expires or times out.
//
// One state machine serves both the login and the link flow; a Flow supplies
// the endpoints and the success hook.
package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/mcoot/miniapp-session/internal/dependencies/scheduler"
	"github.com/mcoot/miniapp-session/internal/metrics"
	"github.com/mcoot/miniapp-session/internal/model"
	"github.com/mcoot/miniapp-session/internal/transport"
)

// State is a poller state
type State string

const (
	StateIdle           State = "idle"
	StateStarting       State = "starting"
	StateAwaitingAction State = "awaiting_action"
	StatePolling        State = "polling"
	StateSuccess        State = "success"
	StateExpired        State = "expired"
	StateError          State = "error"
)

// IsTerminal reports whether the flow has finished
func (s State) IsTerminal() bool {
	return s == StateSuccess || s == StateExpired || s == StateError
}

// API is the subset of the transport client the poller uses
type API interface {
	Get(ctx context.Context, path string, query url.Values, result any) error
	Post(ctx context.Context, path string, body, result any) error
}

// Config holds poller timing
type Config struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultConfig polls every 3 seconds for up to 60 attempts
func DefaultConfig() Config {
	return Config{
		Interval:    3 * time.Second,
		MaxAttempts: 60,
	}
}

// Snapshot is a copy of the poller's observable state
type Snapshot struct {
	State     State
	TargetURL string
	Message   string
	Attempts  int
	Outcome   *model.PollOutcome
}

// run is the lifetime of one started flow
type run struct {
	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (r *run) finish() {
	r.once.Do(func() {
		r.cancel()
		close(r.done)
	})
}

// Poller is the deep-link state machine for one flow purpose
type Poller struct {
	flow   Flow
	api    API
	opener Opener
	sched  scheduler.Scheduler
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	token     string
	targetURL string
	message   string
	attempts  int
	outcome   *model.PollOutcome
	gen       uint64
	task      scheduler.Task
	current   *run
}

// New creates an idle poller
func New(flow Flow, api API, opener Opener, sched scheduler.Scheduler, cfg Config, logger *slog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if opener == nil {
		opener = BrowserOpener{}
	}
	if sched == nil {
		sched = scheduler.New()
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Poller{
		flow:   flow,
		api:    api,
		opener: opener,
		sched:  sched,
		cfg:    cfg,
		logger: logger.With(slog.String("flow", string(flow.Purpose))),
		state:  StateIdle,
	}
}

// Purpose returns the flow purpose
func (p *Poller) Purpose() model.FlowPurpose {
	return p.flow.Purpose
}

// Snapshot returns the current state
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Poller) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:     p.state,
		TargetURL: p.targetURL,
		Message:   p.message,
		Attempts:  p.attempts,
	}
	if p.outcome != nil {
		outcome := *p.outcome
		snap.Outcome = &outcome
	}
	return snap
}

type startResponse struct {
	Token     string `json:"token"`
	LinkToken string `json:"link_token"`
	BotURL    string `json:"bot_url"`
	ExpiresIn int    `json:"expires_in"`
}

func (r startResponse) handshake() (model.Handshake, error) {
	token := r.Token
	if token == "" {
		token = r.LinkToken
	}
	if token == "" || r.BotURL == "" {
		return model.Handshake{}, errors.New("start response missing token or bot url")
	}
	return model.Handshake{
		Token:     token,
		TargetURL: r.BotURL,
		ExpiresIn: time.Duration(r.ExpiresIn) * time.Second,
	}, nil
}

// Start begins a flow. It requires the poller to be idle and returns
// model.ErrPollerBusy otherwise. The flow outlives ctx; use Stop or Reset to
// cancel it.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateIdle {
		p.mu.Unlock()
		return model.ErrPollerBusy
	}
	p.gen++
	flowCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &run{gen: p.gen, ctx: flowCtx, cancel: cancel, done: make(chan struct{})}
	p.current = r
	p.state = StateStarting
	p.message = ""
	p.attempts = 0
	p.outcome = nil
	p.mu.Unlock()

	var resp startResponse
	err := p.api.Post(r.ctx, p.flow.StartPath, nil, &resp)
	var hs model.Handshake
	if err == nil {
		hs, err = resp.handshake()
	}

	p.mu.Lock()
	if p.gen != r.gen {
		p.mu.Unlock()
		return context.Canceled
	}
	if err != nil {
		metrics.RecordHandshakeStart(string(p.flow.Purpose), false)
		p.finishLocked(StateError, MessageStartFailed)
		p.mu.Unlock()
		p.logger.Warn("failed to start deep-link flow", slog.String("error", err.Error()))
		return fmt.Errorf("start %s flow: %w", p.flow.Purpose, err)
	}
	metrics.RecordHandshakeStart(string(p.flow.Purpose), true)
	p.token = hs.Token
	p.targetURL = hs.TargetURL
	p.state = StateAwaitingAction
	p.mu.Unlock()

	p.logger.Info("deep-link flow started", slog.Duration("expires_in", hs.ExpiresIn))
	p.open(hs.TargetURL)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen == r.gen && p.state == StateAwaitingAction {
		p.state = StatePolling
		p.scheduleLocked(r.gen)
	}
	return nil
}

// OpenTarget re-opens the target of the current flow without restarting it
func (p *Poller) OpenTarget() error {
	p.mu.Lock()
	target := p.targetURL
	p.mu.Unlock()
	if target == "" {
		return model.ErrNoTarget
	}
	return p.opener.Open(target)
}

func (p *Poller) open(target string) {
	if err := p.opener.Open(target); err != nil {
		p.logger.Warn("failed to open deep link", slog.String("url", target), slog.String("error", err.Error()))
	}
}

// Stop cancels the scheduled poll and any in-flight request and clears the
// token. An unfinished flow goes back to idle; a finished one keeps its
// outcome until Reset. It is safe to call from any state, any number of times.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	if !p.state.IsTerminal() {
		p.state = StateIdle
		p.targetURL = ""
		p.message = ""
	}
}

func (p *Poller) stopLocked() {
	if p.task != nil {
		p.task.Stop()
		p.task = nil
	}
	p.token = ""
	if p.current != nil {
		p.gen++
		p.current.finish()
		p.current = nil
	}
}

// Reset stops the flow and returns the poller to idle
func (p *Poller) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.state = StateIdle
	p.targetURL = ""
	p.message = ""
	p.attempts = 0
	p.outcome = nil
}

// Wait blocks until the current flow finishes or is stopped, or ctx is done
func (p *Poller) Wait(ctx context.Context) (Snapshot, error) {
	p.mu.Lock()
	r := p.current
	p.mu.Unlock()
	if r != nil {
		select {
		case <-r.done:
		case <-ctx.Done():
			return p.Snapshot(), ctx.Err()
		}
	}
	return p.Snapshot(), nil
}

func (p *Poller) scheduleLocked(gen uint64) {
	p.task = p.sched.AfterFunc(p.cfg.Interval, func() { p.tick(gen) })
}

// finishLocked moves to a terminal state and releases the flow, except for
// success whose run is released after the success hook.
func (p *Poller) finishLocked(state State, message string) {
	if p.task != nil {
		p.task.Stop()
		p.task = nil
	}
	p.token = ""
	p.state = state
	p.message = message
	metrics.RecordHandshakeResult(string(p.flow.Purpose), string(state))
	if state != StateSuccess && p.current != nil {
		p.current.finish()
	}
}

func (p *Poller) tick(gen uint64) {
	p.mu.Lock()
	if p.gen != gen || p.state != StatePolling || p.current == nil {
		p.mu.Unlock()
		return
	}
	p.task = nil
	token := p.token
	r := p.current
	p.mu.Unlock()

	var outcome model.PollOutcome
	err := p.api.Get(r.ctx, p.flow.PollPath, url.Values{"token": {token}}, &outcome)

	p.mu.Lock()
	if p.gen != gen || p.state != StatePolling {
		p.mu.Unlock()
		return
	}

	purpose := string(p.flow.Purpose)
	switch {
	case err != nil && transport.StatusCode(err) == http.StatusGone:
		metrics.RecordPoll(purpose, string(model.PollExpired))
		p.finishLocked(StateExpired, MessageExpired)
		p.mu.Unlock()
		p.logger.Info("deep-link flow expired")
		return

	case err != nil:
		metrics.RecordPoll(purpose, "transient")
		p.logger.Debug("poll failed, will retry", slog.String("error", err.Error()))
		p.continueLocked(gen)
		p.mu.Unlock()
		return

	case outcome.Status.IsSuccess():
		metrics.RecordPoll(purpose, string(outcome.Status))
		p.outcome = &outcome
		p.finishLocked(StateSuccess, "")
		p.mu.Unlock()
		p.logger.Info("deep-link flow succeeded", slog.String("status", string(outcome.Status)))
		p.runSuccess(r, outcome)
		return

	case outcome.Status == model.PollExpired:
		metrics.RecordPoll(purpose, string(outcome.Status))
		p.outcome = &outcome
		p.finishLocked(StateExpired, MessageExpired)
		p.mu.Unlock()
		p.logger.Info("deep-link flow expired")
		return

	case outcome.Status == model.PollError:
		metrics.RecordPoll(purpose, string(outcome.Status))
		p.outcome = &outcome
		p.finishLocked(StateError, ErrorMessage(outcome.Code))
		p.mu.Unlock()
		p.logger.Info("deep-link flow failed", slog.String("code", outcome.Code))
		return

	case outcome.Status == model.PollPending:
		metrics.RecordPoll(purpose, string(outcome.Status))
		p.continueLocked(gen)
		p.mu.Unlock()
		return

	default:
		metrics.RecordPoll(purpose, "transient")
		p.logger.Debug("unexpected poll status", slog.String("status", string(outcome.Status)))
		p.continueLocked(gen)
		p.mu.Unlock()
	}
}

// continueLocked counts a non-terminal attempt and schedules the next one,
// or times the flow out.
func (p *Poller) continueLocked(gen uint64) {
	p.attempts++
	if p.attempts >= p.cfg.MaxAttempts {
		p.finishLocked(StateError, MessageTimedOut)
		p.logger.Info("deep-link flow timed out", slog.Int("attempts", p.attempts))
		return
	}
	p.scheduleLocked(gen)
}

func (p *Poller) runSuccess(r *run, outcome model.PollOutcome) {
	defer r.finish()
	if p.flow.OnSuccess == nil {
		return
	}
	if err := p.flow.OnSuccess(r.ctx, outcome); err != nil {
		p.logger.Warn("deep-link success hook failed", slog.String("error", err.Error()))
	}
}
