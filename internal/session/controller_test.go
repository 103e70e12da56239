package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/miniapp-session/internal/analytics"
	"github.com/mcoot/miniapp-session/internal/cache"
	"github.com/mcoot/miniapp-session/internal/credentials"
	"github.com/mcoot/miniapp-session/internal/dependencies/mocks"
	"github.com/mcoot/miniapp-session/internal/model"
	"github.com/mcoot/miniapp-session/internal/platform"
	"github.com/mcoot/miniapp-session/internal/prefs"
	"github.com/mcoot/miniapp-session/internal/testutil"
	"github.com/mcoot/miniapp-session/internal/transport"
)

// fakeBackend serves the session endpoints and records what it saw
type fakeBackend struct {
	mu            sync.Mutex
	resolveCalls  int
	resolveStatus int
	user          *model.User
	mode          string
	me            *model.User
	linkedStatus  int
	linkedCalls   int
	lastBody      resolveRequest
	lastHeader    http.Header
	gate          chan struct{}
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case ResolvePath:
		b.mu.Lock()
		b.resolveCalls++
		b.lastHeader = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&b.lastBody)
		gate, status, user, mode := b.gate, b.resolveStatus, b.user, b.mode
		b.mu.Unlock()

		if gate != nil {
			<-gate
		}
		if status != 0 && status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"not authenticated"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"current_user": user, "mode": mode})

	case CurrentUserPath:
		b.mu.Lock()
		me := b.me
		b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"current_user": me})

	case LinkedAccountsPath:
		b.mu.Lock()
		b.linkedCalls++
		status := b.linkedStatus
		b.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		_ = json.NewEncoder(w).Encode(model.LinkedAccounts{TelegramID: 555, Linked: true})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (b *fakeBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resolveCalls
}

func (b *fakeBackend) body() resolveRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastBody
}

func (b *fakeBackend) header() http.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastHeader
}

func (b *fakeBackend) linked() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.linkedCalls
}

type ControllerSuite struct {
	suite.Suite
	backend  *fakeBackend
	srv      *httptest.Server
	store    *prefs.Memory
	signal   string
	sc       *Context
	recorder *analytics.Recorder
	client   *transport.Client
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.backend = &fakeBackend{user: &model.User{ID: "user-1", DisplayName: "Alice"}}
	s.srv = httptest.NewServer(s.backend)
	s.store = prefs.NewMemory()
	s.signal = ""
	s.sc = NewContext()
	s.recorder = &analytics.Recorder{}
	s.client = nil
}

func (s *ControllerSuite) TearDownTest() {
	s.srv.Close()
}

func (s *ControllerSuite) newController(cfg Config, nav Navigator) *Controller {
	probe := platform.NewProbe(platform.StaticSignals(s.signal), s.store, platform.Config{AllowOverrides: true}, testutil.NopLogger())
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	client, err := transport.New(transport.Config{BaseURL: s.srv.URL}, credentials.NewProvider(probe, clk), testutil.NopLogger())
	s.Require().NoError(err)
	s.client = client

	if cfg.Timezone == "" {
		cfg.Timezone = "Europe/Berlin"
	}
	return NewController(Deps{
		Context:    s.sc,
		Probe:      probe,
		API:        client,
		Cache:      cache.New(clk),
		Identifier: s.recorder,
		Navigator:  nav,
		Logger:     testutil.NopLogger(),
	}, cfg)
}

func (s *ControllerSuite) ctx() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	s.T().Cleanup(cancel)
	return ctx
}

func (s *ControllerSuite) TestInitialState() {
	c := s.newController(DefaultConfig(), nil)
	state := c.State()
	s.Equal(model.PhaseNotStarted, state.Phase)
	s.True(state.IsLoading)
	s.False(state.IsReady)
}

func (s *ControllerSuite) TestMountResolvesUser() {
	c := s.newController(DefaultConfig(), nil)

	state := c.Mount(s.ctx())

	s.Equal(model.PhaseReady, state.Phase)
	s.True(state.IsReady)
	s.False(state.IsLoading)
	s.Require().NotNil(state.User)
	s.Equal(model.UserID("user-1"), state.User.ID)

	cached, ok := cache.GetAs[*model.User](c.Cache(), cache.KeyCurrentUser)
	s.True(ok)
	s.Equal(model.UserID("user-1"), cached.ID)
}

func (s *ControllerSuite) TestRepeatedMountsResolveOnce() {
	c := s.newController(DefaultConfig(), nil)
	for range 5 {
		c.Mount(s.ctx())
	}
	s.Equal(1, s.backend.calls())
}

func (s *ControllerSuite) TestRemountWithNewControllerSharesContext() {
	s.newController(DefaultConfig(), nil).Mount(s.ctx())
	state := s.newController(DefaultConfig(), nil).Mount(s.ctx())

	s.Equal(1, s.backend.calls())
	s.Equal(model.PhaseReady, state.Phase)
}

func (s *ControllerSuite) TestIndependentContextsResolveIndependently() {
	s.newController(DefaultConfig(), nil).Mount(s.ctx())
	s.sc = NewContext()
	s.newController(DefaultConfig(), nil).Mount(s.ctx())
	s.Equal(2, s.backend.calls())
}

func (s *ControllerSuite) TestConcurrentMountsShareOneRequest() {
	s.backend.gate = make(chan struct{})
	c := s.newController(DefaultConfig(), nil)

	var wg sync.WaitGroup
	states := make([]model.SessionState, 10)
	for i := range states {
		wg.Add(1)
		go func() {
			defer wg.Done()
			states[i] = c.Mount(s.ctx())
		}()
	}

	s.Eventually(func() bool { return s.backend.calls() == 1 }, time.Second, 5*time.Millisecond)
	close(s.backend.gate)
	wg.Wait()

	s.Equal(1, s.backend.calls())
	for _, state := range states {
		s.Equal(model.PhaseReady, state.Phase)
	}
}

func (s *ControllerSuite) TestReinitializeWhileInFlightIsNoop() {
	s.backend.gate = make(chan struct{})
	c := s.newController(DefaultConfig(), nil)

	done := make(chan model.SessionState)
	go func() { done <- c.Mount(s.ctx()) }()
	s.Eventually(func() bool { return s.backend.calls() == 1 }, time.Second, 5*time.Millisecond)

	state, started := c.Reinitialize(s.ctx())
	s.False(started)
	s.Equal(model.PhaseInitializing, state.Phase)
	s.True(state.IsLoading)

	close(s.backend.gate)
	s.Equal(model.PhaseReady, (<-done).Phase)
	s.Equal(1, s.backend.calls())
}

func (s *ControllerSuite) TestReinitializeAfterReadyResolvesAgain() {
	c := s.newController(DefaultConfig(), nil)
	c.Mount(s.ctx())

	s.backend.mu.Lock()
	s.backend.user = &model.User{ID: "user-2"}
	s.backend.mu.Unlock()

	state, started := c.Reinitialize(s.ctx())
	s.True(started)
	s.Equal(2, s.backend.calls())
	s.Require().NotNil(state.User)
	s.Equal(model.UserID("user-2"), state.User.ID)

	c.Mount(s.ctx())
	s.Equal(2, s.backend.calls())
}

func (s *ControllerSuite) TestUnauthorizedIsAnonymousReady() {
	s.backend.resolveStatus = http.StatusUnauthorized
	c := s.newController(DefaultConfig(), nil)

	state := c.Mount(s.ctx())

	s.Equal(model.PhaseReady, state.Phase)
	s.True(state.Anonymous())
	s.NoError(state.Err)
	s.Empty(s.recorder.Calls())
}

func (s *ControllerSuite) TestServerErrorIsAnonymousReady() {
	s.backend.resolveStatus = http.StatusInternalServerError
	state := s.newController(DefaultConfig(), nil).Mount(s.ctx())
	s.True(state.Anonymous())
}

func (s *ControllerSuite) TestAnonymousResponseIsReadyWithoutUser() {
	s.backend.user = nil
	c := s.newController(DefaultConfig(), nil)

	state := c.Mount(s.ctx())
	c.WaitPrefetch()

	s.True(state.Anonymous())
	s.Equal(0, s.backend.linked())
}

func (s *ControllerSuite) TestNetworkErrorFailsByDefault() {
	c := s.newController(DefaultConfig(), nil)
	s.srv.Close()

	state := c.Mount(s.ctx())

	s.Equal(model.PhaseFailed, state.Phase)
	s.False(state.IsReady)
	s.False(state.IsLoading)
	s.Require().Error(state.Err)
	s.True(transport.IsNetwork(state.Err))
}

func (s *ControllerSuite) TestNetworkErrorIsAnonymousWhenLenient() {
	cfg := DefaultConfig()
	cfg.Policy.FailOnUnreachable = false
	c := s.newController(cfg, nil)
	s.srv.Close()

	state := c.Mount(s.ctx())

	s.Equal(model.PhaseReady, state.Phase)
	s.True(state.Anonymous())
}

func (s *ControllerSuite) TestFailedCanBeReinitialized() {
	c := s.newController(DefaultConfig(), nil)
	s.srv.Close()
	s.Equal(model.PhaseFailed, c.Mount(s.ctx()).Phase)

	s.Equal(model.PhaseFailed, c.Mount(s.ctx()).Phase)
	_, started := c.Reinitialize(s.ctx())
	s.True(started)
}

func (s *ControllerSuite) TestIdentifyUsesBackendIdentity() {
	s.signal = "user=%7B%22id%22%3A999%7D&hash=abc"
	c := s.newController(DefaultConfig(), nil)

	c.Mount(s.ctx())

	s.Equal([]string{"user-1"}, s.recorder.Calls())
}

func (s *ControllerSuite) TestEntryParametersAreSentAndConsumed() {
	cfg := DefaultConfig()
	cfg.EntryURL = "https://app.example/?tgWebAppStartParam=invite_ABC__ref_42__page_profile"
	var pages []string
	nav := NavigatorFunc(func(_ context.Context, page string) error {
		pages = append(pages, page)
		return nil
	})
	c := s.newController(cfg, nav)

	c.Mount(s.ctx())

	s.Equal("ABC", s.backend.body().InviteCode)
	s.Equal("42", s.backend.body().ReferalID)
	s.Equal("profile", s.backend.body().Page)
	s.Equal("Europe/Berlin", s.backend.body().Timezone)
	s.Equal([]string{"profile"}, pages)

	c.Reinitialize(s.ctx())
	s.Empty(s.backend.body().InviteCode)
	s.Equal([]string{"profile"}, pages)
}

func (s *ControllerSuite) TestModeRedirectNavigates() {
	s.backend.mode = "onboarding"
	var pages []string
	c := s.newController(DefaultConfig(), NavigatorFunc(func(_ context.Context, page string) error {
		pages = append(pages, page)
		return nil
	}))

	c.Mount(s.ctx())

	s.Equal([]string{"onboarding"}, pages)
}

func (s *ControllerSuite) TestPrefetchesLinkedAccounts() {
	c := s.newController(DefaultConfig(), nil)

	c.Mount(s.ctx())
	c.WaitPrefetch()

	accounts, ok := cache.GetAs[*model.LinkedAccounts](c.Cache(), cache.KeyLinkedAccounts)
	s.Require().True(ok)
	s.Equal(int64(555), accounts.TelegramID)
}

func (s *ControllerSuite) TestPrefetchFailureIsIgnored() {
	s.backend.linkedStatus = http.StatusInternalServerError
	c := s.newController(DefaultConfig(), nil)

	state := c.Mount(s.ctx())
	c.WaitPrefetch()

	s.Equal(model.PhaseReady, state.Phase)
	_, ok := c.Cache().Get(cache.KeyLinkedAccounts)
	s.False(ok)
}

func (s *ControllerSuite) TestPlatformCookieIsWritten() {
	c := s.newController(DefaultConfig(), nil)
	c.Mount(s.ctx())

	value, ok := s.client.Cookie(platform.CookieName)
	s.True(ok)
	s.Equal("web", value)
}

func (s *ControllerSuite) TestWebModeSendsEmptyIdentityHeader() {
	c := s.newController(DefaultConfig(), nil)
	c.Mount(s.ctx())

	s.Contains(s.backend.header(), credentials.HeaderInitData)
	s.Empty(s.backend.header().Get(credentials.HeaderInitData))
	s.Empty(s.backend.header().Get(credentials.HeaderMock))
}

func (s *ControllerSuite) TestMockModeSendsMarker() {
	s.Require().NoError(platform.SetMockMode(context.Background(), s.store, true))
	c := s.newController(DefaultConfig(), nil)

	c.Mount(s.ctx())

	s.Equal("true", s.backend.header().Get(credentials.HeaderMock))
	s.Contains(s.backend.header().Get(credentials.HeaderInitData), "hash=mock_100000001")
	value, _ := s.client.Cookie(platform.CookieName)
	s.Equal("telegram", value)
}

func (s *ControllerSuite) TestInvalidateUserRefetches() {
	c := s.newController(DefaultConfig(), nil)
	c.Mount(s.ctx())

	s.backend.mu.Lock()
	s.backend.me = &model.User{ID: "user-1", TelegramID: 777}
	s.backend.mu.Unlock()

	user, err := c.InvalidateUser(s.ctx())
	s.Require().NoError(err)
	s.True(user.HasTelegram())

	state := c.State()
	s.Equal(model.PhaseReady, state.Phase)
	s.Equal(int64(777), state.User.TelegramID)
	s.Equal(1, s.backend.calls())
	s.True(s.sc.Resolved())

	cached, _ := cache.GetAs[*model.User](c.Cache(), cache.KeyCurrentUser)
	s.Equal(int64(777), cached.TelegramID)
	c.WaitPrefetch()
}

func (s *ControllerSuite) TestSubscribeSeesReady() {
	c := s.newController(DefaultConfig(), nil)
	states, cancel := c.Subscribe()
	defer cancel()

	s.Equal(model.PhaseNotStarted, (<-states).Phase)

	c.Mount(s.ctx())

	select {
	case state := <-states:
		s.Equal(model.PhaseReady, state.Phase)
	case <-time.After(time.Second):
		s.Fail("no state published")
	}
}
