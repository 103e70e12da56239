package platform

import (
	"context"
	"net/http/cookiejar"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/miniapp-session/internal/model"
	"github.com/mcoot/miniapp-session/internal/prefs"
	"github.com/mcoot/miniapp-session/internal/testutil"
)

const liveInitData = "query_id=AAE&user=%7B%22id%22%3A42%7D&auth_date=1700000000&hash=abc"

type ProbeSuite struct {
	suite.Suite
	store *prefs.Memory
	ctx   context.Context
}

func TestProbeSuite(t *testing.T) {
	suite.Run(t, new(ProbeSuite))
}

func (s *ProbeSuite) SetupTest() {
	s.store = prefs.NewMemory()
	s.ctx = context.Background()
}

func (s *ProbeSuite) probe(signal string, allowOverrides bool) *Probe {
	return NewProbe(StaticSignals(signal), s.store, Config{AllowOverrides: allowOverrides}, testutil.NopLogger())
}

func (s *ProbeSuite) TestNoSignalIsWeb() {
	p, err := s.probe("", true).Detect(s.ctx)
	s.Require().NoError(err)
	s.Equal(model.Platform{Kind: model.PlatformWeb}, p)
}

func (s *ProbeSuite) TestLiveSignalIsEmbedded() {
	p, err := s.probe(liveInitData, true).Detect(s.ctx)
	s.Require().NoError(err)
	s.Equal(model.Platform{Kind: model.PlatformEmbedded}, p)
}

func (s *ProbeSuite) TestMockEnabledWinsOverEverything() {
	s.Require().NoError(SetMockMode(s.ctx, s.store, true))

	p, err := s.probe(liveInitData, true).Detect(s.ctx)
	s.Require().NoError(err)
	s.Equal(model.Platform{Kind: model.PlatformEmbedded, UsingMock: true}, p)

	p, err = s.probe("", true).Detect(s.ctx)
	s.Require().NoError(err)
	s.True(p.UsingMock)
}

func (s *ProbeSuite) TestMockDisabledForcesWebDespiteLiveSignal() {
	s.Require().NoError(SetMockMode(s.ctx, s.store, false))

	p, err := s.probe(liveInitData, true).Detect(s.ctx)
	s.Require().NoError(err)
	s.Equal(model.Platform{Kind: model.PlatformWeb}, p)
}

func (s *ProbeSuite) TestOverridesIgnoredWhenNotAllowed() {
	s.Require().NoError(SetMockMode(s.ctx, s.store, true))

	p, err := s.probe("", false).Detect(s.ctx)
	s.Require().NoError(err)
	s.Equal(model.Platform{Kind: model.PlatformWeb}, p)
}

func (s *ProbeSuite) TestUnknownFlagValueFallsThroughToSignal() {
	s.Require().NoError(s.store.Set(s.ctx, prefs.KeyMockTelegram, "maybe"))

	p, err := s.probe(liveInitData, true).Detect(s.ctx)
	s.Require().NoError(err)
	s.Equal(model.PlatformEmbedded, p.Kind)
	s.False(p.UsingMock)
}

func (s *ProbeSuite) TestClearOverridesRestoresSignalDetection() {
	s.Require().NoError(SetMockMode(s.ctx, s.store, false))
	s.Require().NoError(ClearOverrides(s.ctx, s.store))

	p, err := s.probe(liveInitData, true).Detect(s.ctx)
	s.Require().NoError(err)
	s.Equal(model.PlatformEmbedded, p.Kind)
}

// Mock identity selection

func (s *ProbeSuite) TestSelectedIdentityFallsBackToFirst() {
	s.Require().NoError(SetMockMode(s.ctx, s.store, true))

	identity, err := s.probe("", true).MockIdentity(s.ctx)
	s.Require().NoError(err)
	s.Equal(DefaultMockIdentities()[0], identity)
	s.NotZero(identity.ID)
	s.NotEmpty(identity.Username)
}

func (s *ProbeSuite) TestSelectedIdentityWithUnknownStoredIDFallsBack() {
	s.Require().NoError(s.store.Set(s.ctx, prefs.KeyMockTelegramUser, "999"))

	identity, err := s.probe("", true).MockIdentity(s.ctx)
	s.Require().NoError(err)
	s.Equal(DefaultMockIdentities()[0], identity)
}

func (s *ProbeSuite) TestSelectIdentityPersistsChoice() {
	set := DefaultMockIdentities()

	_, err := SelectIdentity(s.ctx, s.store, set, set[2].ID)
	s.Require().NoError(err)

	identity, err := s.probe("", true).MockIdentity(s.ctx)
	s.Require().NoError(err)
	s.Equal(set[2], identity)
}

func (s *ProbeSuite) TestSelectUnknownIdentityFails() {
	_, err := SelectIdentity(s.ctx, s.store, DefaultMockIdentities(), 1)
	s.ErrorIs(err, model.ErrUnknownMockIdentity)
}

func TestSynthesizeInitData(t *testing.T) {
	identity := DefaultMockIdentities()[1]
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	raw, err := SynthesizeInitData(identity, now)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	values, err := url.ParseQuery(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if values.Get("auth_date") != "1704110400" {
		t.Fatalf("auth_date = %q", values.Get("auth_date"))
	}
	if values.Get("hash") != "mock_100000002" {
		t.Fatalf("hash = %q", values.Get("hash"))
	}
	if values.Get("user") == "" {
		t.Fatal("user missing")
	}
}

func TestWriteCookieIsIdempotent(t *testing.T) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	u, _ := url.Parse("http://127.0.0.1:8080/")

	WriteCookie(jar, u, model.Platform{Kind: model.PlatformEmbedded})
	WriteCookie(jar, u, model.Platform{Kind: model.PlatformEmbedded})

	cookies := jar.Cookies(u)
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	if cookies[0].Name != CookieName || cookies[0].Value != "telegram" {
		t.Fatalf("unexpected cookie %s=%s", cookies[0].Name, cookies[0].Value)
	}

	WriteCookie(jar, u, model.Platform{Kind: model.PlatformWeb})
	cookies = jar.Cookies(u)
	if len(cookies) != 1 || cookies[0].Value != "web" {
		t.Fatalf("expected web cookie, got %+v", cookies)
	}
}
