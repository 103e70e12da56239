package handshake

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/miniapp-session/internal/dependencies/mocks"
	"github.com/mcoot/miniapp-session/internal/model"
	"github.com/mcoot/miniapp-session/internal/services/identity"
	"github.com/mcoot/miniapp-session/internal/storage/memory"
	"github.com/mcoot/miniapp-session/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage  *memory.Storage
	clock    *mocks.MockClock
	random   *mocks.MockRandom
	identity *identity.Service
	service  *Service
	ctx      context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.storage = memory.New(s.clock)
	s.random = mocks.NewMockRandom()
	s.random.QueueString("tokA", "tokB", "tokC")
	s.identity = identity.New(s.storage, s.clock, identity.DefaultConfig(), testutil.NopLogger())
	s.service = New(s.storage, s.identity, s.clock, s.random, Config{
		TTL:         5 * time.Minute,
		BotUsername: "test_bot",
		PollRate:    1,
		PollBurst:   3,
	}, testutil.NopLogger())
	s.ctx = context.Background()
}

func alice() model.TelegramProfile {
	return model.TelegramProfile{ID: 42, Username: "alice", FirstName: "Alice"}
}

func (s *ServiceSuite) registered() *model.User {
	user, err := s.identity.Register(s.ctx, "bob", "password123", "Bob")
	s.Require().NoError(err)
	return user
}

// Start

func (s *ServiceSuite) TestStartLogin() {
	started, err := s.service.StartLogin(s.ctx)
	s.Require().NoError(err)

	s.Equal("tokA", started.Token)
	s.Equal("https://t.me/test_bot?start=login_tokA", started.BotURL)
	s.Equal(5*time.Minute, started.ExpiresIn)

	record, err := s.storage.GetHandshake(s.ctx, "tokA")
	s.Require().NoError(err)
	s.Equal(model.FlowLogin, record.Purpose)
	s.Equal(model.PollPending, record.Status)
}

func (s *ServiceSuite) TestStartLinkRequiresUser() {
	_, err := s.service.StartLink(s.ctx, "")
	s.ErrorIs(err, model.ErrNotAuthenticated)
}

func (s *ServiceSuite) TestStartLinkRecordsInitiator() {
	user := s.registered()

	started, err := s.service.StartLink(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal("https://t.me/test_bot?start=link_tokA", started.BotURL)

	record, err := s.storage.GetHandshake(s.ctx, started.Token)
	s.Require().NoError(err)
	s.Equal(user.ID, record.Initiator)
}

// Poll

func (s *ServiceSuite) TestPollPending() {
	started, _ := s.service.StartLogin(s.ctx)

	outcome, user, err := s.service.Poll(s.ctx, model.FlowLogin, started.Token, "")
	s.Require().NoError(err)
	s.Equal(model.PollPending, outcome.Status)
	s.Nil(user)
}

func (s *ServiceSuite) TestPollUnknownToken() {
	_, _, err := s.service.Poll(s.ctx, model.FlowLogin, "nope", "")
	s.ErrorIs(err, model.ErrHandshakeNotFound)
}

func (s *ServiceSuite) TestPollEmptyToken() {
	_, _, err := s.service.Poll(s.ctx, model.FlowLogin, "", "")
	s.ErrorIs(err, model.ErrHandshakeNotFound)
}

func (s *ServiceSuite) TestPollWrongPurpose() {
	started, _ := s.service.StartLogin(s.ctx)

	_, _, err := s.service.Poll(s.ctx, model.FlowLink, started.Token, "")
	s.ErrorIs(err, model.ErrHandshakeNotFound)
}

func (s *ServiceSuite) TestPollLinkFromOtherUser() {
	user := s.registered()
	started, _ := s.service.StartLink(s.ctx, user.ID)

	_, _, err := s.service.Poll(s.ctx, model.FlowLink, started.Token, "u_someone_else")
	s.ErrorIs(err, model.ErrHandshakeNotFound)
}

func (s *ServiceSuite) TestPollAfterTTL() {
	started, _ := s.service.StartLogin(s.ctx)
	s.clock.Advance(5 * time.Minute)

	_, _, err := s.service.Poll(s.ctx, model.FlowLogin, started.Token, "")
	s.ErrorIs(err, model.ErrHandshakeNotFound)
}

func (s *ServiceSuite) TestPollRateLimited() {
	started, _ := s.service.StartLogin(s.ctx)

	for i := 0; i < 3; i++ {
		_, _, err := s.service.Poll(s.ctx, model.FlowLogin, started.Token, "")
		s.Require().NoError(err)
	}
	_, _, err := s.service.Poll(s.ctx, model.FlowLogin, started.Token, "")
	s.ErrorIs(err, model.ErrRateLimited)

	s.clock.Advance(time.Second)
	_, _, err = s.service.Poll(s.ctx, model.FlowLogin, started.Token, "")
	s.NoError(err)
}

func (s *ServiceSuite) TestRateLimitIsPerToken() {
	first, _ := s.service.StartLogin(s.ctx)
	second, _ := s.service.StartLogin(s.ctx)

	for i := 0; i < 3; i++ {
		_, _, _ = s.service.Poll(s.ctx, model.FlowLogin, first.Token, "")
	}
	_, _, err := s.service.Poll(s.ctx, model.FlowLogin, second.Token, "")
	s.NoError(err)
}

// Confirm

func (s *ServiceSuite) TestLoginConfirmVerifiesOnce() {
	started, _ := s.service.StartLogin(s.ctx)

	record, err := s.service.Confirm(s.ctx, started.Token, alice())
	s.Require().NoError(err)
	s.Equal(model.PollVerified, record.Status)

	outcome, user, err := s.service.Poll(s.ctx, model.FlowLogin, started.Token, "")
	s.Require().NoError(err)
	s.Equal(model.PollVerified, outcome.Status)
	s.Require().NotNil(user)
	s.Equal(int64(42), user.TelegramID)
	s.Equal(user.ID, outcome.UserID)

	_, _, err = s.service.Poll(s.ctx, model.FlowLogin, started.Token, "")
	s.ErrorIs(err, model.ErrHandshakeNotFound)
}

func (s *ServiceSuite) TestLoginConfirmReusesExistingUser() {
	existing, _, err := s.identity.EnsureTelegramUser(s.ctx, alice())
	s.Require().NoError(err)
	started, _ := s.service.StartLogin(s.ctx)

	record, err := s.service.Confirm(s.ctx, started.Token, alice())
	s.Require().NoError(err)
	s.Equal(existing.ID, record.UserID)
}

func (s *ServiceSuite) TestConfirmTwiceFails() {
	started, _ := s.service.StartLogin(s.ctx)
	_, _ = s.service.Confirm(s.ctx, started.Token, alice())

	_, err := s.service.Confirm(s.ctx, started.Token, alice())
	s.ErrorIs(err, model.ErrHandshakeConsumed)
}

func (s *ServiceSuite) TestConfirmUnknownToken() {
	_, err := s.service.Confirm(s.ctx, "nope", alice())
	s.ErrorIs(err, model.ErrHandshakeNotFound)
}

func (s *ServiceSuite) TestLinkConfirmCompletes() {
	user := s.registered()
	started, _ := s.service.StartLink(s.ctx, user.ID)

	_, err := s.service.Confirm(s.ctx, started.Token, alice())
	s.Require().NoError(err)

	outcome, _, err := s.service.Poll(s.ctx, model.FlowLink, started.Token, user.ID)
	s.Require().NoError(err)
	s.Equal(model.PollCompleted, outcome.Status)
	s.Equal(int64(42), outcome.TelegramID)

	linked, err := s.identity.GetUser(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(int64(42), linked.TelegramID)
}

func (s *ServiceSuite) TestLinkConfirmTelegramAlreadyUsed() {
	_, _, _ = s.identity.EnsureTelegramUser(s.ctx, alice())
	user := s.registered()
	started, _ := s.service.StartLink(s.ctx, user.ID)

	_, err := s.service.Confirm(s.ctx, started.Token, alice())
	s.Require().NoError(err)

	outcome, _, err := s.service.Poll(s.ctx, model.FlowLink, started.Token, user.ID)
	s.Require().NoError(err)
	s.Equal(model.PollError, outcome.Status)
	s.Equal(CodeTelegramAlreadyUsed, outcome.Code)
}

func (s *ServiceSuite) TestLinkConfirmUserAlreadyLinked() {
	user := s.registered()
	_, err := s.identity.LinkTelegram(s.ctx, user.ID, model.TelegramProfile{ID: 7, FirstName: "Old"})
	s.Require().NoError(err)
	started, _ := s.service.StartLink(s.ctx, user.ID)

	_, err = s.service.Confirm(s.ctx, started.Token, alice())
	s.Require().NoError(err)

	outcome, _, err := s.service.Poll(s.ctx, model.FlowLink, started.Token, user.ID)
	s.Require().NoError(err)
	s.Equal(model.PollError, outcome.Status)
	s.Equal(CodeUserAlreadyLinked, outcome.Code)
}

func (s *ServiceSuite) TestConfirmKeepsRemainingTTL() {
	started, _ := s.service.StartLogin(s.ctx)
	s.clock.Advance(4 * time.Minute)
	_, err := s.service.Confirm(s.ctx, started.Token, alice())
	s.Require().NoError(err)

	s.clock.Advance(time.Minute)
	_, _, err = s.service.Poll(s.ctx, model.FlowLogin, started.Token, "")
	s.ErrorIs(err, model.ErrHandshakeNotFound)
}
