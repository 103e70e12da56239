// Package handshake runs the server side of the deep-link flows: it issues
// one-time tokens, answers polls and applies the bot's confirmation.
package handshake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/miniapp-session/internal/dependencies/clock"
	"github.com/mcoot/miniapp-session/internal/dependencies/random"
	"github.com/mcoot/miniapp-session/internal/model"
	"github.com/mcoot/miniapp-session/internal/services/identity"
	"github.com/mcoot/miniapp-session/internal/storage"
)

// Error codes reported by failed link handshakes
const (
	CodeTelegramAlreadyUsed = "telegram_already_used"
	CodeUserAlreadyLinked   = "user_already_linked"
)

const tokenLength = 32

// Config holds configuration for the handshake service
type Config struct {
	TTL         time.Duration
	BotUsername string
	PollRate    float64
	PollBurst   int
}

// DefaultConfig returns default handshake configuration
func DefaultConfig() Config {
	return Config{
		TTL:         5 * time.Minute,
		BotUsername: "miniapp_dev_bot",
		PollRate:    1,
		PollBurst:   3,
	}
}

// Started is a freshly issued handshake
type Started struct {
	Token     string
	BotURL    string
	ExpiresIn time.Duration
}

// Service manages handshakes
type Service struct {
	storage  storage.Storage
	identity *identity.Service
	clock    clock.Clock
	random   random.Random
	limiter  *Limiter
	cfg      Config
	logger   *slog.Logger

	// serialises confirmation so a token is applied once
	mu sync.Mutex
}

// New creates a new handshake service
func New(storage storage.Storage, identity *identity.Service, clock clock.Clock, random random.Random, cfg Config, logger *slog.Logger) *Service {
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.BotUsername == "" {
		cfg.BotUsername = def.BotUsername
	}
	if cfg.PollRate <= 0 {
		cfg.PollRate = def.PollRate
	}
	if cfg.PollBurst <= 0 {
		cfg.PollBurst = def.PollBurst
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Service{
		storage:  storage,
		identity: identity,
		clock:    clock,
		random:   random,
		limiter:  NewLimiter(cfg.PollRate, cfg.PollBurst),
		cfg:      cfg,
		logger:   logger,
	}
}

// BotURL is the deep link that hands token to the bot
func (s *Service) BotURL(purpose model.FlowPurpose, token string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s_%s", s.cfg.BotUsername, purpose, token)
}

// StartLogin issues a login handshake
func (s *Service) StartLogin(ctx context.Context) (*Started, error) {
	return s.start(ctx, model.FlowLogin, "")
}

// StartLink issues a link handshake for an authenticated user
func (s *Service) StartLink(ctx context.Context, userID model.UserID) (*Started, error) {
	if userID == "" {
		return nil, model.ErrNotAuthenticated
	}
	return s.start(ctx, model.FlowLink, userID)
}

func (s *Service) start(ctx context.Context, purpose model.FlowPurpose, initiator model.UserID) (*Started, error) {
	now := s.clock.Now()
	record := &model.HandshakeRecord{
		Token:     s.random.String(tokenLength, random.TokenAlphabet),
		Purpose:   purpose,
		Status:    model.PollPending,
		Initiator: initiator,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.TTL),
	}
	if err := s.storage.SaveHandshake(ctx, record, s.cfg.TTL); err != nil {
		return nil, fmt.Errorf("save handshake: %w", err)
	}

	s.logger.Info("handshake started",
		slog.String("purpose", string(purpose)),
		slog.String("initiator", string(initiator)),
	)
	return &Started{
		Token:     record.Token,
		BotURL:    s.BotURL(purpose, record.Token),
		ExpiresIn: s.cfg.TTL,
	}, nil
}

// Poll reports the state of a handshake. A terminal outcome is reported once;
// the record is gone afterwards. For a verified login the signed-in user is
// returned too. Link handshakes only answer the user that started them.
func (s *Service) Poll(ctx context.Context, purpose model.FlowPurpose, token string, caller model.UserID) (*model.PollOutcome, *model.User, error) {
	if token == "" {
		return nil, nil, model.ErrHandshakeNotFound
	}
	now := s.clock.Now()
	if !s.limiter.Allow(token, now) {
		return nil, nil, model.ErrRateLimited
	}

	record, err := s.storage.GetHandshake(ctx, token)
	if err != nil {
		if errors.Is(err, model.ErrHandshakeNotFound) {
			s.limiter.Forget(token)
		}
		return nil, nil, err
	}
	if record.Purpose != purpose || (purpose == model.FlowLink && record.Initiator != caller) {
		return nil, nil, model.ErrHandshakeNotFound
	}
	if record.Expired(now) {
		s.discard(ctx, token)
		return nil, nil, model.ErrHandshakeExpired
	}

	outcome := record.Outcome()
	if outcome.Status == model.PollPending {
		return &outcome, nil, nil
	}

	s.discard(ctx, token)

	var user *model.User
	if outcome.Status == model.PollVerified {
		user, err = s.identity.GetUser(ctx, record.UserID)
		if err != nil {
			return nil, nil, err
		}
	}
	return &outcome, user, nil
}

// Confirm applies the bot's confirmation that profile opened the deep link
func (s *Service) Confirm(ctx context.Context, token string, profile model.TelegramProfile) (*model.HandshakeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.storage.GetHandshake(ctx, token)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if record.Expired(now) {
		s.discard(ctx, token)
		return nil, model.ErrHandshakeExpired
	}
	if record.Status != model.PollPending {
		return nil, model.ErrHandshakeConsumed
	}

	switch record.Purpose {
	case model.FlowLogin:
		user, _, err := s.identity.EnsureTelegramUser(ctx, profile)
		if err != nil {
			return nil, err
		}
		record.Status = model.PollVerified
		record.UserID = user.ID
		record.TelegramID = profile.ID

	case model.FlowLink:
		_, err := s.identity.LinkTelegram(ctx, record.Initiator, profile)
		switch {
		case err == nil:
			record.Status = model.PollCompleted
			record.UserID = record.Initiator
			record.TelegramID = profile.ID
		case errors.Is(err, model.ErrTelegramAlreadyUsed):
			record.Status = model.PollError
			record.ErrorCode = CodeTelegramAlreadyUsed
		case errors.Is(err, model.ErrUserAlreadyLinked):
			record.Status = model.PollError
			record.ErrorCode = CodeUserAlreadyLinked
		default:
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown handshake purpose %q", record.Purpose)
	}

	if err := s.storage.SaveHandshake(ctx, record, clock.Until(s.clock, record.ExpiresAt)); err != nil {
		return nil, fmt.Errorf("save handshake: %w", err)
	}

	s.logger.Info("handshake confirmed",
		slog.String("purpose", string(record.Purpose)),
		slog.String("status", string(record.Status)),
		slog.Int64("telegram_id", profile.ID),
	)
	return record, nil
}

func (s *Service) discard(ctx context.Context, token string) {
	s.limiter.Forget(token)
	if err := s.storage.DeleteHandshake(ctx, token); err != nil {
		s.logger.Warn("failed to delete handshake", slog.String("error", err.Error()))
	}
}
