// Package identity owns dev backend accounts: password registration and
// login, signed session cookies, Telegram init data and identity linking.
package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/miniapp-session/internal/dependencies/clock"
	"github.com/mcoot/miniapp-session/internal/model"
	"github.com/mcoot/miniapp-session/internal/storage"
)

// Service handles accounts and sessions
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	cfg     Config
	logger  *slog.Logger

	// serialises user creation and linking so the Telegram index stays unique
	mu sync.Mutex
}

// Config holds configuration for the identity service
type Config struct {
	SessionSecret   []byte
	SessionDuration time.Duration
	BotToken        string
	AllowMock       bool
	InitDataMaxAge  time.Duration
}

// DefaultConfig returns default identity configuration
func DefaultConfig() Config {
	return Config{
		SessionSecret:   []byte("dev-session-secret"),
		SessionDuration: 24 * time.Hour,
		InitDataMaxAge:  24 * time.Hour,
	}
}

// New creates a new identity service
func New(storage storage.Storage, clock clock.Clock, cfg Config, logger *slog.Logger) *Service {
	def := DefaultConfig()
	if len(cfg.SessionSecret) == 0 {
		cfg.SessionSecret = def.SessionSecret
	}
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = def.SessionDuration
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Service{
		storage: storage,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
	}
}

// Register creates a password account
func (s *Service) Register(ctx context.Context, username, password, displayName string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.storage.GetAccountByUsername(ctx, username)
	if err == nil {
		return nil, model.ErrUsernameExists
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	if displayName == "" {
		displayName = username
	}
	now := s.clock.Now()
	user := &model.User{
		ID:          newUserID(),
		Username:    username,
		DisplayName: displayName,
		CreatedAt:   now,
	}
	account := &model.Account{
		UserID:       user.ID,
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	if err := s.storage.SaveAccount(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.String("user_id", string(user.ID)), slog.String("username", username))
	return user, nil
}

// Login checks a username and password
func (s *Service) Login(ctx context.Context, username, password string) (*model.User, error) {
	account, err := s.storage.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	return s.storage.GetUser(ctx, account.UserID)
}

// GetUser returns a user by id
func (s *Service) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	return s.storage.GetUser(ctx, id)
}

// Authenticate decodes init data sent by a client. Mock init data is only
// accepted when mock is set and the service allows mock identities.
func (s *Service) Authenticate(raw string, mock bool) (*model.TelegramProfile, error) {
	data, err := ParseInitData(raw)
	if err != nil {
		return nil, err
	}
	if mock {
		if !s.cfg.AllowMock {
			return nil, fmt.Errorf("%w: mock identities disabled", model.ErrInvalidInitData)
		}
		if !data.IsMock() {
			return nil, fmt.Errorf("%w: bad mock hash", model.ErrInvalidInitData)
		}
		return &data.User, nil
	}
	if err := data.Verify(s.cfg.BotToken, s.clock.Now(), s.cfg.InitDataMaxAge); err != nil {
		return nil, err
	}
	return &data.User, nil
}

// FindTelegramUser returns the user a Telegram identity belongs to
func (s *Service) FindTelegramUser(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.storage.GetUserByTelegramID(ctx, telegramID)
}

// EnsureTelegramUser returns the user owning the Telegram identity, creating
// one if none exists. created reports whether a new user was made.
func (s *Service) EnsureTelegramUser(ctx context.Context, profile model.TelegramProfile) (user *model.User, created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err = s.storage.GetUserByTelegramID(ctx, profile.ID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, false, err
	}

	user = &model.User{
		ID:          newUserID(),
		TelegramID:  profile.ID,
		Username:    profile.Username,
		DisplayName: profile.DisplayName(),
		AvatarURL:   profile.PhotoURL,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.storage.SaveUser(ctx, user); err != nil {
		return nil, false, err
	}

	s.logger.Info("telegram user created",
		slog.String("user_id", string(user.ID)),
		slog.Int64("telegram_id", profile.ID),
	)
	return user, true, nil
}

// LinkTelegram attaches a Telegram identity to an existing user. Linking the
// identity the user already has is a no-op.
func (s *Service) LinkTelegram(ctx context.Context, userID model.UserID, profile model.TelegramProfile) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.storage.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	owner, err := s.storage.GetUserByTelegramID(ctx, profile.ID)
	switch {
	case err == nil && owner.ID != userID:
		return nil, model.ErrTelegramAlreadyUsed
	case err != nil && !errors.Is(err, model.ErrUserNotFound):
		return nil, err
	}

	if user.TelegramID == profile.ID {
		return user, nil
	}
	if user.HasTelegram() {
		return nil, model.ErrUserAlreadyLinked
	}

	user.TelegramID = profile.ID
	if user.AvatarURL == "" {
		user.AvatarURL = profile.PhotoURL
	}
	if err := s.storage.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("telegram linked",
		slog.String("user_id", string(user.ID)),
		slog.Int64("telegram_id", profile.ID),
	)
	return user, nil
}

// LinkedAccounts summarises the identities attached to a user
func (s *Service) LinkedAccounts(ctx context.Context, userID model.UserID) (*model.LinkedAccounts, error) {
	user, err := s.storage.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.LinkedAccounts{
		TelegramID: user.TelegramID,
		Linked:     user.HasTelegram(),
	}, nil
}

// RecordReferral stores how a user arrived. Only the first referral for a
// user is kept; recorded reports whether this one was.
func (s *Service) RecordReferral(ctx context.Context, userID model.UserID, referrerID, inviteCode string) (bool, error) {
	if referrerID == "" && inviteCode == "" {
		return false, nil
	}
	if referrerID == string(userID) {
		referrerID = ""
		if inviteCode == "" {
			return false, nil
		}
	}
	recorded, err := s.storage.SaveReferral(ctx, &model.Referral{
		UserID:     userID,
		ReferrerID: referrerID,
		InviteCode: inviteCode,
		RecordedAt: s.clock.Now(),
	})
	if err != nil {
		return false, err
	}
	if recorded {
		s.logger.Info("referral recorded",
			slog.String("user_id", string(userID)),
			slog.String("referrer_id", referrerID),
			slog.String("invite_code", inviteCode),
		)
	}
	return recorded, nil
}

func newUserID() model.UserID {
	return model.UserID("u_" + uuid.NewString())
}
