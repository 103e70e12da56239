package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mcoot/miniapp-session/internal/dependencies/clock"
	"github.com/mcoot/miniapp-session/internal/model"
	"github.com/mcoot/miniapp-session/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu    sync.RWMutex
	clock clock.Clock

	users         map[model.UserID]*model.User
	telegramIndex map[int64]model.UserID
	accounts      map[string]*model.Account
	handshakes    map[string]handshakeEntry
	referrals     map[model.UserID]*model.Referral
}

type handshakeEntry struct {
	record   model.HandshakeRecord
	deadline time.Time
}

// New creates a new in-memory storage instance. Handshake TTLs are measured
// with clk; nil means the system clock.
func New(clk clock.Clock) *Storage {
	if clk == nil {
		clk = clock.New()
	}
	return &Storage{
		clock:         clk,
		users:         make(map[model.UserID]*model.User),
		telegramIndex: make(map[int64]model.UserID),
		accounts:      make(map[string]*model.Account),
		handshakes:    make(map[string]handshakeEntry),
		referrals:     make(map[model.UserID]*model.Referral),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.users[user.ID]; ok && prev.TelegramID != 0 && prev.TelegramID != user.TelegramID {
		delete(s.telegramIndex, prev.TelegramID)
	}
	u := *user
	s.users[user.ID] = &u
	if user.TelegramID != 0 {
		s.telegramIndex[user.TelegramID] = user.ID
	}
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (s *Storage) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.telegramIndex[telegramID]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

// Account operations

func (s *Storage) SaveAccount(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := *account
	s.accounts[account.Username] = &a
	return nil
}

func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[username]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	a := *account
	return &a, nil
}

// Handshake operations

func (s *Storage) SaveHandshake(ctx context.Context, hs *model.HandshakeRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handshakes[hs.Token] = handshakeEntry{
		record:   *hs,
		deadline: s.clock.Now().Add(ttl),
	}
	return nil
}

func (s *Storage) GetHandshake(ctx context.Context, token string) (*model.HandshakeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.handshakes[token]
	if !ok {
		return nil, model.ErrHandshakeNotFound
	}
	if !s.clock.Now().Before(entry.deadline) {
		delete(s.handshakes, token)
		return nil, model.ErrHandshakeNotFound
	}
	hs := entry.record
	return &hs, nil
}

func (s *Storage) DeleteHandshake(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handshakes, token)
	return nil
}

// Referral operations

func (s *Storage) SaveReferral(ctx context.Context, referral *model.Referral) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.referrals[referral.UserID]; ok {
		return false, nil
	}
	r := *referral
	s.referrals[referral.UserID] = &r
	return true, nil
}

func (s *Storage) GetReferral(ctx context.Context, userID model.UserID) (*model.Referral, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	referral, ok := s.referrals[userID]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	r := *referral
	return &r, nil
}
