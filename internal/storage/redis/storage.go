package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/miniapp-session/internal/model"
	"github.com/mcoot/miniapp-session/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
	keys   keyspace
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
		keys:   newKeyspace(cfg.KeyPrefix),
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
		keys:   newKeyspace(cfg.KeyPrefix),
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	prev, err := s.GetUser(ctx, user.ID)
	if err != nil && !errors.Is(err, model.ErrUserNotFound) {
		return err
	}

	// Save the record and keep the Telegram index consistent in one round trip
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keys.user(user.ID), data, 0)
	if prev != nil && prev.TelegramID != 0 && prev.TelegramID != user.TelegramID {
		pipe.Del(ctx, s.keys.telegramIndex(prev.TelegramID))
	}
	if user.TelegramID != 0 {
		pipe.Set(ctx, s.keys.telegramIndex(user.TelegramID), string(user.ID), 0)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	data, err := s.client.Get(ctx, s.keys.user(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Storage) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	id, err := s.client.Get(ctx, s.keys.telegramIndex(telegramID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	return s.GetUser(ctx, model.UserID(id))
}

// Account operations

func (s *Storage) SaveAccount(ctx context.Context, account *model.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.keys.account(account.Username), data, 0).Err()
}

func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	data, err := s.client.Get(ctx, s.keys.account(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	var account model.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// Handshake operations

func (s *Storage) SaveHandshake(ctx context.Context, hs *model.HandshakeRecord, ttl time.Duration) error {
	data, err := json.Marshal(hs)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.keys.handshake(hs.Token), data, ttl).Err()
}

func (s *Storage) GetHandshake(ctx context.Context, token string) (*model.HandshakeRecord, error) {
	data, err := s.client.Get(ctx, s.keys.handshake(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrHandshakeNotFound
		}
		return nil, err
	}

	var hs model.HandshakeRecord
	if err := json.Unmarshal(data, &hs); err != nil {
		return nil, err
	}
	return &hs, nil
}

func (s *Storage) DeleteHandshake(ctx context.Context, token string) error {
	return s.client.Del(ctx, s.keys.handshake(token)).Err()
}

// Referral operations

func (s *Storage) SaveReferral(ctx context.Context, referral *model.Referral) (bool, error) {
	data, err := json.Marshal(referral)
	if err != nil {
		return false, err
	}
	return s.client.SetNX(ctx, s.keys.referral(referral.UserID), data, 0).Result()
}

func (s *Storage) GetReferral(ctx context.Context, userID model.UserID) (*model.Referral, error) {
	data, err := s.client.Get(ctx, s.keys.referral(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	var referral model.Referral
	if err := json.Unmarshal(data, &referral); err != nil {
		return nil, err
	}
	return &referral, nil
}
