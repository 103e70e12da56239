package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/miniapp-session/internal/model"
	"github.com/mcoot/miniapp-session/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	mini    *miniredis.Miniredis
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	s.storage = NewWithClient(client, DefaultConfig())
	s.Storage = s.storage
	s.Advance = s.mini.FastForward
	s.Ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) TestKeyLayout() {
	s.Require().NoError(s.storage.SaveUser(s.Ctx, &model.User{ID: "user-1", TelegramID: 42}))

	s.True(s.mini.Exists("miniapp:user:user-1"))
	owner, err := s.mini.Get("miniapp:idx:telegram:42")
	s.Require().NoError(err)
	s.Equal("user-1", owner)
}

func (s *StorageSuite) TestHandshakeTTLIsSet() {
	hs := &model.HandshakeRecord{Token: "tok", Status: model.PollPending}
	s.Require().NoError(s.storage.SaveHandshake(s.Ctx, hs, 5*time.Minute))

	s.Equal(5*time.Minute, s.mini.TTL("miniapp:handshake:tok"))
}

func (s *StorageSuite) TestUsersHaveNoTTL() {
	s.Require().NoError(s.storage.SaveUser(s.Ctx, &model.User{ID: "user-1"}))
	s.Equal(time.Duration(0), s.mini.TTL("miniapp:user:user-1"))
}

func (s *StorageSuite) TestNewWithInvalidURL() {
	_, err := New(Config{URL: "not-a-url"})
	s.Error(err)
}

func (s *StorageSuite) TestNewConnects() {
	cfg := DefaultConfig()
	cfg.URL = "redis://" + s.mini.Addr()

	store, err := New(cfg)
	s.Require().NoError(err)
	s.NoError(store.Close())
}

func (s *StorageSuite) TestKeyPrefixIsConfigurable() {
	client := redis.NewClient(&redis.Options{Addr: s.mini.Addr()})
	store := NewWithClient(client, Config{KeyPrefix: "staging"})
	defer func() { _ = store.Close() }()

	s.Require().NoError(store.SaveAccount(s.Ctx, &model.Account{UserID: "user-1", Username: "erin"}))
	s.True(s.mini.Exists("staging:account:erin"))
	s.False(s.mini.Exists("miniapp:account:erin"))
}
