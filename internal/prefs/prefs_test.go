package prefs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

type StoreSuite struct {
	suite.Suite
	newStore func() Store
	ctx      context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func() Store { return NewMemory() }})
}

func TestFileStoreSuite(t *testing.T) {
	dir := t.TempDir()
	n := 0
	suite.Run(t, &StoreSuite{newStore: func() Store {
		n++
		return NewFile(filepath.Join(dir, "sub", string(rune('a'+n)), "prefs.json"))
	}})
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *StoreSuite) TestGetMissingKey() {
	store := s.newStore()

	v, ok, err := store.Get(s.ctx, KeyMockTelegram)
	s.Require().NoError(err)
	s.False(ok)
	s.Empty(v)
}

func (s *StoreSuite) TestSetThenGet() {
	store := s.newStore()

	s.Require().NoError(store.Set(s.ctx, KeyMockTelegram, MockEnabled))

	v, ok, err := store.Get(s.ctx, KeyMockTelegram)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(MockEnabled, v)
}

func (s *StoreSuite) TestDeleteRemovesKey() {
	store := s.newStore()
	s.Require().NoError(store.Set(s.ctx, KeyMockTelegramUser, "1001"))

	s.Require().NoError(store.Delete(s.ctx, KeyMockTelegramUser))

	_, ok, err := store.Get(s.ctx, KeyMockTelegramUser)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *StoreSuite) TestDeleteMissingKeyIsNoop() {
	store := s.newStore()
	s.NoError(store.Delete(s.ctx, "nope"))
}

func TestFileStoreSharedAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	ctx := context.Background()

	if err := NewFile(path).Set(ctx, KeyMockTelegram, MockDisabled); err != nil {
		t.Fatalf("set: %v", err)
	}

	v, ok, err := NewFile(path).Get(ctx, KeyMockTelegram)
	if err != nil || !ok || v != MockDisabled {
		t.Fatalf("got %q %v %v", v, ok, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("unexpected mode %v", info.Mode().Perm())
	}
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	_, _, err := NewFile(path).Get(context.Background(), KeyMockTelegram)
	if err == nil {
		t.Fatal("expected parse error")
	}
}
