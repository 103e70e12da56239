// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/miniapp-session/internal/model"
	"github.com/mcoot/miniapp-session/internal/storage"
)

// Suite runs the storage contract against a backend. Embed it and set
// Storage and Advance in SetupTest.
type Suite struct {
	suite.Suite
	Storage storage.Storage
	// Advance moves the backend's notion of time forward
	Advance func(d time.Duration)
	Ctx     context.Context
}

var now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// User tests

func (s *Suite) TestSaveAndGetUser() {
	user := &model.User{ID: "user-1", DisplayName: "Alice", CreatedAt: now}
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, user))

	got, err := s.Storage.GetUser(s.Ctx, "user-1")
	s.Require().NoError(err)
	s.Equal("Alice", got.DisplayName)
	s.Equal(int64(0), got.TelegramID)
}

func (s *Suite) TestGetUserNotFound() {
	_, err := s.Storage.GetUser(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestGetUserByTelegramID() {
	user := &model.User{ID: "user-1", TelegramID: 42, DisplayName: "Alice"}
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, user))

	got, err := s.Storage.GetUserByTelegramID(s.Ctx, 42)
	s.Require().NoError(err)
	s.Equal(model.UserID("user-1"), got.ID)

	_, err = s.Storage.GetUserByTelegramID(s.Ctx, 43)
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestTelegramIndexFollowsUpdates() {
	user := &model.User{ID: "user-1", DisplayName: "Alice"}
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, user))
	_, err := s.Storage.GetUserByTelegramID(s.Ctx, 42)
	s.ErrorIs(err, model.ErrUserNotFound)

	user.TelegramID = 42
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, user))
	got, err := s.Storage.GetUserByTelegramID(s.Ctx, 42)
	s.Require().NoError(err)
	s.Equal(model.UserID("user-1"), got.ID)

	user.TelegramID = 77
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, user))
	_, err = s.Storage.GetUserByTelegramID(s.Ctx, 42)
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestReturnedUserIsACopy() {
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, &model.User{ID: "user-1", DisplayName: "Alice"}))

	got, err := s.Storage.GetUser(s.Ctx, "user-1")
	s.Require().NoError(err)
	got.DisplayName = "Mallory"

	again, err := s.Storage.GetUser(s.Ctx, "user-1")
	s.Require().NoError(err)
	s.Equal("Alice", again.DisplayName)
}

// Account tests

func (s *Suite) TestSaveAndGetAccount() {
	account := &model.Account{UserID: "user-1", Username: "alice", PasswordHash: "hash"}
	s.Require().NoError(s.Storage.SaveAccount(s.Ctx, account))

	got, err := s.Storage.GetAccountByUsername(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.UserID("user-1"), got.UserID)
	s.Equal("hash", got.PasswordHash)

	_, err = s.Storage.GetAccountByUsername(s.Ctx, "bob")
	s.ErrorIs(err, model.ErrUserNotFound)
}

// Handshake tests

func (s *Suite) TestSaveAndGetHandshake() {
	hs := &model.HandshakeRecord{
		Token:     "tok",
		Purpose:   model.FlowLink,
		Status:    model.PollPending,
		Initiator: "user-1",
		CreatedAt: now,
		ExpiresAt: now.Add(5 * time.Minute),
	}
	s.Require().NoError(s.Storage.SaveHandshake(s.Ctx, hs, 5*time.Minute))

	got, err := s.Storage.GetHandshake(s.Ctx, "tok")
	s.Require().NoError(err)
	s.Equal(model.FlowLink, got.Purpose)
	s.Equal(model.PollPending, got.Status)
	s.Equal(model.UserID("user-1"), got.Initiator)
}

func (s *Suite) TestHandshakeExpiresAfterTTL() {
	hs := &model.HandshakeRecord{Token: "tok", Purpose: model.FlowLogin, Status: model.PollPending}
	s.Require().NoError(s.Storage.SaveHandshake(s.Ctx, hs, time.Minute))

	s.Advance(59 * time.Second)
	_, err := s.Storage.GetHandshake(s.Ctx, "tok")
	s.NoError(err)

	s.Advance(2 * time.Second)
	_, err = s.Storage.GetHandshake(s.Ctx, "tok")
	s.ErrorIs(err, model.ErrHandshakeNotFound)
}

func (s *Suite) TestDeleteHandshake() {
	hs := &model.HandshakeRecord{Token: "tok", Status: model.PollPending}
	s.Require().NoError(s.Storage.SaveHandshake(s.Ctx, hs, time.Minute))
	s.Require().NoError(s.Storage.DeleteHandshake(s.Ctx, "tok"))

	_, err := s.Storage.GetHandshake(s.Ctx, "tok")
	s.ErrorIs(err, model.ErrHandshakeNotFound)

	s.NoError(s.Storage.DeleteHandshake(s.Ctx, "tok"))
}

// Referral tests

func (s *Suite) TestReferralRecordedOnce() {
	first := &model.Referral{UserID: "user-1", ReferrerID: "42", InviteCode: "ABC", RecordedAt: now}
	saved, err := s.Storage.SaveReferral(s.Ctx, first)
	s.Require().NoError(err)
	s.True(saved)

	saved, err = s.Storage.SaveReferral(s.Ctx, &model.Referral{UserID: "user-1", ReferrerID: "99"})
	s.Require().NoError(err)
	s.False(saved)

	got, err := s.Storage.GetReferral(s.Ctx, "user-1")
	s.Require().NoError(err)
	s.Equal("42", got.ReferrerID)
	s.Equal("ABC", got.InviteCode)
}

func (s *Suite) TestGetReferralNotFound() {
	_, err := s.Storage.GetReferral(s.Ctx, "user-1")
	s.ErrorIs(err, model.ErrUserNotFound)
}
