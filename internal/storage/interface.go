package storage

import (
	"context"
	"time"

	"github.com/mcoot/miniapp-session/internal/model"
)

// Storage defines the interface for dev backend persistence
type Storage interface {
	// User operations. SaveUser keeps the Telegram index in sync.
	SaveUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)

	// Password account operations
	SaveAccount(ctx context.Context, account *model.Account) error
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)

	// Handshake operations. Records vanish after ttl.
	SaveHandshake(ctx context.Context, hs *model.HandshakeRecord, ttl time.Duration) error
	GetHandshake(ctx context.Context, token string) (*model.HandshakeRecord, error)
	DeleteHandshake(ctx context.Context, token string) error

	// Referral operations. SaveReferral reports false when the user already has one.
	SaveReferral(ctx context.Context, referral *model.Referral) (bool, error)
	GetReferral(ctx context.Context, userID model.UserID) (*model.Referral, error)
}
