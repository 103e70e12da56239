package model

import "errors"

// Common errors used across the application
var (
	// Account errors
	ErrUserNotFound        = errors.New("user not found")
	ErrUsernameExists      = errors.New("username already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrInvalidInitData     = errors.New("invalid telegram init data")
	ErrTelegramAlreadyUsed = errors.New("telegram account is linked to another user")
	ErrUserAlreadyLinked   = errors.New("user already has a linked telegram account")

	// Handshake errors
	ErrHandshakeNotFound = errors.New("handshake not found")
	ErrHandshakeExpired  = errors.New("handshake expired")
	ErrHandshakeConsumed = errors.New("handshake already confirmed")
	ErrRateLimited       = errors.New("too many requests")

	// Poller errors
	ErrPollerBusy = errors.New("deep-link flow already in progress")
	ErrNoTarget   = errors.New("no deep-link target to open")

	// Preference errors
	ErrUnknownMockIdentity = errors.New("unknown mock identity")
)
