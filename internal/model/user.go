package model

import "time"

// UserID is the backend-assigned identity of an account
type UserID string

// User is the account record returned by the backend
type User struct {
	ID          UserID    `json:"id"`
	TelegramID  int64     `json:"telegram_id,omitempty"`
	Username    string    `json:"username,omitempty"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasTelegram reports whether a Telegram identity is linked to the account
func (u *User) HasTelegram() bool {
	return u != nil && u.TelegramID != 0
}

// LinkedAccounts summarises the external identities attached to the account
type LinkedAccounts struct {
	TelegramID int64 `json:"telegram_id,omitempty"`
	Linked     bool  `json:"linked"`
}

// Account holds password credentials for a user
type Account struct {
	UserID       UserID    `json:"user_id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// Referral records who brought a user in. At most one per user.
type Referral struct {
	UserID     UserID    `json:"user_id"`
	ReferrerID string    `json:"referrer_id,omitempty"`
	InviteCode string    `json:"invite_code,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}
