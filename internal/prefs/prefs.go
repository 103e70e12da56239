// Package prefs persists client-side preferences such as the mock-identity
// override used by local test builds.
package prefs

import "context"

// Keys used by the mock-identity override
const (
	KeyMockTelegram     = "mock_telegram"
	KeyMockTelegramUser = "mock_telegram_user"
)

// Values stored under KeyMockTelegram
const (
	MockEnabled  = "enabled"
	MockDisabled = "disabled"
)

// Store is a small persistent key/value store
type Store interface {
	// Get returns the value for key and whether it was present
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
