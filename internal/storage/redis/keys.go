package redis

import (
	"fmt"

	"github.com/mcoot/miniapp-session/internal/model"
)

// defaultKeyPrefix namespaces all dev backend data
const defaultKeyPrefix = "miniapp"

// keyspace builds Redis keys under a prefix
type keyspace string

func newKeyspace(prefix string) keyspace {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return keyspace(prefix)
}

// user returns the key for a User
func (k keyspace) user(id model.UserID) string {
	return fmt.Sprintf("%s:user:%s", k, id)
}

// telegramIndex returns the key for the telegram_id -> user_id index
func (k keyspace) telegramIndex(telegramID int64) string {
	return fmt.Sprintf("%s:idx:telegram:%d", k, telegramID)
}

// account returns the key for a password Account
func (k keyspace) account(username string) string {
	return fmt.Sprintf("%s:account:%s", k, username)
}

// handshake returns the key for a deep-link handshake
func (k keyspace) handshake(token string) string {
	return fmt.Sprintf("%s:handshake:%s", k, token)
}

// referral returns the key for a user's referral
func (k keyspace) referral(userID model.UserID) string {
	return fmt.Sprintf("%s:referral:%s", k, userID)
}
