package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	initdata "github.com/telegram-mini-apps/init-data-golang"

	"github.com/mcoot/miniapp-session/internal/model"
)

// mockHashPrefix marks init data synthesized for a mock identity
const mockHashPrefix = "mock_"

// InitData is decoded Telegram Mini App init data
type InitData struct {
	User     model.TelegramProfile
	AuthDate time.Time
	Hash     string
	raw      string
}

// ParseInitData decodes init data without checking its signature
func ParseInitData(raw string) (*InitData, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", model.ErrInvalidInitData)
	}
	if _, err := url.ParseQuery(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidInitData, err)
	}

	data, err := initdata.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidInitData, err)
	}
	if data.User.ID == 0 {
		return nil, fmt.Errorf("%w: missing user id", model.ErrInvalidInitData)
	}

	var authDate time.Time
	if data.AuthDateRaw != 0 {
		authDate = data.AuthDate().UTC()
	}

	return &InitData{
		User: model.TelegramProfile{
			ID:        data.User.ID,
			Username:  data.User.Username,
			FirstName: data.User.FirstName,
			LastName:  data.User.LastName,
			PhotoURL:  data.User.PhotoURL,
		},
		AuthDate: authDate,
		Hash:     data.Hash,
		raw:      raw,
	}, nil
}

// IsMock reports whether the hash is a mock marker for the carried user
func (d *InitData) IsMock() bool {
	return d.Hash == mockHashPrefix+strconv.FormatInt(d.User.ID, 10)
}

// Verify checks the signature Telegram attaches to init data and that the
// data is no older than maxAge (zero disables the age check). Age is measured
// against now rather than the wall clock.
func (d *InitData) Verify(botToken string, now time.Time, maxAge time.Duration) error {
	if botToken == "" {
		return fmt.Errorf("%w: no bot token configured", model.ErrInvalidInitData)
	}
	if err := initdata.Validate(d.raw, botToken, 0); err != nil {
		if errors.Is(err, initdata.ErrSignInvalid) {
			return fmt.Errorf("%w: signature mismatch", model.ErrInvalidInitData)
		}
		return fmt.Errorf("%w: %v", model.ErrInvalidInitData, err)
	}
	if maxAge > 0 && (d.AuthDate.IsZero() || now.Sub(d.AuthDate) > maxAge) {
		return fmt.Errorf("%w: stale auth_date", model.ErrInvalidInitData)
	}
	return nil
}

// SignInitData produces init data for profile signed with botToken, in the
// same format the Telegram client hands to a Mini App.
func SignInitData(profile model.TelegramProfile, authDate time.Time, botToken string) (string, error) {
	user, err := json.Marshal(profile)
	if err != nil {
		return "", err
	}
	values := url.Values{}
	values.Set("user", string(user))
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	values.Set("hash", initdata.Sign(map[string]string{"user": string(user)}, botToken, authDate))
	return values.Encode(), nil
}
