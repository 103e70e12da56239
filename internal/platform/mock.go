package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/mcoot/miniapp-session/internal/model"
	"github.com/mcoot/miniapp-session/internal/prefs"
)

// MockHashPrefix marks synthesized init data so it can never pass real validation
const MockHashPrefix = "mock_"

// DefaultMockIdentities is the configured set of simulated Telegram users
func DefaultMockIdentities() []model.MockIdentity {
	return []model.MockIdentity{
		{ID: 100000001, Username: "alice_dev", FirstName: "Alice", LastName: "Dev", PhotoURL: "https://t.me/i/userpic/320/alice_dev.jpg"},
		{ID: 100000002, Username: "bob_tester", FirstName: "Bob", LastName: "Tester"},
		{ID: 100000003, Username: "carol_qa", FirstName: "Carol"},
		{ID: 100000004, Username: "dave_premium", FirstName: "Dave", LastName: "Premium"},
	}
}

// SelectedIdentity returns the stored mock identity. If nothing is stored, or the
// stored id is not in the set, the first identity of the set is returned.
func SelectedIdentity(ctx context.Context, store prefs.Store, set []model.MockIdentity) (model.MockIdentity, error) {
	if len(set) == 0 {
		return model.MockIdentity{}, model.ErrUnknownMockIdentity
	}

	raw, ok, err := store.Get(ctx, prefs.KeyMockTelegramUser)
	if err != nil {
		return model.MockIdentity{}, err
	}
	if ok {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			if identity, found := findIdentity(set, id); found {
				return identity, nil
			}
		}
	}
	return set[0], nil
}

// SelectIdentity persists id as the selected mock identity
func SelectIdentity(ctx context.Context, store prefs.Store, set []model.MockIdentity, id int64) (model.MockIdentity, error) {
	identity, ok := findIdentity(set, id)
	if !ok {
		return model.MockIdentity{}, fmt.Errorf("%w: %d", model.ErrUnknownMockIdentity, id)
	}
	if err := store.Set(ctx, prefs.KeyMockTelegramUser, strconv.FormatInt(id, 10)); err != nil {
		return model.MockIdentity{}, err
	}
	return identity, nil
}

// SetMockMode writes the override flag explicitly
func SetMockMode(ctx context.Context, store prefs.Store, enabled bool) error {
	value := prefs.MockDisabled
	if enabled {
		value = prefs.MockEnabled
	}
	return store.Set(ctx, prefs.KeyMockTelegram, value)
}

// ClearOverrides removes both override keys so live signals decide again
func ClearOverrides(ctx context.Context, store prefs.Store) error {
	if err := store.Delete(ctx, prefs.KeyMockTelegram); err != nil {
		return err
	}
	return store.Delete(ctx, prefs.KeyMockTelegramUser)
}

// SynthesizeInitData builds init data in the host's query-string format for a mock identity
func SynthesizeInitData(identity model.MockIdentity, now time.Time) (string, error) {
	user, err := json.Marshal(identity)
	if err != nil {
		return "", err
	}
	values := url.Values{}
	values.Set("user", string(user))
	values.Set("auth_date", strconv.FormatInt(now.Unix(), 10))
	values.Set("hash", MockHashPrefix+strconv.FormatInt(identity.ID, 10))
	return values.Encode(), nil
}

func findIdentity(set []model.MockIdentity, id int64) (model.MockIdentity, bool) {
	for _, identity := range set {
		if identity.ID == id {
			return identity, true
		}
	}
	return model.MockIdentity{}, false
}
