package cli

import (
	"context"
	"net/http"

	"github.com/mcoot/miniapp-session/internal/services/identity"
)

// prefSessionCookie keeps the backend session between CLI invocations
const prefSessionCookie = "session_cookie"

// restoreSession seeds the cookie jar with the saved session
func restoreSession(ctx context.Context) error {
	value, ok, err := prefsStore().Get(ctx, prefSessionCookie)
	if err != nil || !ok || value == "" {
		return err
	}
	app.Transport.Jar().SetCookies(app.Transport.BaseURL(), []*http.Cookie{{
		Name:  identity.SessionCookie,
		Value: value,
		Path:  "/",
	}})
	return nil
}

// saveSession persists the session cookie the backend last set, or forgets
// it when the backend cleared it
func saveSession(ctx context.Context) error {
	store := prefsStore()
	value, ok := app.Transport.Cookie(identity.SessionCookie)
	if !ok || value == "" {
		return store.Delete(ctx, prefSessionCookie)
	}
	return store.Set(ctx, prefSessionCookie, value)
}
