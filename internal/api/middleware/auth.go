package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mcoot/miniapp-session/internal/api/apierr"
	"github.com/mcoot/miniapp-session/internal/model"
	"github.com/mcoot/miniapp-session/internal/services/identity"
)

// Credential headers sent by the client
const (
	HeaderInitData = "X-Telegram-Init-Data"
	HeaderMock     = "X-Mock-Telegram"
)

type contextKey string

const (
	userContextKey    contextKey = "user"
	profileContextKey contextKey = "telegram_profile"
)

// Identify resolves the caller without requiring one. Non-empty init data
// authenticates by Telegram identity and must be valid; otherwise the session
// cookie is used when it validates.
func Identify(svc *identity.Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if initData := r.Header.Get(HeaderInitData); initData != "" {
				mock := r.Header.Get(HeaderMock) == "true"
				profile, err := svc.Authenticate(initData, mock)
				if err != nil {
					logger.Debug("rejected init data", slog.Bool("mock", mock), slog.String("error", err.Error()))
					apierr.WriteError(w, err)
					return
				}
				ctx = context.WithValue(ctx, profileContextKey, profile)

				user, err := svc.FindTelegramUser(ctx, profile.ID)
				switch {
				case err == nil:
					ctx = context.WithValue(ctx, userContextKey, user)
				case !errors.Is(err, model.ErrUserNotFound):
					apierr.WriteError(w, err)
					return
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if cookie, err := r.Cookie(identity.SessionCookie); err == nil && cookie.Value != "" {
				if user, err := svc.ValidateSession(ctx, cookie.Value); err == nil {
					ctx = context.WithValue(ctx, userContextKey, user)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects requests Identify could not attach a user to
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUser(r.Context()) == nil {
			apierr.WriteError(w, apierr.NewUnauthorizedError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUser returns the authenticated user from the request context
func GetUser(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}

// GetProfile returns the Telegram profile from verified init data, if any
func GetProfile(ctx context.Context) *model.TelegramProfile {
	profile, _ := ctx.Value(profileContextKey).(*model.TelegramProfile)
	return profile
}

// MustGetUser returns the authenticated user or panics
func MustGetUser(ctx context.Context) *model.User {
	user := GetUser(ctx)
	if user == nil {
		panic("no user in context - RequireUser middleware not applied?")
	}
	return user
}
