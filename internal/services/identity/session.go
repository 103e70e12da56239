package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mcoot/miniapp-session/internal/model"
)

// SessionCookie is the cookie carrying the signed session token
const SessionCookie = "session"

// Claims are the claims of a session token
type Claims struct {
	jwt.RegisteredClaims
	UserID model.UserID `json:"uid"`
}

// IssueSession signs a session token for the user
func (s *Service) IssueSession(userID model.UserID) (string, error) {
	now := s.clock.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.SessionDuration)),
		},
		UserID: userID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.cfg.SessionSecret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// ValidateSession returns the user a session token belongs to
func (s *Service) ValidateSession(ctx context.Context, tokenString string) (*model.User, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.cfg.SessionSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrNotAuthenticated, err)
	}

	user, err := s.storage.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, model.ErrNotAuthenticated
		}
		return nil, err
	}
	return user, nil
}
