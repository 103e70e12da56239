package response

import (
	"time"

	"github.com/mcoot/miniapp-session/internal/model"
	"github.com/mcoot/miniapp-session/internal/services/handshake"
)

// Mode returned to newly created users
const ModeOnboarding = "onboarding"

// UserResponse carries the current user, null for anonymous visitors
type UserResponse struct {
	CurrentUser *model.User `json:"current_user"`
	Mode        string      `json:"mode,omitempty"`
}

// StartResponse is the response for starting a deep-link handshake. Login
// handshakes fill Token, link handshakes LinkToken.
type StartResponse struct {
	Token     string `json:"token,omitempty"`
	LinkToken string `json:"link_token,omitempty"`
	BotURL    string `json:"bot_url"`
	ExpiresIn int    `json:"expires_in"`
}

// LoginStartFromModel builds the login start response
func LoginStartFromModel(s *handshake.Started) StartResponse {
	return StartResponse{
		Token:     s.Token,
		BotURL:    s.BotURL,
		ExpiresIn: int(s.ExpiresIn / time.Second),
	}
}

// LinkStartFromModel builds the link start response
func LinkStartFromModel(s *handshake.Started) StartResponse {
	return StartResponse{
		LinkToken: s.Token,
		BotURL:    s.BotURL,
		ExpiresIn: int(s.ExpiresIn / time.Second),
	}
}

// ConfirmResponse is the response after simulating the bot confirmation
type ConfirmResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ConfirmFromModel builds the confirm response
func ConfirmFromModel(r *model.HandshakeRecord) ConfirmResponse {
	return ConfirmResponse{
		Status: string(r.Status),
		Error:  r.ErrorCode,
	}
}

// HealthResponse is the health check response
type HealthResponse struct {
	Status string `json:"status"`
}
