package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mcoot/miniapp-session/internal/api/request"
	"github.com/mcoot/miniapp-session/internal/api/response"
	"github.com/mcoot/miniapp-session/internal/model"
	"github.com/mcoot/miniapp-session/internal/services/identity"
)

// AuthHandler handles password login, registration and logout
type AuthHandler struct {
	identity        *identity.Service
	sessionDuration time.Duration
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(identity *identity.Service, sessionDuration time.Duration) *AuthHandler {
	return &AuthHandler{
		identity:        identity,
		sessionDuration: sessionDuration,
	}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}

	user, err := h.identity.Register(r.Context(), req.Username, req.Password, req.DisplayName)
	if err != nil {
		WriteError(w, err)
		return
	}

	if h.startSession(w, user) {
		response.Created(w, response.UserResponse{CurrentUser: user})
	}
}

// Login handles POST /auth/login/password
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}

	user, err := h.identity.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	if h.startSession(w, user) {
		response.JSON(w, http.StatusOK, response.UserResponse{CurrentUser: user})
	}
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w)
	response.NoContent(w)
}

// startSession sets the session cookie for user, writing the error response
// and reporting false when no session could be issued
func (h *AuthHandler) startSession(w http.ResponseWriter, user *model.User) bool {
	token, err := h.identity.IssueSession(user.ID)
	if err != nil {
		WriteError(w, err)
		return false
	}
	setSessionCookie(w, token, h.sessionDuration)
	return true
}
