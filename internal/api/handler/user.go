package handler

import (
	"net/http"

	"github.com/mcoot/miniapp-session/internal/api/middleware"
	"github.com/mcoot/miniapp-session/internal/api/response"
	"github.com/mcoot/miniapp-session/internal/services/identity"
)

// UserHandler handles current-user endpoints
type UserHandler struct {
	identity *identity.Service
}

// NewUserHandler creates a new user handler
func NewUserHandler(identity *identity.Service) *UserHandler {
	return &UserHandler{identity: identity}
}

// GetMe handles GET /user/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())
	response.JSON(w, http.StatusOK, response.UserResponse{CurrentUser: user})
}

// LinkedAccounts handles GET /user/linked_accounts
func (h *UserHandler) LinkedAccounts(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())
	accounts, err := h.identity.LinkedAccounts(r.Context(), user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, accounts)
}
