package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/miniapp-session/internal/api/middleware"
	"github.com/mcoot/miniapp-session/internal/api/request"
	"github.com/mcoot/miniapp-session/internal/api/response"
	"github.com/mcoot/miniapp-session/internal/services/identity"
)

// SessionHandler resolves the session on app start
type SessionHandler struct {
	identity *identity.Service
	logger   *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(identity *identity.Service, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		identity: identity,
		logger:   logger,
	}
}

// ProcessStart handles POST /process_start
func (h *SessionHandler) ProcessStart(w http.ResponseWriter, r *http.Request) {
	var req request.ProcessStartRequest
	if err := decodeOptional(r, &req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	ctx := r.Context()
	user := middleware.GetUser(ctx)
	var mode string

	if profile := middleware.GetProfile(ctx); profile != nil && user == nil {
		created, isNew, err := h.identity.EnsureTelegramUser(ctx, *profile)
		if err != nil {
			WriteError(w, err)
			return
		}
		user = created
		if isNew {
			mode = response.ModeOnboarding
		}
	}

	if user == nil {
		response.JSON(w, http.StatusOK, response.UserResponse{})
		return
	}

	if _, err := h.identity.RecordReferral(ctx, user.ID, req.ReferalID, req.InviteCode); err != nil {
		h.logger.Warn("failed to record referral",
			slog.String("user_id", string(user.ID)),
			slog.String("error", err.Error()),
		)
	}

	h.logger.Debug("session resolved",
		slog.String("user_id", string(user.ID)),
		slog.String("timezone", req.Timezone),
		slog.String("page", req.Page),
	)
	response.JSON(w, http.StatusOK, response.UserResponse{CurrentUser: user, Mode: mode})
}
