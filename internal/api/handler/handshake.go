package handler

import (
	"net/http"
	"time"

	"github.com/mcoot/miniapp-session/internal/api/middleware"
	"github.com/mcoot/miniapp-session/internal/api/response"
	"github.com/mcoot/miniapp-session/internal/model"
	"github.com/mcoot/miniapp-session/internal/services/handshake"
	"github.com/mcoot/miniapp-session/internal/services/identity"
)

// HandshakeHandler handles the deep-link login and link flows
type HandshakeHandler struct {
	handshakes      *handshake.Service
	identity        *identity.Service
	sessionDuration time.Duration
}

// NewHandshakeHandler creates a new handshake handler
func NewHandshakeHandler(handshakes *handshake.Service, identity *identity.Service, sessionDuration time.Duration) *HandshakeHandler {
	return &HandshakeHandler{
		handshakes:      handshakes,
		identity:        identity,
		sessionDuration: sessionDuration,
	}
}

// LoginStart handles POST /auth/login/telegram/deeplink/start
func (h *HandshakeHandler) LoginStart(w http.ResponseWriter, r *http.Request) {
	started, err := h.handshakes.StartLogin(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.LoginStartFromModel(started))
}

// LoginPoll handles GET /auth/login/telegram/deeplink/poll. A verified poll
// signs the caller in.
func (h *HandshakeHandler) LoginPoll(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	outcome, user, err := h.handshakes.Poll(r.Context(), model.FlowLogin, token, "")
	if err != nil {
		WriteError(w, err)
		return
	}

	if user != nil {
		session, err := h.identity.IssueSession(user.ID)
		if err != nil {
			WriteError(w, err)
			return
		}
		setSessionCookie(w, session, h.sessionDuration)
	}
	response.JSON(w, http.StatusOK, outcome)
}

// LinkStart handles POST /auth/link/telegram/start
func (h *HandshakeHandler) LinkStart(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())
	started, err := h.handshakes.StartLink(r.Context(), user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.LinkStartFromModel(started))
}

// LinkPoll handles GET /auth/link/telegram/poll
func (h *HandshakeHandler) LinkPoll(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())
	token := r.URL.Query().Get("token")
	outcome, _, err := h.handshakes.Poll(r.Context(), model.FlowLink, token, user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, outcome)
}
