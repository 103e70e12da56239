package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/miniapp-session/internal/api/request"
	"github.com/mcoot/miniapp-session/internal/api/response"
	"github.com/mcoot/miniapp-session/internal/model"
	"github.com/mcoot/miniapp-session/internal/services/handshake"
)

// DevHandler stands in for the Telegram bot during local development
type DevHandler struct {
	handshakes *handshake.Service
}

// NewDevHandler creates a new dev handler
func NewDevHandler(handshakes *handshake.Service) *DevHandler {
	return &DevHandler{handshakes: handshakes}
}

// Confirm handles POST /dev/handshakes/{token}/confirm
func (h *DevHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	var req request.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.TelegramID == 0 {
		WriteError(w, NewInvalidRequestError("telegram_id is required"))
		return
	}
	if req.FirstName == "" {
		req.FirstName = req.Username
	}

	record, err := h.handshakes.Confirm(r.Context(), token, model.TelegramProfile{
		ID:        req.TelegramID,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		PhotoURL:  req.PhotoURL,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.ConfirmFromModel(record))
}
