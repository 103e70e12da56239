package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/miniapp-session/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInvalidInitData     = "INVALID_INIT_DATA"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeUsernameExists      = "USERNAME_EXISTS"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodeHandshakeNotFound   = "HANDSHAKE_NOT_FOUND"
	CodeHandshakeExpired    = "HANDSHAKE_EXPIRED"
	CodeHandshakeConsumed   = "HANDSHAKE_CONSUMED"
	CodeRateLimited         = "RATE_LIMITED"
	CodeTelegramAlreadyUsed = "TELEGRAM_ALREADY_USED"
	CodeUserAlreadyLinked   = "USER_ALREADY_LINKED"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	if he.status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "1")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status err is written with
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Account errors
	case errors.Is(err, model.ErrNotAuthenticated):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
	case errors.Is(err, model.ErrInvalidInitData):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidInitData, "Invalid Telegram init data"}}
	case errors.Is(err, model.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid username or password"}}
	case errors.Is(err, model.ErrUsernameExists):
		return &httpError{http.StatusConflict, APIError{CodeUsernameExists, "Username already exists"}}
	case errors.Is(err, model.ErrUserNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeUserNotFound, "User not found"}}
	case errors.Is(err, model.ErrTelegramAlreadyUsed):
		return &httpError{http.StatusConflict, APIError{CodeTelegramAlreadyUsed, "Telegram account is linked to another user"}}
	case errors.Is(err, model.ErrUserAlreadyLinked):
		return &httpError{http.StatusConflict, APIError{CodeUserAlreadyLinked, "User already has a linked Telegram account"}}

	// Handshake errors. Unknown and expired tokens are both gone for the client.
	case errors.Is(err, model.ErrHandshakeNotFound):
		return &httpError{http.StatusGone, APIError{CodeHandshakeNotFound, "Handshake not found or expired"}}
	case errors.Is(err, model.ErrHandshakeExpired):
		return &httpError{http.StatusGone, APIError{CodeHandshakeExpired, "Handshake expired"}}
	case errors.Is(err, model.ErrHandshakeConsumed):
		return &httpError{http.StatusConflict, APIError{CodeHandshakeConsumed, "Handshake already confirmed"}}
	case errors.Is(err, model.ErrRateLimited):
		return &httpError{http.StatusTooManyRequests, APIError{CodeRateLimited, "Too many requests"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}

// PanicHandler writes the internal error response for a recovered panic
func PanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	WriteError(w, NewInternalError())
}
