package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// NetworkError means no response was received
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError is a response with an error status
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *HTTPError) Error() string {
	code := strings.TrimSpace(e.Code)
	message := strings.TrimSpace(e.Message)
	switch {
	case code != "" && message != "":
		return fmt.Sprintf("http %d: %s (%s)", e.StatusCode, message, code)
	case message != "":
		return fmt.Sprintf("http %d: %s", e.StatusCode, message)
	case code != "":
		return fmt.Sprintf("http %d: %s", e.StatusCode, code)
	default:
		return fmt.Sprintf("http %d", e.StatusCode)
	}
}

// Retryable reports whether the failure is recoverable (server side or throttling)
func (e *HTTPError) Retryable() bool {
	if e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusRequestTimeout {
		return true
	}
	return e.StatusCode >= 500
}

// IsNetwork reports whether err is a NetworkError
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// StatusCode returns the HTTP status of err, or 0 if it is not an HTTPError
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}

// Retryable reports whether err is worth retrying: network failures and recoverable HTTP errors
func Retryable(err error) bool {
	if IsNetwork(err) {
		return true
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Retryable()
	}
	return false
}
