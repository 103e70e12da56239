package model

import "time"

// FlowPurpose distinguishes the two deep-link flows
type FlowPurpose string

const (
	FlowLogin FlowPurpose = "login"
	FlowLink  FlowPurpose = "link"
)

// Handshake is the result of starting a deep-link flow.
// The token lives only in memory for the duration of the flow.
type Handshake struct {
	Token     string
	TargetURL string
	ExpiresIn time.Duration
}

// PollStatus is the status reported by a handshake poll
type PollStatus string

const (
	PollPending   PollStatus = "pending"
	PollVerified  PollStatus = "verified"
	PollCompleted PollStatus = "completed"
	PollExpired   PollStatus = "expired"
	PollError     PollStatus = "error"
)

// IsSuccess reports whether the status is a success terminal
func (s PollStatus) IsSuccess() bool {
	return s == PollVerified || s == PollCompleted
}

// IsTerminal reports whether polling must stop on this status
func (s PollStatus) IsTerminal() bool {
	return s != PollPending
}

// PollOutcome is the decoded result of a single poll
type PollOutcome struct {
	Status     PollStatus `json:"status"`
	Code       string     `json:"error,omitempty"`
	UserID     UserID     `json:"user_id,omitempty"`
	TelegramID int64      `json:"telegram_id,omitempty"`
}

// HandshakeRecord is the server-side state of a deep-link handshake
type HandshakeRecord struct {
	Token      string      `json:"token"`
	Purpose    FlowPurpose `json:"purpose"`
	Status     PollStatus  `json:"status"`
	Initiator  UserID      `json:"initiator,omitempty"`
	UserID     UserID      `json:"user_id,omitempty"`
	TelegramID int64       `json:"telegram_id,omitempty"`
	ErrorCode  string      `json:"error_code,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	ExpiresAt  time.Time   `json:"expires_at"`
}

// Expired reports whether the handshake is past its deadline
func (h *HandshakeRecord) Expired(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}

// Outcome is what a poll reports for this handshake
func (h *HandshakeRecord) Outcome() PollOutcome {
	return PollOutcome{
		Status:     h.Status,
		Code:       h.ErrorCode,
		UserID:     h.UserID,
		TelegramID: h.TelegramID,
	}
}
