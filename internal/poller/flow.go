package poller

import (
	"context"

	"github.com/mcoot/miniapp-session/internal/model"
)

// Backend paths for the two deep-link flows
const (
	LoginStartPath = "/auth/login/telegram/deeplink/start"
	LoginPollPath  = "/auth/login/telegram/deeplink/poll"
	LinkStartPath  = "/auth/link/telegram/start"
	LinkPollPath   = "/auth/link/telegram/poll"
)

// SuccessFunc is invoked once when a flow reaches a success status
type SuccessFunc func(ctx context.Context, outcome model.PollOutcome) error

// Flow parameterises the poller state machine with a purpose's endpoints and
// what to do on success.
type Flow struct {
	Purpose   model.FlowPurpose
	StartPath string
	PollPath  string
	OnSuccess SuccessFunc
}

// LoginFlow authenticates a new session. onSuccess typically reinitializes the session.
func LoginFlow(onSuccess SuccessFunc) Flow {
	return Flow{
		Purpose:   model.FlowLogin,
		StartPath: LoginStartPath,
		PollPath:  LoginPollPath,
		OnSuccess: onSuccess,
	}
}

// LinkFlow attaches a Telegram identity to the current session. onSuccess
// typically invalidates the cached user.
func LinkFlow(onSuccess SuccessFunc) Flow {
	return Flow{
		Purpose:   model.FlowLink,
		StartPath: LinkStartPath,
		PollPath:  LinkPollPath,
		OnSuccess: onSuccess,
	}
}

// User-facing messages
const (
	MessageStartFailed   = "Failed to start Telegram authentication"
	MessageTimedOut      = "Authentication timed out. Please try again."
	MessageExpired       = "Link expired. Please try again."
	MessageLinkFailed    = "Failed to link Telegram account"
	messageAlreadyUsed   = "This Telegram account is already linked to another user"
	messageAlreadyLinked = "Your account already has a linked Telegram account"
	messageInvalidToken  = "Invalid link. Please try again."
)

var errorMessages = map[string]string{
	"telegram_already_used": messageAlreadyUsed,
	"user_already_linked":   messageAlreadyLinked,
	"token_expired":         MessageExpired,
	"invalid_token":         messageInvalidToken,
}

// ErrorMessage maps a backend error code to the message shown to the user.
// Unknown codes get a generic message.
func ErrorMessage(code string) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return MessageLinkFailed
}
