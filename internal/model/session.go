package model

// InitPhase is the lifecycle phase of session initialization
type InitPhase string

const (
	PhaseNotStarted   InitPhase = "not_started"
	PhaseInitializing InitPhase = "initializing"
	PhaseReady        InitPhase = "ready"
	PhaseFailed       InitPhase = "failed"
)

// SessionState is the session bootstrap state read by consumers.
// IsReady and IsLoading are never both true. A nil User while ready
// means the visitor is anonymous.
type SessionState struct {
	Phase     InitPhase
	IsReady   bool
	IsLoading bool
	User      *User
	Err       error
}

// InitialSessionState is the state at process boot
func InitialSessionState() SessionState {
	return SessionState{
		Phase:     PhaseNotStarted,
		IsLoading: true,
	}
}

// LoadingState returns the state while a resolution is in flight
func LoadingState(user *User) SessionState {
	return SessionState{
		Phase:     PhaseInitializing,
		IsLoading: true,
		User:      user,
	}
}

// ReadyState returns a resolved state; user may be nil for anonymous visitors
func ReadyState(user *User) SessionState {
	return SessionState{
		Phase:   PhaseReady,
		IsReady: true,
		User:    user,
	}
}

// FailedState returns a state for an infrastructure failure
func FailedState(err error) SessionState {
	return SessionState{
		Phase: PhaseFailed,
		Err:   err,
	}
}

// Anonymous reports whether the state is resolved without a user
func (s SessionState) Anonymous() bool {
	return s.IsReady && s.User == nil
}
