package analytics

import (
	"context"
	"log/slog"
	"sync"
)

// Identifier associates subsequent analytics events with a backend user
type Identifier interface {
	Identify(ctx context.Context, userID string, traits map[string]string)
}

// Logger emits identify calls as structured log records
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a slog-backed identifier
func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

// Identify logs the identify call
func (l *Logger) Identify(ctx context.Context, userID string, traits map[string]string) {
	attrs := []any{slog.String("user_id", userID)}
	for k, v := range traits {
		attrs = append(attrs, slog.String("trait."+k, v))
	}
	l.logger.InfoContext(ctx, "analytics identify", attrs...)
}

// Nop discards identify calls
type Nop struct{}

// Identify does nothing
func (Nop) Identify(context.Context, string, map[string]string) {}

// Recorder keeps identify calls in memory
type Recorder struct {
	mu    sync.Mutex
	calls []string
}

// Identify records the user id
func (r *Recorder) Identify(_ context.Context, userID string, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, userID)
}

// Calls returns the recorded user ids in order
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}
