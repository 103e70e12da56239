package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mcoot/miniapp-session/internal/model"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	out    io.Writer
	errOut io.Writer
}

// NewOutput creates a new Output formatter writing to out and errOut
func NewOutput(format string, out, errOut io.Writer) *Output {
	return &Output{format: format, out: out, errOut: errOut}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		_, _ = fmt.Fprintln(o.errOut, string(data))
	} else {
		_, _ = fmt.Fprintf(o.errOut, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.out, string(data))
	} else {
		_, _ = fmt.Fprintln(o.out, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case SessionResult:
		o.printSessionResult(v)
	case PlatformResult:
		o.printPlatformResult(v)
	case MockList:
		o.printMockList(v)
	case IdentityResult:
		o.printIdentity(v)
	case FlowResult:
		o.printFlowResult(v)
	case UserResult:
		o.printUser(v)
	case LinkedResult:
		o.printLinked(v)
	case ConfirmResult:
		o.printConfirm(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// UserResult is the account the session resolved to
type UserResult struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Username    string `json:"username,omitempty"`
	TelegramID  int64  `json:"telegram_id,omitempty"`
}

// SessionResult is the outcome of resolving the session
type SessionResult struct {
	Phase     string      `json:"phase"`
	Ready     bool        `json:"ready"`
	Platform  string      `json:"platform"`
	UsingMock bool        `json:"using_mock"`
	User      *UserResult `json:"user"`
	Error     string      `json:"error,omitempty"`
}

// IdentityResult is a mock Telegram identity
type IdentityResult struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name"`
	Selected bool   `json:"selected,omitempty"`
}

// PlatformResult is the verdict of the platform probe
type PlatformResult struct {
	Kind      string          `json:"kind"`
	UsingMock bool            `json:"using_mock"`
	Cookie    string          `json:"cookie"`
	Identity  *IdentityResult `json:"identity,omitempty"`
}

// MockList is the configured mock identity set
type MockList struct {
	Mode       string           `json:"mode"`
	Identities []IdentityResult `json:"identities"`
}

// FlowResult is the final snapshot of a deep-link flow
type FlowResult struct {
	Purpose  string      `json:"purpose"`
	State    string      `json:"state"`
	Message  string      `json:"message,omitempty"`
	Attempts int         `json:"attempts"`
	User     *UserResult `json:"user,omitempty"`
}

// LinkedResult lists the identities linked to the account
type LinkedResult struct {
	TelegramID int64 `json:"telegram_id,omitempty"`
	Linked     bool  `json:"linked"`
}

// ConfirmResult is the handshake status after a simulated bot confirmation
type ConfirmResult struct {
	Token  string `json:"token"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func userResult(u *model.User) *UserResult {
	if u == nil {
		return nil
	}
	return &UserResult{
		ID:          string(u.ID),
		DisplayName: u.DisplayName,
		Username:    u.Username,
		TelegramID:  u.TelegramID,
	}
}

func identityResult(id model.MockIdentity, selected bool) IdentityResult {
	return IdentityResult{
		ID:       id.ID,
		Username: id.Username,
		Name:     id.DisplayName(),
		Selected: selected,
	}
}

func (o *Output) printUser(u UserResult) {
	_, _ = fmt.Fprintf(o.out, "User: %s (%s)\n", u.DisplayName, u.ID)
	if u.Username != "" {
		_, _ = fmt.Fprintf(o.out, "Username: %s\n", u.Username)
	}
	if u.TelegramID != 0 {
		_, _ = fmt.Fprintf(o.out, "Telegram: %d\n", u.TelegramID)
	}
}

func (o *Output) printSessionResult(s SessionResult) {
	_, _ = fmt.Fprintf(o.out, "Phase: %s\n", s.Phase)
	platform := s.Platform
	if s.UsingMock {
		platform += " (mock)"
	}
	_, _ = fmt.Fprintf(o.out, "Platform: %s\n", platform)
	if s.Error != "" {
		_, _ = fmt.Fprintf(o.out, "Error: %s\n", s.Error)
		return
	}
	if s.User == nil {
		_, _ = fmt.Fprintln(o.out, "User: anonymous")
		return
	}
	o.printUser(*s.User)
}

func (o *Output) printPlatformResult(p PlatformResult) {
	_, _ = fmt.Fprintf(o.out, "Platform: %s\n", p.Kind)
	_, _ = fmt.Fprintf(o.out, "Mock: %t\n", p.UsingMock)
	_, _ = fmt.Fprintf(o.out, "Cookie: %s\n", p.Cookie)
	if p.Identity != nil {
		_, _ = fmt.Fprintf(o.out, "Identity: %s (%d)\n", p.Identity.Name, p.Identity.ID)
	}
}

func (o *Output) printIdentity(id IdentityResult) {
	marker := " "
	if id.Selected {
		marker = "*"
	}
	username := ""
	if id.Username != "" {
		username = " @" + id.Username
	}
	_, _ = fmt.Fprintf(o.out, "%s %d %s%s\n", marker, id.ID, id.Name, username)
}

func (o *Output) printMockList(m MockList) {
	_, _ = fmt.Fprintf(o.out, "Mock mode: %s\n", m.Mode)
	for _, id := range m.Identities {
		o.printIdentity(id)
	}
}

func (o *Output) printFlowResult(f FlowResult) {
	_, _ = fmt.Fprintf(o.out, "Flow: %s\n", f.Purpose)
	_, _ = fmt.Fprintf(o.out, "State: %s\n", f.State)
	if f.Message != "" {
		_, _ = fmt.Fprintf(o.out, "Message: %s\n", f.Message)
	}
	if f.User != nil {
		o.printUser(*f.User)
	}
}

func (o *Output) printLinked(l LinkedResult) {
	if !l.Linked {
		_, _ = fmt.Fprintln(o.out, "Telegram: not linked")
		return
	}
	_, _ = fmt.Fprintf(o.out, "Telegram: %d\n", l.TelegramID)
}

func (o *Output) printConfirm(c ConfirmResult) {
	_, _ = fmt.Fprintf(o.out, "Handshake: %s\n", c.Token)
	_, _ = fmt.Fprintf(o.out, "Status: %s\n", c.Status)
	if c.Error != "" {
		_, _ = fmt.Fprintf(o.out, "Error: %s\n", c.Error)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	_, _ = fmt.Fprintf(o.out, "Status: %s\n", h.Status)
}

func output(cmdOut, cmdErr io.Writer) *Output {
	return NewOutput(cfg.Output, cmdOut, cmdErr)
}
