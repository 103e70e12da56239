package model

// PlatformKind identifies the credential transport in use
type PlatformKind string

const (
	// PlatformEmbedded means the client runs inside the Telegram host app
	PlatformEmbedded PlatformKind = "embedded"
	// PlatformWeb means a plain browser relying on the session cookie
	PlatformWeb PlatformKind = "web"
)

// Platform is the verdict of the environment probe
type Platform struct {
	Kind      PlatformKind `json:"kind"`
	UsingMock bool         `json:"using_mock"`
}

// IsEmbedded reports whether the embedded transport should be used
func (p Platform) IsEmbedded() bool {
	return p.Kind == PlatformEmbedded
}

// CookieValue is the value recorded in the platform indicator cookie
func (p Platform) CookieValue() string {
	if p.IsEmbedded() {
		return "telegram"
	}
	return "web"
}

// TelegramProfile is the Telegram user carried in init data
type TelegramProfile struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty"`
}

// DisplayName returns the full name of the profile
func (p TelegramProfile) DisplayName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// MockIdentity is a simulated Telegram user for local testing
type MockIdentity = TelegramProfile
