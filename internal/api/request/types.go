package request

// ProcessStartRequest is the request body for resolving the session on app start
type ProcessStartRequest struct {
	InviteCode string `json:"invite_code"`
	ReferalID  string `json:"referal_id"`
	Mode       string `json:"mode"`
	Page       string `json:"page"`
	Timezone   string `json:"timezone"`
}

// RegisterRequest is the request body for registering an account
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest is the request body for a password login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ConfirmRequest is the request body for simulating the bot confirming a handshake
type ConfirmRequest struct {
	TelegramID int64  `json:"telegram_id"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	PhotoURL   string `json:"photo_url"`
}
