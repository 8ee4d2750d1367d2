package passwordreset

import "time"

// ResetToken is a single-use, time-limited password reset token tied to an
// email address.
type ResetToken struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

type RequestResetRequest struct {
	Email string `json:"email"`
}

type ConfirmResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}
