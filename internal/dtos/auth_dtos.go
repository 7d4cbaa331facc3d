package dtos

import "time"

type AdminLoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	TotpCode string `json:"totp_code" validate:"required,len=6,numeric"`
}

// RefreshRequest is only used by mobile clients; web clients carry the
// refresh token in a cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"omitempty,min=32"`
}

type TokenResponse struct {
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}
