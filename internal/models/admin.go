package models

import (
	"time"

	"github.com/google/uuid"
)

// Admin is an operator account for the admin portal. Admins authenticate
// with password + TOTP; passkeys are worker-portal only.
type Admin struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	TOTPSecret   string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
