package services

import (
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/punchlog/timeclock-service/internal/models"
)

// webauthnUser adapts a worker and their stored credentials to the shape the
// webauthn library expects during a ceremony.
type webauthnUser struct {
	worker      *models.Worker
	credentials []*models.PasskeyCredential
}

func newWebauthnUser(w *models.Worker, creds []*models.PasskeyCredential) *webauthnUser {
	return &webauthnUser{worker: w, credentials: creds}
}

// WebAuthnID is the user handle authenticators store alongside discoverable
// credentials. The raw UUID bytes keep it stable and opaque.
func (u *webauthnUser) WebAuthnID() []byte {
	id := u.worker.ID
	return id[:]
}

func (u *webauthnUser) WebAuthnName() string {
	return u.worker.Email
}

func (u *webauthnUser) WebAuthnDisplayName() string {
	return u.worker.DisplayName()
}

// WebAuthnIcon satisfies the deprecated icon accessor still present in the
// webauthn.User interface; icons are unused.
func (u *webauthnUser) WebAuthnIcon() string {
	return ""
}

func (u *webauthnUser) WebAuthnCredentials() []webauthn.Credential {
	out := make([]webauthn.Credential, 0, len(u.credentials))
	for _, c := range u.credentials {
		out = append(out, c.ToWebauthn())
	}
	return out
}
