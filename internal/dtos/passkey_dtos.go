package dtos

import (
	"encoding/json"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
)

type BeginLoginRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
}

// BeginLoginResponse pairs the ceremony options with the opaque challenge
// ID the client must echo back at verification. The ID is unrelated to the
// raw challenge inside the options.
type BeginLoginResponse struct {
	ChallengeID string                        `json:"challenge_id"`
	PublicKey   *protocol.CredentialAssertion `json:"public_key"`
}

type FinishLoginRequest struct {
	ChallengeID string          `json:"challenge_id" validate:"required,uuid4"`
	Credential  json.RawMessage `json:"credential" validate:"required"`
}

type CredentialSummary struct {
	CredentialID string     `json:"credential_id"`
	Transports   []string   `json:"transports,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
}
