package models

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationChallenge is the single in-flight registration ceremony for a
// worker. Keyed by owner: issuing a new one overwrites the previous row.
// SessionData is the CBOR-encoded webauthn session (challenge, user id,
// exclusion list) produced when the ceremony began.
type RegistrationChallenge struct {
	OwnerID     uuid.UUID `json:"owner_id"`
	SessionData []byte    `json:"session_data"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AuthenticationChallenge is a single in-flight login ceremony, keyed by an
// opaque server-generated token so the row never reveals which user (if any)
// it belongs to. OwnerHint is advisory only; verification trusts the
// assertion's user handle.
type AuthenticationChallenge struct {
	ID          uuid.UUID  `json:"id"`
	SessionData []byte     `json:"session_data"`
	OwnerHint   *uuid.UUID `json:"owner_hint,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
}
