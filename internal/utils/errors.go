package utils

import (
	"errors"
	"net/http"
)

// Domain-level errors used by the service layer to provide
// fine-grained failure reasons.
var (
	// Passkey ceremony errors.
	ErrNoChallengeIssued  = errors.New("no_challenge_issued")
	ErrChallengeNotFound  = errors.New("challenge_not_found")
	ErrChallengeExpired   = errors.New("challenge_expired")
	ErrCredentialExists   = errors.New("credential_exists")
	ErrCredentialNotFound = errors.New("credential_not_found")
	ErrVerificationFailed = errors.New("verification_failed")
	ErrCredentialCloned   = errors.New("credential_cloned")

	// Session and admin login errors.
	ErrWorkerNotFound      = errors.New("worker_not_found")
	ErrInvalidCredentials  = errors.New("invalid_credentials")
	ErrInvalidTOTP         = errors.New("invalid_totp")
	ErrAccountLocked       = errors.New("account_locked")
	ErrInvalidRefreshToken = errors.New("invalid_refresh_token")

	// For concurrency conflicts
	ErrRowVersionConflict = errors.New("row_version_conflict")

	// Sync engine errors.
	ErrEntryNotFound          = errors.New("entry_not_found")
	ErrEntryImmutable         = errors.New("entry_immutable")
	ErrManualResolutionNeeded = errors.New("manual_resolution_needed")
	ErrSyncAttemptsExhausted  = errors.New("sync_attempts_exhausted")
	ErrSyncInProgress         = errors.New("sync_in_progress")

	ErrNoRowsUpdated = errors.New("no_rows_updated")
)

// AppError for structured error handling from services to controllers.
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// HandleAppError centralizes responding to AppErrors.
func HandleAppError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		RespondErrorWithCode(w, appErr.StatusCode, appErr.Code, appErr.Message, nil, appErr.Err)
	} else {
		// Fallback for unexpected error types
		RespondErrorWithCode(w, http.StatusInternalServerError, ErrCodeInternal, "An unexpected error occurred", nil, err)
	}
}
