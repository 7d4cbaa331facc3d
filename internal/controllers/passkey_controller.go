package controllers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/gorilla/mux"

	"github.com/punchlog/timeclock-service/internal/dtos"
	"github.com/punchlog/timeclock-service/internal/services"
	"github.com/punchlog/timeclock-service/internal/utils"
)

type PasskeyController struct {
	passkeyService services.PasskeyService
	jwtService     services.JWTService
	refreshTTL     time.Duration
}

func NewPasskeyController(passkeyService services.PasskeyService, jwtService services.JWTService, refreshTTL time.Duration) *PasskeyController {
	return &PasskeyController{
		passkeyService: passkeyService,
		jwtService:     jwtService,
		refreshTTL:     refreshTTL,
	}
}

// BeginRegistration handles POST /auth/v1/passkey/register/options.
// Requires an authenticated worker session.
func (c *PasskeyController) BeginRegistration(w http.ResponseWriter, r *http.Request) {
	workerID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}

	options, err := c.passkeyService.BeginRegistration(r.Context(), workerID)
	if err != nil {
		c.respondCeremonyError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, options)
}

// FinishRegistration handles POST /auth/v1/passkey/register/verify. The
// body is the attestation response in the WebAuthn JSON wire shape; it is
// parsed and validated before any verification runs.
func (c *PasskeyController) FinishRegistration(w http.ResponseWriter, r *http.Request) {
	workerID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(r.Body)
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Malformed attestation response", nil, err)
		return
	}

	cred, err := c.passkeyService.FinishRegistration(r.Context(), workerID, parsed)
	if err != nil {
		c.respondCeremonyError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, credentialSummary(cred))
}

// BeginLogin handles POST /auth/v1/passkey/login/options. Unauthenticated.
func (c *PasskeyController) BeginLogin(w http.ResponseWriter, r *http.Request) {
	var req dtos.BeginLoginRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Malformed request body", nil, err)
			return
		}
		if err := validate.Struct(req); err != nil {
			utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid request", nil, err)
			return
		}
	}

	opts, err := c.passkeyService.BeginLogin(r.Context(), req.Email)
	if err != nil {
		c.respondCeremonyError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.BeginLoginResponse{
		ChallengeID: opts.ChallengeID.String(),
		PublicKey:   opts.Assertion,
	})
}

// FinishLogin handles POST /auth/v1/passkey/login/verify. On success the
// verified worker receives a session token pair.
func (c *PasskeyController) FinishLogin(w http.ResponseWriter, r *http.Request) {
	var req dtos.FinishLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Malformed request body", nil, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid request", nil, err)
		return
	}

	challengeID, err := parseUUID(req.ChallengeID)
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid challenge id", nil, err)
		return
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(req.Credential))
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Malformed assertion response", nil, err)
		return
	}

	worker, err := c.passkeyService.FinishLogin(r.Context(), challengeID, parsed)
	if err != nil {
		c.respondCeremonyError(w, err)
		return
	}

	client := utils.GetClientIdentifier(r, utils.GetClientPlatform(r))
	pair, err := c.jwtService.GenerateTokenPair(r.Context(), worker.ID, services.RoleWorker, client)
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusInternalServerError, utils.ErrCodeInternal, "Could not create session", nil, err)
		return
	}
	respondWithTokens(w, r, pair, c.refreshTTL)
}

// ListCredentials handles GET /auth/v1/passkey/credentials.
func (c *PasskeyController) ListCredentials(w http.ResponseWriter, r *http.Request) {
	workerID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}
	creds, err := c.passkeyService.ListCredentials(r.Context(), workerID)
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusInternalServerError, utils.ErrCodeInternal, "Could not list credentials", nil, err)
		return
	}
	out := make([]dtos.CredentialSummary, 0, len(creds))
	for _, cred := range creds {
		out = append(out, credentialSummary(cred))
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}

// RemoveCredential handles DELETE /auth/v1/passkey/credentials/{id}. The id
// path segment is the base64url credential ID.
func (c *PasskeyController) RemoveCredential(w http.ResponseWriter, r *http.Request) {
	workerID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}
	credentialID, err := base64.RawURLEncoding.DecodeString(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid credential id", nil, err)
		return
	}
	if err := c.passkeyService.RemoveCredential(r.Context(), workerID, credentialID); err != nil {
		utils.RespondErrorWithCode(w, http.StatusInternalServerError, utils.ErrCodeInternal, "Could not remove credential", nil, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *PasskeyController) respondCeremonyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, utils.ErrNoChallengeIssued):
		utils.RespondErrorWithCode(w, http.StatusPreconditionFailed, utils.ErrCodePreconditionFailed, "No registration ceremony in progress", nil)
	case errors.Is(err, utils.ErrChallengeNotFound):
		utils.RespondErrorWithCode(w, http.StatusNotFound, utils.ErrCodeNotFound, "Challenge not found or already used", nil)
	case errors.Is(err, utils.ErrChallengeExpired):
		utils.RespondErrorWithCode(w, http.StatusGone, utils.ErrCodeChallengeExpired, "Challenge expired", nil)
	case errors.Is(err, utils.ErrCredentialExists):
		utils.RespondErrorWithCode(w, http.StatusConflict, utils.ErrCodeAlreadyExists, "Credential already registered", nil)
	case errors.Is(err, utils.ErrCredentialNotFound), errors.Is(err, utils.ErrWorkerNotFound):
		utils.RespondErrorWithCode(w, http.StatusNotFound, utils.ErrCodeNotFound, "Unknown credential", nil)
	case errors.Is(err, utils.ErrCredentialCloned), errors.Is(err, utils.ErrVerificationFailed):
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeVerificationFailed, "Verification failed", nil, err)
	case errors.Is(err, utils.ErrAccountLocked):
		utils.RespondErrorWithCode(w, http.StatusLocked, utils.ErrCodeLockedAccount, "Account suspended", nil)
	default:
		utils.RespondErrorWithCode(w, http.StatusInternalServerError, utils.ErrCodeInternal, "Ceremony failed", nil, err)
	}
}
