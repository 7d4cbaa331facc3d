package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-webauthn/webauthn/protocol"
	wan "github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"

	"github.com/punchlog/timeclock-service/internal/config"
	"github.com/punchlog/timeclock-service/internal/models"
	"github.com/punchlog/timeclock-service/internal/repositories"
	"github.com/punchlog/timeclock-service/internal/utils"
)

// LoginOptions is the envelope returned when a login ceremony begins. The
// challenge ID is an opaque token the client echoes back at verification; it
// is distinct from the raw challenge embedded in the assertion options.
type LoginOptions struct {
	ChallengeID uuid.UUID
	Assertion   *protocol.CredentialAssertion
}

type PasskeyService interface {
	// BeginRegistration issues a registration ceremony for an authenticated
	// worker. Any previous in-flight ceremony for the worker is replaced.
	BeginRegistration(ctx context.Context, ownerID uuid.UUID) (*protocol.CredentialCreation, error)
	// FinishRegistration consumes the worker's pending challenge and verifies
	// the attestation. The challenge is gone after this call whether or not
	// verification succeeds.
	FinishRegistration(ctx context.Context, ownerID uuid.UUID, parsed *protocol.ParsedCredentialCreationData) (*models.PasskeyCredential, error)
	// BeginLogin issues a login ceremony. With an email hint the allow-list
	// is restricted to that worker's credentials; without one (or when the
	// email is unknown) the ceremony relies on discoverable credentials, so
	// the response never reveals whether an account exists.
	BeginLogin(ctx context.Context, emailHint string) (*LoginOptions, error)
	// FinishLogin consumes the challenge identified by challengeID and
	// verifies the assertion, returning the authenticated worker.
	FinishLogin(ctx context.Context, challengeID uuid.UUID, parsed *protocol.ParsedCredentialAssertionData) (*models.Worker, error)

	ListCredentials(ctx context.Context, ownerID uuid.UUID) ([]*models.PasskeyCredential, error)
	RemoveCredential(ctx context.Context, ownerID uuid.UUID, credentialID []byte) error
}

type passkeyService struct {
	wan               *wan.WebAuthn
	registrationTTL   time.Duration
	authChallengeTTL  time.Duration
	credRepo          repositories.PasskeyCredentialRepository
	regChallengeRepo  repositories.RegistrationChallengeRepository
	authChallengeRepo repositories.AuthenticationChallengeRepository
	workerRepo        repositories.WorkerRepository

	// Seams for tests; default to the webauthn library methods.
	createCredential          func(user wan.User, session wan.SessionData, parsed *protocol.ParsedCredentialCreationData) (*wan.Credential, error)
	validateLogin             func(user wan.User, session wan.SessionData, parsed *protocol.ParsedCredentialAssertionData) (*wan.Credential, error)
	validateDiscoverableLogin func(handler wan.DiscoverableUserHandler, session wan.SessionData, parsed *protocol.ParsedCredentialAssertionData) (*wan.Credential, error)
}

func NewPasskeyService(
	cfg *config.Config,
	credRepo repositories.PasskeyCredentialRepository,
	regChallengeRepo repositories.RegistrationChallengeRepository,
	authChallengeRepo repositories.AuthenticationChallengeRepository,
	workerRepo repositories.WorkerRepository,
) (PasskeyService, error) {
	w, err := wan.New(&wan.Config{
		RPID:          cfg.RPID,
		RPDisplayName: cfg.RPDisplayName,
		RPOrigins:     cfg.RPOrigins,
		Timeouts: wan.TimeoutsConfig{
			Registration: wan.TimeoutConfig{
				Enforce: true,
				Timeout: cfg.RegistrationTTL,
			},
			Login: wan.TimeoutConfig{
				Enforce: true,
				Timeout: cfg.AuthChallengeTTL,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("webauthn config: %w", err)
	}

	s := &passkeyService{
		wan:               w,
		registrationTTL:   cfg.RegistrationTTL,
		authChallengeTTL:  cfg.AuthChallengeTTL,
		credRepo:          credRepo,
		regChallengeRepo:  regChallengeRepo,
		authChallengeRepo: authChallengeRepo,
		workerRepo:        workerRepo,
	}
	s.createCredential = w.CreateCredential
	s.validateLogin = w.ValidateLogin
	s.validateDiscoverableLogin = w.ValidateDiscoverableLogin
	return s, nil
}

// ------------------------------ registration ------------------------------

func (s *passkeyService) BeginRegistration(ctx context.Context, ownerID uuid.UUID) (*protocol.CredentialCreation, error) {
	worker, err := s.workerRepo.GetByID(ctx, ownerID.String())
	if err != nil {
		return nil, err
	}
	if worker == nil {
		return nil, utils.ErrWorkerNotFound
	}

	creds, err := s.credRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	exclusions := make([]protocol.CredentialDescriptor, 0, len(creds))
	for _, c := range creds {
		wc := c.ToWebauthn()
		exclusions = append(exclusions, wc.Descriptor())
	}

	user := newWebauthnUser(worker, creds)
	options, session, err := s.wan.BeginRegistration(
		user,
		wan.WithExclusions(exclusions),
		wan.WithConveyancePreference(protocol.PreferNoAttestation),
		wan.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			ResidentKey:      protocol.ResidentKeyRequirementPreferred,
			UserVerification: protocol.VerificationRequired,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("begin registration: %w", err)
	}

	sessionData, err := cbor.Marshal(session)
	if err != nil {
		return nil, err
	}
	challenge := &models.RegistrationChallenge{
		OwnerID:     ownerID,
		SessionData: sessionData,
		ExpiresAt:   time.Now().Add(s.registrationTTL),
	}
	if err := s.regChallengeRepo.Upsert(ctx, challenge); err != nil {
		return nil, err
	}
	return options, nil
}

func (s *passkeyService) FinishRegistration(ctx context.Context, ownerID uuid.UUID, parsed *protocol.ParsedCredentialCreationData) (*models.PasskeyCredential, error) {
	// The challenge row is deleted here no matter how verification ends.
	challenge, err := s.regChallengeRepo.Consume(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if challenge == nil {
		return nil, utils.ErrNoChallengeIssued
	}
	if time.Now().After(challenge.ExpiresAt) {
		return nil, utils.ErrChallengeExpired
	}

	var session wan.SessionData
	if err := cbor.Unmarshal(challenge.SessionData, &session); err != nil {
		return nil, err
	}

	worker, err := s.workerRepo.GetByID(ctx, ownerID.String())
	if err != nil {
		return nil, err
	}
	if worker == nil {
		return nil, utils.ErrWorkerNotFound
	}
	creds, err := s.credRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	cred, err := s.createCredential(newWebauthnUser(worker, creds), session, parsed)
	if err != nil {
		utils.Logger.WithField("worker_id", ownerID).Warnf("registration verification failed: %v", err)
		return nil, fmt.Errorf("%w: %v", utils.ErrVerificationFailed, err)
	}

	existing, err := s.credRepo.GetByCredentialID(ctx, cred.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, utils.ErrCredentialExists
	}

	stored := models.NewPasskeyCredential(ownerID, cred)
	if err := s.credRepo.Create(ctx, stored); err != nil {
		return nil, err
	}
	utils.Logger.WithField("worker_id", ownerID).Info("passkey registered")
	return stored, nil
}

// ------------------------------ authentication ------------------------------

func (s *passkeyService) BeginLogin(ctx context.Context, emailHint string) (*LoginOptions, error) {
	var (
		assertion *protocol.CredentialAssertion
		session   *wan.SessionData
		ownerHint *uuid.UUID
		err       error
	)

	var hintedUser *webauthnUser
	if emailHint != "" {
		worker, getErr := s.workerRepo.GetByEmail(ctx, emailHint)
		if getErr != nil {
			return nil, getErr
		}
		if worker != nil {
			creds, listErr := s.credRepo.ListByOwner(ctx, worker.ID)
			if listErr != nil {
				return nil, listErr
			}
			if len(creds) > 0 {
				hintedUser = newWebauthnUser(worker, creds)
				ownerHint = &worker.ID
			}
		}
	}

	if hintedUser != nil {
		assertion, session, err = s.wan.BeginLogin(hintedUser)
	} else {
		// Unknown or absent email: fall through to the discoverable flow.
		assertion, session, err = s.wan.BeginDiscoverableLogin()
	}
	if err != nil {
		return nil, fmt.Errorf("begin login: %w", err)
	}

	sessionData, err := cbor.Marshal(session)
	if err != nil {
		return nil, err
	}
	challenge := &models.AuthenticationChallenge{
		ID:          uuid.New(),
		SessionData: sessionData,
		OwnerHint:   ownerHint,
		ExpiresAt:   time.Now().Add(s.authChallengeTTL),
	}
	if err := s.authChallengeRepo.Create(ctx, challenge); err != nil {
		return nil, err
	}
	return &LoginOptions{ChallengeID: challenge.ID, Assertion: assertion}, nil
}

func (s *passkeyService) FinishLogin(ctx context.Context, challengeID uuid.UUID, parsed *protocol.ParsedCredentialAssertionData) (*models.Worker, error) {
	// Consume before any verification so a replayed challenge ID always
	// misses, even when this attempt goes on to fail.
	challenge, err := s.authChallengeRepo.Consume(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge == nil {
		return nil, utils.ErrChallengeNotFound
	}
	if time.Now().After(challenge.ExpiresAt) {
		return nil, utils.ErrChallengeExpired
	}

	var session wan.SessionData
	if err := cbor.Unmarshal(challenge.SessionData, &session); err != nil {
		return nil, err
	}

	// The credential named in the assertion must already be on file.
	stored, err := s.credRepo.GetByCredentialID(ctx, parsed.RawID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, utils.ErrCredentialNotFound
	}

	worker, err := s.workerRepo.GetByID(ctx, stored.OwnerID.String())
	if err != nil {
		return nil, err
	}
	if worker == nil {
		return nil, utils.ErrWorkerNotFound
	}
	if worker.AccountStatus == models.AccountStatusSuspended {
		return nil, utils.ErrAccountLocked
	}

	creds, err := s.credRepo.ListByOwner(ctx, stored.OwnerID)
	if err != nil {
		return nil, err
	}
	user := newWebauthnUser(worker, creds)

	var verified *wan.Credential
	if len(session.UserID) > 0 {
		// Hinted ceremony: the session already pins the user handle.
		if !bytes.Equal(session.UserID, user.WebAuthnID()) {
			return nil, utils.ErrVerificationFailed
		}
		verified, err = s.validateLogin(user, session, parsed)
	} else {
		verified, err = s.validateDiscoverableLogin(s.discoverableHandler(ctx), session, parsed)
	}
	if err != nil {
		utils.Logger.WithFields(map[string]interface{}{
			"worker_id":     stored.OwnerID,
			"credential_id": fmt.Sprintf("%x", stored.CredentialID),
		}).Warnf("login verification failed: %v", err)
		return nil, fmt.Errorf("%w: %v", utils.ErrVerificationFailed, err)
	}

	// A regressed signature counter means the authenticator was cloned.
	if verified.Authenticator.CloneWarning {
		utils.Logger.WithFields(map[string]interface{}{
			"worker_id":     stored.OwnerID,
			"credential_id": fmt.Sprintf("%x", stored.CredentialID),
		}).Error("signature counter regression, rejecting login")
		return nil, utils.ErrCredentialCloned
	}

	// Best effort: the signature already verified, so a failed counter
	// write is logged but does not fail the login.
	now := time.Now()
	if err := s.credRepo.UpdateSignCount(ctx, verified.ID, verified.Authenticator.SignCount, now); err != nil {
		utils.Logger.WithField("worker_id", stored.OwnerID).Warnf("sign count update failed: %v", err)
	}

	return worker, nil
}

// discoverableHandler resolves the user handle reported by the authenticator
// to a worker during a hint-less ceremony.
func (s *passkeyService) discoverableHandler(ctx context.Context) wan.DiscoverableUserHandler {
	return func(rawID, userHandle []byte) (wan.User, error) {
		ownerID, err := uuid.FromBytes(userHandle)
		if err != nil {
			return nil, utils.ErrVerificationFailed
		}
		worker, err := s.workerRepo.GetByID(ctx, ownerID.String())
		if err != nil {
			return nil, err
		}
		if worker == nil {
			return nil, utils.ErrWorkerNotFound
		}
		creds, err := s.credRepo.ListByOwner(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		for _, c := range creds {
			if bytes.Equal(c.CredentialID, rawID) {
				return newWebauthnUser(worker, creds), nil
			}
		}
		return nil, utils.ErrCredentialNotFound
	}
}

// ------------------------------ management ------------------------------

func (s *passkeyService) ListCredentials(ctx context.Context, ownerID uuid.UUID) ([]*models.PasskeyCredential, error) {
	return s.credRepo.ListByOwner(ctx, ownerID)
}

func (s *passkeyService) RemoveCredential(ctx context.Context, ownerID uuid.UUID, credentialID []byte) error {
	return s.credRepo.Delete(ctx, ownerID, credentialID)
}
