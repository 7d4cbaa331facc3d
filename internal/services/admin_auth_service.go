package services

import (
	"context"
	"time"

	"github.com/punchlog/timeclock-service/internal/config"
	"github.com/punchlog/timeclock-service/internal/repositories"
	"github.com/punchlog/timeclock-service/internal/utils"
)

// AdminAuthService handles the admin portal's password + TOTP login.
// Repeated failures lock the account for a configured window.
type AdminAuthService interface {
	Login(ctx context.Context, username, password, totpCode string, client utils.ClientIdentifier) (*TokenPair, error)
}

type adminAuthService struct {
	adminRepo        repositories.AdminRepository
	attemptsRepo     repositories.LoginAttemptsRepository
	jwtService       JWTService
	maxLoginAttempts int
	lockoutDuration  time.Duration
}

func NewAdminAuthService(
	cfg *config.Config,
	adminRepo repositories.AdminRepository,
	attemptsRepo repositories.LoginAttemptsRepository,
	jwtService JWTService,
) AdminAuthService {
	return &adminAuthService{
		adminRepo:        adminRepo,
		attemptsRepo:     attemptsRepo,
		jwtService:       jwtService,
		maxLoginAttempts: cfg.MaxLoginAttempts,
		lockoutDuration:  cfg.LockoutDuration,
	}
}

func (s *adminAuthService) Login(ctx context.Context, username, password, totpCode string, client utils.ClientIdentifier) (*TokenPair, error) {
	locked, err := s.attemptsRepo.IsLocked(ctx, username)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, utils.ErrAccountLocked
	}

	admin, err := s.adminRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		// Same failure path as a bad password so usernames stay unguessable.
		s.recordFailure(ctx, username)
		return nil, utils.ErrInvalidCredentials
	}

	if !utils.CheckPasswordHash(password, admin.PasswordHash) {
		s.recordFailure(ctx, username)
		return nil, utils.ErrInvalidCredentials
	}

	if !utils.ValidateTOTPCode(admin.TOTPSecret, totpCode) {
		s.recordFailure(ctx, username)
		return nil, utils.ErrInvalidTOTP
	}

	if err := s.attemptsRepo.Reset(ctx, username); err != nil {
		utils.Logger.Warnf("resetting login attempts for %s: %v", username, err)
	}

	return s.jwtService.GenerateTokenPair(ctx, admin.ID, RoleAdmin, client)
}

func (s *adminAuthService) recordFailure(ctx context.Context, username string) {
	if err := s.attemptsRepo.RecordFailure(ctx, username, s.maxLoginAttempts, s.lockoutDuration); err != nil {
		utils.Logger.Warnf("recording login failure for %s: %v", username, err)
	}
}
