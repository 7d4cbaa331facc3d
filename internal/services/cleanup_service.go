package services

import (
	"context"

	"github.com/punchlog/timeclock-service/internal/repositories"
	"github.com/punchlog/timeclock-service/internal/utils"
)

// CleanupService purges expired challenges and dead refresh tokens. Wired to
// the cron scheduler at startup.
type CleanupService struct {
	regChallengeRepo  repositories.RegistrationChallengeRepository
	authChallengeRepo repositories.AuthenticationChallengeRepository
	tokenRepo         repositories.RefreshTokenRepository
}

func NewCleanupService(
	regChallengeRepo repositories.RegistrationChallengeRepository,
	authChallengeRepo repositories.AuthenticationChallengeRepository,
	tokenRepo repositories.RefreshTokenRepository,
) *CleanupService {
	return &CleanupService{
		regChallengeRepo:  regChallengeRepo,
		authChallengeRepo: authChallengeRepo,
		tokenRepo:         tokenRepo,
	}
}

// CleanupChallenges removes expired ceremony rows. Challenges live for
// minutes, so this runs on a short interval.
func (s *CleanupService) CleanupChallenges(ctx context.Context) {
	if err := s.regChallengeRepo.CleanupExpired(ctx); err != nil {
		utils.Logger.Errorf("cleaning registration challenges: %v", err)
	}
	if err := s.authChallengeRepo.CleanupExpired(ctx); err != nil {
		utils.Logger.Errorf("cleaning authentication challenges: %v", err)
	}
}

// CleanupTokens removes expired and revoked refresh tokens.
func (s *CleanupService) CleanupTokens(ctx context.Context) {
	if err := s.tokenRepo.CleanupExpired(ctx); err != nil {
		utils.Logger.Errorf("cleaning refresh tokens: %v", err)
	}
	utils.Logger.Debug("token cleanup finished")
}
