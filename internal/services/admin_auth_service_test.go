package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchlog/timeclock-service/internal/config"
	"github.com/punchlog/timeclock-service/internal/models"
	"github.com/punchlog/timeclock-service/internal/utils"
)

func newAdminFixture(t *testing.T) (AdminAuthService, *fakeAttemptsRepo, string) {
	t.Helper()

	secret, err := utils.GenerateTOTPSecret("punchlog-test", "ops")
	require.NoError(t, err)

	hash, err := utils.HashPassword("correct horse battery")
	require.NoError(t, err)

	admin := &models.Admin{
		ID:           uuid.New(),
		Username:     "ops",
		PasswordHash: hash,
		TOTPSecret:   secret,
	}

	cfg := &config.Config{
		MaxLoginAttempts: 3,
		LockoutDuration:  15 * time.Minute,
	}
	attempts := newFakeAttemptsRepo()
	jwtSvc, _ := newTestJWTService(t, 15*time.Minute)
	svc := NewAdminAuthService(cfg, &fakeAdminRepo{admins: map[string]*models.Admin{"ops": admin}}, attempts, jwtSvc)
	return svc, attempts, secret
}

func currentTOTP(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	return code
}

func TestAdminLoginSuccess(t *testing.T) {
	svc, attempts, secret := newAdminFixture(t)

	pair, err := svc.Login(context.Background(), "ops", "correct horse battery", currentTOTP(t, secret), webClient("203.0.113.9"))
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Zero(t, attempts.failures["ops"])
}

func TestAdminLoginWrongPassword(t *testing.T) {
	svc, attempts, secret := newAdminFixture(t)

	_, err := svc.Login(context.Background(), "ops", "wrong", currentTOTP(t, secret), webClient("203.0.113.9"))
	assert.ErrorIs(t, err, utils.ErrInvalidCredentials)
	assert.Equal(t, 1, attempts.failures["ops"])
}

func TestAdminLoginWrongTOTP(t *testing.T) {
	svc, attempts, _ := newAdminFixture(t)

	_, err := svc.Login(context.Background(), "ops", "correct horse battery", "000000", webClient("203.0.113.9"))
	assert.ErrorIs(t, err, utils.ErrInvalidTOTP)
	assert.Equal(t, 1, attempts.failures["ops"])
}

func TestAdminLoginUnknownUserSameError(t *testing.T) {
	svc, _, secret := newAdminFixture(t)

	_, err := svc.Login(context.Background(), "ghost", "correct horse battery", currentTOTP(t, secret), webClient("203.0.113.9"))
	assert.ErrorIs(t, err, utils.ErrInvalidCredentials)
}

func TestAdminLoginLockout(t *testing.T) {
	svc, _, secret := newAdminFixture(t)
	ctx := context.Background()
	client := webClient("203.0.113.9")

	for i := 0; i < 3; i++ {
		_, err := svc.Login(ctx, "ops", "wrong", currentTOTP(t, secret), client)
		assert.ErrorIs(t, err, utils.ErrInvalidCredentials)
	}

	// Even the correct password is refused while locked.
	_, err := svc.Login(ctx, "ops", "correct horse battery", currentTOTP(t, secret), client)
	assert.ErrorIs(t, err, utils.ErrAccountLocked)
}
