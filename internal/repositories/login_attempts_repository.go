package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
)

// LoginAttemptsRepository tracks failed admin logins per username so
// accounts lock after repeated failures.
type LoginAttemptsRepository interface {
	// IsLocked reports whether the username is currently locked out.
	IsLocked(ctx context.Context, username string) (bool, error)
	// RecordFailure increments the failure count and, once maxAttempts is
	// reached, locks the account for lockDuration.
	RecordFailure(ctx context.Context, username string, maxAttempts int, lockDuration time.Duration) error
	Reset(ctx context.Context, username string) error
}

type loginAttemptsRepo struct {
	db DB
}

func NewLoginAttemptsRepository(db DB) LoginAttemptsRepository {
	return &loginAttemptsRepo{db: db}
}

func (r *loginAttemptsRepo) IsLocked(ctx context.Context, username string) (bool, error) {
	var lockedUntil *time.Time
	err := r.db.QueryRow(ctx,
		`SELECT locked_until FROM login_attempts WHERE username=$1`,
		username,
	).Scan(&lockedUntil)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return lockedUntil != nil && lockedUntil.After(time.Now()), nil
}

func (r *loginAttemptsRepo) RecordFailure(ctx context.Context, username string, maxAttempts int, lockDuration time.Duration) error {
	q := `
        INSERT INTO login_attempts (username, failure_count, last_failure_at)
        VALUES ($1, 1, NOW())
        ON CONFLICT (username)
        DO UPDATE SET
            failure_count = login_attempts.failure_count + 1,
            last_failure_at = NOW(),
            locked_until = CASE
                WHEN login_attempts.failure_count + 1 >= $2 THEN NOW() + $3::interval
                ELSE login_attempts.locked_until
            END
    `
	_, err := r.db.Exec(ctx, q, username, maxAttempts, lockDuration.String())
	return err
}

func (r *loginAttemptsRepo) Reset(ctx context.Context, username string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM login_attempts WHERE username=$1`, username)
	return err
}
