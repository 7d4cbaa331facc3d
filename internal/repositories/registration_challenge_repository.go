package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/punchlog/timeclock-service/internal/models"
)

// RegistrationChallengeRepository manages the single live registration
// ceremony per worker. Upsert overwrites any prior ceremony; Consume
// retrieves and deletes in a single statement.
type RegistrationChallengeRepository interface {
	Upsert(ctx context.Context, c *models.RegistrationChallenge) error
	// Consume returns (nil, nil) if no challenge exists for the owner.
	// The row is deleted regardless of the challenge's expiry; the caller
	// checks ExpiresAt.
	Consume(ctx context.Context, ownerID uuid.UUID) (*models.RegistrationChallenge, error)
	CleanupExpired(ctx context.Context) error
}

type registrationChallengeRepo struct {
	db DB
}

func NewRegistrationChallengeRepository(db DB) RegistrationChallengeRepository {
	return &registrationChallengeRepo{db: db}
}

func (r *registrationChallengeRepo) Upsert(ctx context.Context, c *models.RegistrationChallenge) error {
	q := `
        INSERT INTO registration_challenges (owner_id, session_data, expires_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (owner_id)
        DO UPDATE SET session_data = EXCLUDED.session_data, expires_at = EXCLUDED.expires_at
    `
	_, err := r.db.Exec(ctx, q, c.OwnerID, c.SessionData, c.ExpiresAt)
	return err
}

func (r *registrationChallengeRepo) Consume(ctx context.Context, ownerID uuid.UUID) (*models.RegistrationChallenge, error) {
	q := `
        DELETE FROM registration_challenges
        WHERE owner_id = $1
        RETURNING session_data, expires_at
    `
	row := r.db.QueryRow(ctx, q, ownerID)
	c := &models.RegistrationChallenge{OwnerID: ownerID}
	err := row.Scan(&c.SessionData, &c.ExpiresAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *registrationChallengeRepo) CleanupExpired(ctx context.Context) error {
	q := `DELETE FROM registration_challenges WHERE expires_at < NOW()`
	_, err := r.db.Exec(ctx, q)
	return err
}
