package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/punchlog/timeclock-service/internal/models"
)

// AuthenticationChallengeRepository manages single-use login challenges
// keyed by an opaque token. Consume retrieves and deletes in a single
// statement; a second call with the same token returns nothing.
type AuthenticationChallengeRepository interface {
	Create(ctx context.Context, c *models.AuthenticationChallenge) error
	// Consume returns (nil, nil) if the token is unknown or already used.
	// The row is deleted regardless of expiry; the caller checks ExpiresAt.
	Consume(ctx context.Context, id uuid.UUID) (*models.AuthenticationChallenge, error)
	CleanupExpired(ctx context.Context) error
}

type authenticationChallengeRepo struct {
	db DB
}

func NewAuthenticationChallengeRepository(db DB) AuthenticationChallengeRepository {
	return &authenticationChallengeRepo{db: db}
}

func (r *authenticationChallengeRepo) Create(ctx context.Context, c *models.AuthenticationChallenge) error {
	q := `
        INSERT INTO authentication_challenges (id, session_data, owner_hint, expires_at)
        VALUES ($1, $2, $3, $4)
    `
	_, err := r.db.Exec(ctx, q, c.ID, c.SessionData, c.OwnerHint, c.ExpiresAt)
	return err
}

func (r *authenticationChallengeRepo) Consume(ctx context.Context, id uuid.UUID) (*models.AuthenticationChallenge, error) {
	q := `
        DELETE FROM authentication_challenges
        WHERE id = $1
        RETURNING session_data, owner_hint, expires_at
    `
	row := r.db.QueryRow(ctx, q, id)
	c := &models.AuthenticationChallenge{ID: id}
	err := row.Scan(&c.SessionData, &c.OwnerHint, &c.ExpiresAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *authenticationChallengeRepo) CleanupExpired(ctx context.Context) error {
	q := `DELETE FROM authentication_challenges WHERE expires_at < NOW()`
	_, err := r.db.Exec(ctx, q)
	return err
}
