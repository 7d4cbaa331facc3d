package repositories

import (
	"context"

	"github.com/jackc/pgx/v4"

	"github.com/punchlog/timeclock-service/internal/models"
)

type RefreshTokenRepository interface {
	Create(ctx context.Context, t *models.RefreshToken) error
	// GetByToken returns (nil, nil) if the token is unknown or revoked.
	GetByToken(ctx context.Context, token string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, token string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	CleanupExpired(ctx context.Context) error
}

type refreshTokenRepo struct {
	db DB
}

func NewRefreshTokenRepository(db DB) RefreshTokenRepository {
	return &refreshTokenRepo{db: db}
}

func (r *refreshTokenRepo) Create(ctx context.Context, t *models.RefreshToken) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO refresh_tokens (id, user_id, token, role, expires_at, created_at, revoked, ip_address, device_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `,
		t.ID, t.UserID, t.Token, t.Role, t.ExpiresAt, t.CreatedAt, t.Revoked, t.IPAddress, t.DeviceID,
	)
	return err
}

func (r *refreshTokenRepo) GetByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	row := r.db.QueryRow(ctx, `
        SELECT id, user_id, token, role, expires_at, created_at, revoked, ip_address, device_id
        FROM refresh_tokens
        WHERE token=$1 AND revoked=FALSE
    `, token)

	t := &models.RefreshToken{}
	err := row.Scan(&t.ID, &t.UserID, &t.Token, &t.Role, &t.ExpiresAt, &t.CreatedAt, &t.Revoked, &t.IPAddress, &t.DeviceID)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *refreshTokenRepo) Revoke(ctx context.Context, token string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE refresh_tokens SET revoked=TRUE WHERE token=$1`, token)
	return err
}

func (r *refreshTokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE refresh_tokens SET revoked=TRUE WHERE user_id=$1`, userID)
	return err
}

func (r *refreshTokenRepo) CleanupExpired(ctx context.Context) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < NOW() OR revoked=TRUE`)
	return err
}
