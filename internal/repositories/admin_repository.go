package repositories

import (
	"context"

	"github.com/jackc/pgx/v4"

	"github.com/punchlog/timeclock-service/internal/models"
)

type AdminRepository interface {
	// GetByUsername returns (nil, nil) if no admin matches.
	GetByUsername(ctx context.Context, username string) (*models.Admin, error)
	GetByID(ctx context.Context, id string) (*models.Admin, error)
}

type adminRepo struct {
	db DB
}

func NewAdminRepository(db DB) AdminRepository {
	return &adminRepo{db: db}
}

const baseSelectAdmin = `
SELECT id, username, password_hash, totp_secret, created_at
FROM admins`

func (r *adminRepo) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	row := r.db.QueryRow(ctx, baseSelectAdmin+" WHERE username=$1", username)
	return scanAdmin(row)
}

func (r *adminRepo) GetByID(ctx context.Context, id string) (*models.Admin, error) {
	row := r.db.QueryRow(ctx, baseSelectAdmin+" WHERE id=$1", id)
	return scanAdmin(row)
}

func scanAdmin(row pgx.Row) (*models.Admin, error) {
	a := &models.Admin{}
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.TOTPSecret, &a.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}
