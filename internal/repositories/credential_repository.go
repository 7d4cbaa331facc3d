package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/punchlog/timeclock-service/internal/models"
)

// PasskeyCredentialRepository stores registered WebAuthn credentials.
type PasskeyCredentialRepository interface {
	Create(ctx context.Context, c *models.PasskeyCredential) error
	// GetByCredentialID returns (nil, nil) if no credential matches.
	GetByCredentialID(ctx context.Context, credentialID []byte) (*models.PasskeyCredential, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.PasskeyCredential, error)
	// UpdateSignCount persists the authenticator counter and last-used
	// timestamp after a successful assertion.
	UpdateSignCount(ctx context.Context, credentialID []byte, signCount uint32, lastUsedAt time.Time) error
	Delete(ctx context.Context, ownerID uuid.UUID, credentialID []byte) error
}

type passkeyCredentialRepo struct {
	db DB
}

func NewPasskeyCredentialRepository(db DB) PasskeyCredentialRepository {
	return &passkeyCredentialRepo{db: db}
}

const baseSelectCredential = `
SELECT credential_id, public_key, attestation_type, transports, sign_count,
       backup_eligible, backup_state, owner_id, created_at, last_used_at
FROM passkey_credentials`

func (r *passkeyCredentialRepo) Create(ctx context.Context, c *models.PasskeyCredential) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO passkey_credentials (
            credential_id, public_key, attestation_type, transports, sign_count,
            backup_eligible, backup_state, owner_id, created_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `,
		c.CredentialID, c.PublicKey, c.AttestationType, c.Transports, c.SignCount,
		c.BackupEligible, c.BackupState, c.OwnerID, c.CreatedAt,
	)
	return err
}

func (r *passkeyCredentialRepo) GetByCredentialID(ctx context.Context, credentialID []byte) (*models.PasskeyCredential, error) {
	row := r.db.QueryRow(ctx, baseSelectCredential+" WHERE credential_id=$1", credentialID)
	return scanCredential(row)
}

func (r *passkeyCredentialRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.PasskeyCredential, error) {
	rows, err := r.db.Query(ctx, baseSelectCredential+" WHERE owner_id=$1 ORDER BY created_at", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []*models.PasskeyCredential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

func (r *passkeyCredentialRepo) UpdateSignCount(ctx context.Context, credentialID []byte, signCount uint32, lastUsedAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE passkey_credentials
        SET sign_count=$2, last_used_at=$3
        WHERE credential_id=$1
    `, credentialID, signCount, lastUsedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *passkeyCredentialRepo) Delete(ctx context.Context, ownerID uuid.UUID, credentialID []byte) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM passkey_credentials WHERE owner_id=$1 AND credential_id=$2`,
		ownerID, credentialID)
	return err
}

func scanCredential(row pgx.Row) (*models.PasskeyCredential, error) {
	c := &models.PasskeyCredential{}
	err := row.Scan(
		&c.CredentialID, &c.PublicKey, &c.AttestationType, &c.Transports, &c.SignCount,
		&c.BackupEligible, &c.BackupState, &c.OwnerID, &c.CreatedAt, &c.LastUsedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
