package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/punchlog/timeclock-service/internal/models"
)

// SyncOperationRepository persists the offline mutation queue. Entry
// snapshots (payload, base, remote) are stored as jsonb.
type SyncOperationRepository interface {
	Create(ctx context.Context, op *models.SyncOperation) error
	// GetByID returns (nil, nil) if no operation matches.
	GetByID(ctx context.Context, id uuid.UUID) (*models.SyncOperation, error)
	// ListPending returns the worker's PENDING operations in enqueue order.
	ListPending(ctx context.Context, workerID uuid.UUID) ([]*models.SyncOperation, error)
	// ListWorkersWithPending returns the workers that have PENDING
	// operations waiting, for the connectivity-restore drain.
	ListWorkersWithPending(ctx context.Context) ([]uuid.UUID, error)
	ListByStatus(ctx context.Context, workerID uuid.UUID, status models.SyncOpStatus) ([]*models.SyncOperation, error)
	Update(ctx context.Context, op *models.SyncOperation) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type syncOperationRepo struct {
	db DB
}

func NewSyncOperationRepository(db DB) SyncOperationRepository {
	return &syncOperationRepo{db: db}
}

const baseSelectSyncOp = `
SELECT id, worker_id, kind, entry_id, payload, base, base_updated_at,
       local_timestamp, attempt_count, status, last_error, remote_snapshot,
       created_at
FROM sync_operations`

func (r *syncOperationRepo) Create(ctx context.Context, op *models.SyncOperation) error {
	payload, err := marshalEntry(op.Payload)
	if err != nil {
		return err
	}
	base, err := marshalEntry(op.Base)
	if err != nil {
		return err
	}
	remote, err := marshalEntry(op.RemoteSnapshot)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
        INSERT INTO sync_operations (
            id, worker_id, kind, entry_id, payload, base, base_updated_at,
            local_timestamp, attempt_count, status, last_error, remote_snapshot,
            created_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
    `,
		op.ID, op.WorkerID, op.Kind, op.EntryID, payload, base, op.BaseUpdatedAt,
		op.LocalTimestamp, op.AttemptCount, op.Status, op.LastError, remote,
		op.CreatedAt,
	)
	return err
}

func (r *syncOperationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.SyncOperation, error) {
	row := r.db.QueryRow(ctx, baseSelectSyncOp+" WHERE id=$1", id)
	return scanSyncOp(row)
}

func (r *syncOperationRepo) ListPending(ctx context.Context, workerID uuid.UUID) ([]*models.SyncOperation, error) {
	return r.ListByStatus(ctx, workerID, models.SyncOpPending)
}

func (r *syncOperationRepo) ListWorkersWithPending(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
        SELECT DISTINCT worker_id FROM sync_operations WHERE status=$1
    `, models.SyncOpPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workers []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		workers = append(workers, id)
	}
	return workers, rows.Err()
}

func (r *syncOperationRepo) ListByStatus(ctx context.Context, workerID uuid.UUID, status models.SyncOpStatus) ([]*models.SyncOperation, error) {
	rows, err := r.db.Query(ctx,
		baseSelectSyncOp+" WHERE worker_id=$1 AND status=$2 ORDER BY created_at",
		workerID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []*models.SyncOperation
	for rows.Next() {
		op, err := scanSyncOp(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

func (r *syncOperationRepo) Update(ctx context.Context, op *models.SyncOperation) error {
	remote, err := marshalEntry(op.RemoteSnapshot)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
        UPDATE sync_operations
        SET attempt_count=$2, status=$3, last_error=$4, remote_snapshot=$5
        WHERE id=$1
    `, op.ID, op.AttemptCount, op.Status, op.LastError, remote)
	return err
}

func (r *syncOperationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sync_operations WHERE id=$1`, id)
	return err
}

func marshalEntry(e *models.TimeEntry) ([]byte, error) {
	if e == nil {
		return nil, nil
	}
	return json.Marshal(e)
}

func unmarshalEntry(raw []byte) (*models.TimeEntry, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	e := &models.TimeEntry{}
	if err := json.Unmarshal(raw, e); err != nil {
		return nil, err
	}
	return e, nil
}

func scanSyncOp(row pgx.Row) (*models.SyncOperation, error) {
	op := &models.SyncOperation{}
	var payload, base, remote []byte
	var baseUpdatedAt *time.Time

	err := row.Scan(
		&op.ID, &op.WorkerID, &op.Kind, &op.EntryID, &payload, &base, &baseUpdatedAt,
		&op.LocalTimestamp, &op.AttemptCount, &op.Status, &op.LastError, &remote,
		&op.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	op.BaseUpdatedAt = baseUpdatedAt
	if op.Payload, err = unmarshalEntry(payload); err != nil {
		return nil, err
	}
	if op.Base, err = unmarshalEntry(base); err != nil {
		return nil, err
	}
	if op.RemoteSnapshot, err = unmarshalEntry(remote); err != nil {
		return nil, err
	}
	return op, nil
}
