package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/punchlog/timeclock-service/internal/models"
)

type TimeEntryRepository interface {
	Create(ctx context.Context, e *models.TimeEntry) error
	// GetByID returns (nil, nil) if no entry matches.
	GetByID(ctx context.Context, id uuid.UUID) (*models.TimeEntry, error)
	ListByWorker(ctx context.Context, workerID uuid.UUID, from, to time.Time) ([]*models.TimeEntry, error)
	ListByStatus(ctx context.Context, status models.EntryStatusType) ([]*models.TimeEntry, error)
	// UpdateIfVersion writes the entry only when the stored row still has
	// expectedVersion. Callers check RowsAffected on the returned tag.
	UpdateIfVersion(ctx context.Context, e *models.TimeEntry, expectedVersion int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.TimeEntry) error) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type timeEntryRepo struct {
	base *BaseVersionedRepo[*models.TimeEntry]
	db   DB
}

const baseSelectTimeEntry = `
SELECT id, worker_id, work_date, clock_in_at, clock_out_at, break_minutes,
       notes, status, created_at, updated_at, row_version
FROM time_entries`

func NewTimeEntryRepository(db DB) TimeEntryRepository {
	r := &timeEntryRepo{db: db}
	r.base = NewBaseRepo(db, baseSelectTimeEntry+" WHERE id=$1", scanTimeEntry)
	return r
}

func (r *timeEntryRepo) Create(ctx context.Context, e *models.TimeEntry) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO time_entries (
            id, worker_id, work_date, clock_in_at, clock_out_at, break_minutes,
            notes, status, created_at, updated_at, row_version
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    `,
		e.ID, e.WorkerID, e.WorkDate, e.ClockInAt, e.ClockOutAt, e.BreakMinutes,
		e.Notes, e.Status, e.CreatedAt, e.UpdatedAt, e.RowVersion,
	)
	return err
}

func (r *timeEntryRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.TimeEntry, error) {
	return r.base.GetByIDString(ctx, id.String())
}

func (r *timeEntryRepo) ListByWorker(ctx context.Context, workerID uuid.UUID, from, to time.Time) ([]*models.TimeEntry, error) {
	rows, err := r.db.Query(ctx,
		baseSelectTimeEntry+` WHERE worker_id=$1 AND work_date >= $2 AND work_date <= $3
        ORDER BY work_date, clock_in_at`,
		workerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTimeEntries(rows)
}

func (r *timeEntryRepo) ListByStatus(ctx context.Context, status models.EntryStatusType) ([]*models.TimeEntry, error) {
	rows, err := r.db.Query(ctx,
		baseSelectTimeEntry+" WHERE status=$1 ORDER BY work_date, clock_in_at", status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTimeEntries(rows)
}

func (r *timeEntryRepo) UpdateIfVersion(ctx context.Context, e *models.TimeEntry, expectedVersion int64) (pgconn.CommandTag, error) {
	e.SetRowVersion(expectedVersion + 1)
	return r.db.Exec(ctx, `
        UPDATE time_entries
        SET work_date=$2, clock_in_at=$3, clock_out_at=$4, break_minutes=$5,
            notes=$6, status=$7, updated_at=NOW(), row_version=$8
        WHERE id=$1 AND row_version=$9
    `,
		e.ID, e.WorkDate, e.ClockInAt, e.ClockOutAt, e.BreakMinutes,
		e.Notes, e.Status, e.RowVersion, expectedVersion,
	)
}

func (r *timeEntryRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.TimeEntry) error) error {
	return r.base.UpdateWithRetry(ctx, id.String(), mutate, r.UpdateIfVersion)
}

func (r *timeEntryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM time_entries WHERE id=$1`, id)
	return err
}

func collectTimeEntries(rows pgx.Rows) ([]*models.TimeEntry, error) {
	var entries []*models.TimeEntry
	for rows.Next() {
		e, err := scanTimeEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanTimeEntry(row pgx.Row) (*models.TimeEntry, error) {
	e := &models.TimeEntry{}
	err := row.Scan(
		&e.ID, &e.WorkerID, &e.WorkDate, &e.ClockInAt, &e.ClockOutAt, &e.BreakMinutes,
		&e.Notes, &e.Status, &e.CreatedAt, &e.UpdatedAt, &e.RowVersion,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}
