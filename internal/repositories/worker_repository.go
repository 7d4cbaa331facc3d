package repositories

import (
	"context"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/punchlog/timeclock-service/internal/models"
)

type WorkerRepository interface {
	Create(ctx context.Context, w *models.Worker) error
	// GetByID returns (nil, nil) if no worker matches.
	GetByID(ctx context.Context, id string) (*models.Worker, error)
	GetByEmail(ctx context.Context, email string) (*models.Worker, error)
	List(ctx context.Context) ([]*models.Worker, error)
	UpdateWithRetry(ctx context.Context, id string, mutate func(*models.Worker) error) error
}

type workerRepo struct {
	base *BaseVersionedRepo[*models.Worker]
	db   DB
}

const baseSelectWorker = `
SELECT id, email, phone_number, first_name, last_name, account_status,
       created_at, updated_at, row_version
FROM workers`

func NewWorkerRepository(db DB) WorkerRepository {
	return &workerRepo{
		base: NewBaseRepo(db, baseSelectWorker+" WHERE id=$1", scanWorker),
		db:   db,
	}
}

func (r *workerRepo) Create(ctx context.Context, w *models.Worker) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO workers (
            id, email, phone_number, first_name, last_name, account_status,
            created_at, updated_at, row_version
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `,
		w.ID, w.Email, w.PhoneNumber, w.FirstName, w.LastName, w.AccountStatus,
		w.CreatedAt, w.UpdatedAt, w.RowVersion,
	)
	return err
}

func (r *workerRepo) GetByID(ctx context.Context, id string) (*models.Worker, error) {
	return r.base.GetByIDString(ctx, id)
}

func (r *workerRepo) GetByEmail(ctx context.Context, email string) (*models.Worker, error) {
	row := r.db.QueryRow(ctx, baseSelectWorker+" WHERE email=$1", email)
	return scanWorker(row)
}

func (r *workerRepo) List(ctx context.Context) ([]*models.Worker, error) {
	rows, err := r.db.Query(ctx, baseSelectWorker+" ORDER BY last_name, first_name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workers []*models.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		workers = append(workers, w)
	}
	return workers, rows.Err()
}

func (r *workerRepo) UpdateWithRetry(ctx context.Context, id string, mutate func(*models.Worker) error) error {
	return r.base.UpdateWithRetry(ctx, id, mutate, r.updateIfVersion)
}

func (r *workerRepo) updateIfVersion(ctx context.Context, w *models.Worker, expectedVersion int64) (pgconn.CommandTag, error) {
	w.SetRowVersion(expectedVersion + 1)
	return r.db.Exec(ctx, `
        UPDATE workers
        SET email=$2, phone_number=$3, first_name=$4, last_name=$5,
            account_status=$6, updated_at=NOW(), row_version=$7
        WHERE id=$1 AND row_version=$8
    `,
		w.ID, w.Email, w.PhoneNumber, w.FirstName, w.LastName,
		w.AccountStatus, w.RowVersion, expectedVersion,
	)
}

func scanWorker(row pgx.Row) (*models.Worker, error) {
	w := &models.Worker{}
	err := row.Scan(
		&w.ID, &w.Email, &w.PhoneNumber, &w.FirstName, &w.LastName, &w.AccountStatus,
		&w.CreatedAt, &w.UpdatedAt, &w.RowVersion,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}
