package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/punchlog/timeclock-service/internal/models"
	"github.com/punchlog/timeclock-service/internal/repositories"
	"github.com/punchlog/timeclock-service/internal/utils"
)

// TimeEntryInput carries the mutable fields of an entry.
type TimeEntryInput struct {
	WorkDate     time.Time
	ClockInAt    time.Time
	ClockOutAt   *time.Time
	BreakMinutes int
	Notes        string
}

// TimeEntryService is the remote store the sync engine replays against, and
// the direct CRUD surface for online clients. Approved and processed entries
// are immutable from the worker's side; status transitions are admin-only.
type TimeEntryService interface {
	Create(ctx context.Context, workerID uuid.UUID, in TimeEntryInput) (*models.TimeEntry, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.TimeEntry, error)
	ListByWorker(ctx context.Context, workerID uuid.UUID, from, to time.Time) ([]*models.TimeEntry, error)
	ListByStatus(ctx context.Context, status models.EntryStatusType) ([]*models.TimeEntry, error)
	// Update applies a worker edit. Fails with ErrEntryImmutable when the
	// entry has reached a terminal status.
	Update(ctx context.Context, workerID, id uuid.UUID, in TimeEntryInput) (*models.TimeEntry, error)
	// Delete removes a draft entry. Submitted and later entries stay.
	Delete(ctx context.Context, workerID, id uuid.UUID) error
	Submit(ctx context.Context, workerID, id uuid.UUID) (*models.TimeEntry, error)
	// Approve and Reject are admin transitions on submitted entries.
	Approve(ctx context.Context, id uuid.UUID) (*models.TimeEntry, error)
	Reject(ctx context.Context, id uuid.UUID, reason string) (*models.TimeEntry, error)
}

type timeEntryService struct {
	entryRepo repositories.TimeEntryRepository
}

func NewTimeEntryService(entryRepo repositories.TimeEntryRepository) TimeEntryService {
	return &timeEntryService{entryRepo: entryRepo}
}

func (s *timeEntryService) Create(ctx context.Context, workerID uuid.UUID, in TimeEntryInput) (*models.TimeEntry, error) {
	now := time.Now()
	entry := &models.TimeEntry{
		ID:           uuid.New(),
		WorkerID:     workerID,
		WorkDate:     in.WorkDate,
		ClockInAt:    in.ClockInAt,
		ClockOutAt:   in.ClockOutAt,
		BreakMinutes: in.BreakMinutes,
		Notes:        in.Notes,
		Status:       models.EntryStatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	entry.SetRowVersion(1)
	if err := s.entryRepo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *timeEntryService) GetByID(ctx context.Context, id uuid.UUID) (*models.TimeEntry, error) {
	entry, err := s.entryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, utils.ErrEntryNotFound
	}
	return entry, nil
}

func (s *timeEntryService) ListByWorker(ctx context.Context, workerID uuid.UUID, from, to time.Time) ([]*models.TimeEntry, error) {
	return s.entryRepo.ListByWorker(ctx, workerID, from, to)
}

func (s *timeEntryService) ListByStatus(ctx context.Context, status models.EntryStatusType) ([]*models.TimeEntry, error) {
	return s.entryRepo.ListByStatus(ctx, status)
}

func (s *timeEntryService) Update(ctx context.Context, workerID, id uuid.UUID, in TimeEntryInput) (*models.TimeEntry, error) {
	err := s.entryRepo.UpdateWithRetry(ctx, id, func(e *models.TimeEntry) error {
		if e.WorkerID != workerID {
			return utils.ErrEntryNotFound
		}
		if e.Status.IsTerminal() {
			return utils.ErrEntryImmutable
		}
		e.WorkDate = in.WorkDate
		e.ClockInAt = in.ClockInAt
		e.ClockOutAt = in.ClockOutAt
		e.BreakMinutes = in.BreakMinutes
		e.Notes = in.Notes
		return nil
	})
	if err != nil {
		return nil, mapNoRows(err)
	}
	return s.GetByID(ctx, id)
}

func (s *timeEntryService) Delete(ctx context.Context, workerID, id uuid.UUID) error {
	entry, err := s.entryRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if entry == nil || entry.WorkerID != workerID {
		return utils.ErrEntryNotFound
	}
	if entry.Status != models.EntryStatusDraft {
		return utils.ErrEntryImmutable
	}
	return s.entryRepo.Delete(ctx, id)
}

func (s *timeEntryService) Submit(ctx context.Context, workerID, id uuid.UUID) (*models.TimeEntry, error) {
	err := s.entryRepo.UpdateWithRetry(ctx, id, func(e *models.TimeEntry) error {
		if e.WorkerID != workerID {
			return utils.ErrEntryNotFound
		}
		switch e.Status {
		case models.EntryStatusDraft, models.EntryStatusRejected:
			e.Status = models.EntryStatusSubmitted
			return nil
		default:
			return utils.ErrEntryImmutable
		}
	})
	if err != nil {
		return nil, mapNoRows(err)
	}
	return s.GetByID(ctx, id)
}

func (s *timeEntryService) Approve(ctx context.Context, id uuid.UUID) (*models.TimeEntry, error) {
	return s.transition(ctx, id, models.EntryStatusApproved, "")
}

func (s *timeEntryService) Reject(ctx context.Context, id uuid.UUID, reason string) (*models.TimeEntry, error) {
	return s.transition(ctx, id, models.EntryStatusRejected, reason)
}

func (s *timeEntryService) transition(ctx context.Context, id uuid.UUID, to models.EntryStatusType, reason string) (*models.TimeEntry, error) {
	err := s.entryRepo.UpdateWithRetry(ctx, id, func(e *models.TimeEntry) error {
		if e.Status != models.EntryStatusSubmitted {
			return utils.ErrEntryImmutable
		}
		e.Status = to
		if reason != "" {
			e.Notes = e.Notes + "\n[rejected] " + reason
		}
		return nil
	})
	if err != nil {
		return nil, mapNoRows(err)
	}
	return s.GetByID(ctx, id)
}
