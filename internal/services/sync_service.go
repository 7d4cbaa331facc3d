package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/punchlog/timeclock-service/internal/config"
	"github.com/punchlog/timeclock-service/internal/models"
	"github.com/punchlog/timeclock-service/internal/repositories"
	"github.com/punchlog/timeclock-service/internal/utils"
)

// DrainResult summarizes one pass over a worker's queue.
type DrainResult struct {
	Applied         int `json:"applied"`
	NeedsResolution int `json:"needs_resolution"`
	Failed          int `json:"failed"`
	Remaining       int `json:"remaining"`
}

// SyncService owns the offline mutation queue. Operations are drained
// strictly in enqueue order, one worker's queue at a time; a drain already
// in progress for a worker is never entered twice.
type SyncService interface {
	// Enqueue persists a local mutation and, when the engine is online,
	// immediately attempts a drain.
	Enqueue(ctx context.Context, workerID uuid.UUID, kind models.SyncOpKind, payload, base *models.TimeEntry) (*models.SyncOperation, error)
	// Drain replays the worker's pending operations against the entry
	// store. No-op while offline. Returns ErrSyncInProgress if a drain for
	// this worker is already running.
	Drain(ctx context.Context, workerID uuid.UUID) (*DrainResult, error)
	// DrainAll drains every worker that has pending operations. Called on
	// connectivity restore.
	DrainAll(ctx context.Context) error
	SetOnline(online bool)
	IsOnline() bool
	// ListUnresolved returns operations waiting on a manual choice.
	ListUnresolved(ctx context.Context, workerID uuid.UUID) ([]*models.SyncOperation, error)
	// Resolve settles a NEEDS_RESOLUTION operation with the caller's choice.
	Resolve(ctx context.Context, workerID, opID uuid.UUID, choice models.ResolutionChoice) error
}

type syncService struct {
	opRepo      repositories.SyncOperationRepository
	entryRepo   repositories.TimeEntryRepository
	resolver    *ConflictResolver
	maxAttempts int

	online atomic.Bool
	drains sync.Map // worker uuid -> *sync.Mutex
}

func NewSyncService(
	cfg *config.Config,
	opRepo repositories.SyncOperationRepository,
	entryRepo repositories.TimeEntryRepository,
	resolver *ConflictResolver,
) SyncService {
	s := &syncService{
		opRepo:      opRepo,
		entryRepo:   entryRepo,
		resolver:    resolver,
		maxAttempts: cfg.SyncMaxAttempts,
	}
	s.online.Store(true)
	return s
}

func (s *syncService) SetOnline(online bool) {
	s.online.Store(online)
}

func (s *syncService) IsOnline() bool {
	return s.online.Load()
}

func (s *syncService) Enqueue(ctx context.Context, workerID uuid.UUID, kind models.SyncOpKind, payload, base *models.TimeEntry) (*models.SyncOperation, error) {
	now := time.Now()
	op := &models.SyncOperation{
		ID:             uuid.New(),
		WorkerID:       workerID,
		Kind:           kind,
		Payload:        payload,
		Base:           base,
		LocalTimestamp: now,
		Status:         models.SyncOpPending,
		CreatedAt:      now,
	}
	switch {
	case payload != nil:
		op.EntryID = payload.ID
	case base != nil:
		op.EntryID = base.ID
	}
	if base != nil {
		t := base.UpdatedAt
		op.BaseUpdatedAt = &t
	}

	if err := s.opRepo.Create(ctx, op); err != nil {
		return nil, err
	}

	if s.online.Load() {
		if _, err := s.Drain(ctx, workerID); err != nil && !errors.Is(err, utils.ErrSyncInProgress) {
			utils.Logger.WithField("worker_id", workerID).Warnf("drain after enqueue: %v", err)
		}
	}
	return op, nil
}

func (s *syncService) Drain(ctx context.Context, workerID uuid.UUID) (*DrainResult, error) {
	result := &DrainResult{}
	if !s.online.Load() {
		return result, nil
	}

	muAny, _ := s.drains.LoadOrStore(workerID, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	if !mu.TryLock() {
		return nil, utils.ErrSyncInProgress
	}
	defer mu.Unlock()

	ops, err := s.opRepo.ListPending(ctx, workerID)
	if err != nil {
		return nil, err
	}

	// Entries whose operation just hit a conflict; later operations on the
	// same entry must wait so per-record ordering holds.
	blocked := make(map[uuid.UUID]bool)

	for i, op := range ops {
		if blocked[op.EntryID] {
			result.Remaining = len(ops) - i
			break
		}

		op.Status = models.SyncOpInFlight
		if err := s.opRepo.Update(ctx, op); err != nil {
			return nil, err
		}

		applyErr := s.apply(ctx, op)
		switch {
		case applyErr == nil:
			if err := s.opRepo.Delete(ctx, op.ID); err != nil {
				return nil, err
			}
			result.Applied++

		case errors.Is(applyErr, utils.ErrEntryImmutable),
			errors.Is(applyErr, utils.ErrManualResolutionNeeded):
			op.Status = models.SyncOpNeedsResolution
			op.LastError = applyErr.Error()
			if err := s.opRepo.Update(ctx, op); err != nil {
				return nil, err
			}
			blocked[op.EntryID] = true
			result.NeedsResolution++

		default:
			// Transient failure: bump the attempt count and stop the drain;
			// later operations must not jump the queue.
			op.AttemptCount++
			op.LastError = applyErr.Error()
			if op.AttemptCount >= s.maxAttempts {
				op.Status = models.SyncOpFailed
				result.Failed++
			} else {
				op.Status = models.SyncOpPending
			}
			if err := s.opRepo.Update(ctx, op); err != nil {
				return nil, err
			}
			result.Remaining = len(ops) - i
			return result, nil
		}
	}
	return result, nil
}

func (s *syncService) DrainAll(ctx context.Context) error {
	if !s.online.Load() {
		return nil
	}
	workers, err := s.opRepo.ListWorkersWithPending(ctx)
	if err != nil {
		return err
	}
	for _, workerID := range workers {
		if _, err := s.Drain(ctx, workerID); err != nil && !errors.Is(err, utils.ErrSyncInProgress) {
			return err
		}
	}
	return nil
}

// apply replays one operation against the entry store. A nil return means
// the operation took effect (or was already in effect) and can be removed.
func (s *syncService) apply(ctx context.Context, op *models.SyncOperation) error {
	switch op.Kind {
	case models.SyncOpCreate:
		return s.applyCreate(ctx, op)
	case models.SyncOpUpdate:
		return s.applyUpdate(ctx, op)
	case models.SyncOpDelete:
		return s.applyDelete(ctx, op)
	default:
		return utils.ErrManualResolutionNeeded
	}
}

func (s *syncService) applyCreate(ctx context.Context, op *models.SyncOperation) error {
	existing, err := s.entryRepo.GetByID(ctx, op.EntryID)
	if err != nil {
		return err
	}
	if existing == nil {
		entry := op.Payload.Clone()
		entry.SetRowVersion(1)
		return s.entryRepo.Create(ctx, entry)
	}
	// The entry already exists remotely (a previous drain got interrupted
	// after the insert, or the client replayed). Equivalent payloads are a
	// no-op; anything else needs a human.
	if op.Payload.EquivalentTo(existing) {
		return nil
	}
	op.RemoteSnapshot = existing
	return utils.ErrManualResolutionNeeded
}

func (s *syncService) applyUpdate(ctx context.Context, op *models.SyncOperation) error {
	remote, err := s.entryRepo.GetByID(ctx, op.EntryID)
	if err != nil {
		return err
	}
	if remote == nil {
		// The record vanished remotely; the local copy carries the data.
		entry := op.Payload.Clone()
		entry.SetRowVersion(1)
		return s.entryRepo.Create(ctx, entry)
	}

	if op.BaseUpdatedAt != nil && remote.UpdatedAt.Equal(*op.BaseUpdatedAt) {
		// Remote unchanged since the local edit was based on it.
		return s.writeFields(ctx, remote, op.Payload)
	}

	res := s.resolver.Resolve(op.Base, op.Payload, remote)
	switch res.Outcome {
	case OutcomeNoConflict:
		return nil
	case OutcomeMerged:
		return s.writeFields(ctx, remote, res.Merged)
	case OutcomePermanentConflict:
		op.RemoteSnapshot = remote
		return utils.ErrEntryImmutable
	default:
		op.RemoteSnapshot = remote
		return utils.ErrManualResolutionNeeded
	}
}

func (s *syncService) applyDelete(ctx context.Context, op *models.SyncOperation) error {
	remote, err := s.entryRepo.GetByID(ctx, op.EntryID)
	if err != nil {
		return err
	}
	if remote == nil {
		return nil
	}
	if remote.Status.IsTerminal() {
		op.RemoteSnapshot = remote
		return utils.ErrEntryImmutable
	}
	if op.BaseUpdatedAt != nil && !remote.UpdatedAt.Equal(*op.BaseUpdatedAt) {
		op.RemoteSnapshot = remote
		return utils.ErrManualResolutionNeeded
	}
	return s.entryRepo.Delete(ctx, op.EntryID)
}

// writeFields applies src's mergeable fields onto the stored row guarded by
// the row version observed in remote.
func (s *syncService) writeFields(ctx context.Context, remote, src *models.TimeEntry) error {
	updated := remote.Clone()
	for _, f := range remote.ChangedFields(src) {
		updated.ApplyField(f, src)
	}
	tag, err := s.entryRepo.UpdateIfVersion(ctx, updated, remote.GetRowVersion())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Lost a race with another writer; retried on the next drain.
		return utils.ErrRowVersionConflict
	}
	return nil
}

func (s *syncService) ListUnresolved(ctx context.Context, workerID uuid.UUID) ([]*models.SyncOperation, error) {
	return s.opRepo.ListByStatus(ctx, workerID, models.SyncOpNeedsResolution)
}

func (s *syncService) Resolve(ctx context.Context, workerID, opID uuid.UUID, choice models.ResolutionChoice) error {
	op, err := s.opRepo.GetByID(ctx, opID)
	if err != nil {
		return err
	}
	if op == nil || op.WorkerID != workerID {
		return utils.ErrEntryNotFound
	}
	if op.Status != models.SyncOpNeedsResolution && op.Status != models.SyncOpFailed {
		return utils.ErrManualResolutionNeeded
	}

	switch choice {
	case models.ResolutionKeepRemote:
		return s.opRepo.Delete(ctx, opID)

	case models.ResolutionKeepLocal:
		err := s.entryRepo.UpdateWithRetry(ctx, op.EntryID, func(e *models.TimeEntry) error {
			if e.Status.IsTerminal() {
				return utils.ErrEntryImmutable
			}
			for _, f := range e.ChangedFields(op.Payload) {
				e.ApplyField(f, op.Payload)
			}
			return nil
		})
		if err != nil {
			return mapNoRows(err)
		}
		return s.opRepo.Delete(ctx, opID)

	default:
		return utils.ErrManualResolutionNeeded
	}
}
