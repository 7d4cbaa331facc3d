package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchlog/timeclock-service/internal/models"
	"github.com/punchlog/timeclock-service/internal/utils"
)

func storedEntry(workerID uuid.UUID, notes string, status models.EntryStatusType) *models.TimeEntry {
	e := &models.TimeEntry{
		ID:           uuid.New(),
		WorkerID:     workerID,
		WorkDate:     t0,
		ClockInAt:    t0.Add(9 * time.Hour),
		BreakMinutes: 30,
		Notes:        notes,
		Status:       status,
		CreatedAt:    t0,
		UpdatedAt:    t0,
	}
	e.SetRowVersion(1)
	return e
}

func sampleInput(day time.Time) TimeEntryInput {
	out := day.Add(17 * time.Hour)
	return TimeEntryInput{
		WorkDate:     day,
		ClockInAt:    day.Add(9 * time.Hour),
		ClockOutAt:   &out,
		BreakMinutes: 30,
		Notes:        "regular shift",
	}
}

func TestCreateStartsAsDraft(t *testing.T) {
	repo := newFakeEntryRepo()
	svc := NewTimeEntryService(repo)
	workerID := uuid.New()

	entry, err := svc.Create(context.Background(), workerID, sampleInput(t0))
	require.NoError(t, err)
	assert.Equal(t, models.EntryStatusDraft, entry.Status)
	assert.Equal(t, int64(1), entry.GetRowVersion())
	assert.Equal(t, workerID, entry.WorkerID)

	stored, err := svc.GetByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "regular shift", stored.Notes)
}

func TestGetByIDUnknownEntry(t *testing.T) {
	svc := NewTimeEntryService(newFakeEntryRepo())

	_, err := svc.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, utils.ErrEntryNotFound)
}

func TestUpdateBumpsVersion(t *testing.T) {
	repo := newFakeEntryRepo()
	svc := NewTimeEntryService(repo)
	ctx := context.Background()
	workerID := uuid.New()

	entry, err := svc.Create(ctx, workerID, sampleInput(t0))
	require.NoError(t, err)

	in := sampleInput(t0)
	in.BreakMinutes = 45
	updated, err := svc.Update(ctx, workerID, entry.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 45, updated.BreakMinutes)
	assert.Equal(t, int64(2), updated.GetRowVersion())
}

func TestUpdateByOtherWorkerLooksLikeMissing(t *testing.T) {
	repo := newFakeEntryRepo()
	svc := NewTimeEntryService(repo)
	ctx := context.Background()

	entry, err := svc.Create(ctx, uuid.New(), sampleInput(t0))
	require.NoError(t, err)

	_, err = svc.Update(ctx, uuid.New(), entry.ID, sampleInput(t0))
	assert.ErrorIs(t, err, utils.ErrEntryNotFound)
}

func TestUpdateTerminalEntryRefused(t *testing.T) {
	workerID := uuid.New()
	entry := storedEntry(workerID, "done", models.EntryStatusApproved)
	repo := newFakeEntryRepo(entry)
	svc := NewTimeEntryService(repo)

	_, err := svc.Update(context.Background(), workerID, entry.ID, sampleInput(t0))
	assert.ErrorIs(t, err, utils.ErrEntryImmutable)
}

func TestDeleteDraftOnly(t *testing.T) {
	repo := newFakeEntryRepo()
	svc := NewTimeEntryService(repo)
	ctx := context.Background()
	workerID := uuid.New()

	draft, err := svc.Create(ctx, workerID, sampleInput(t0))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, workerID, draft.ID))
	_, err = svc.GetByID(ctx, draft.ID)
	assert.ErrorIs(t, err, utils.ErrEntryNotFound)

	submitted := storedEntry(workerID, "submitted", models.EntryStatusSubmitted)
	require.NoError(t, repo.Create(ctx, submitted))
	err = svc.Delete(ctx, workerID, submitted.ID)
	assert.ErrorIs(t, err, utils.ErrEntryImmutable)
}

func TestSubmitDraftAndRejected(t *testing.T) {
	repo := newFakeEntryRepo()
	svc := NewTimeEntryService(repo)
	ctx := context.Background()
	workerID := uuid.New()

	draft, err := svc.Create(ctx, workerID, sampleInput(t0))
	require.NoError(t, err)
	submitted, err := svc.Submit(ctx, workerID, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EntryStatusSubmitted, submitted.Status)

	// Submitting twice is refused.
	_, err = svc.Submit(ctx, workerID, draft.ID)
	assert.ErrorIs(t, err, utils.ErrEntryImmutable)

	// A rejected entry can be resubmitted after fixes.
	rejected := storedEntry(workerID, "needs fixes", models.EntryStatusRejected)
	require.NoError(t, repo.Create(ctx, rejected))
	resubmitted, err := svc.Submit(ctx, workerID, rejected.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EntryStatusSubmitted, resubmitted.Status)
}

func TestApproveRequiresSubmitted(t *testing.T) {
	workerID := uuid.New()
	submitted := storedEntry(workerID, "a", models.EntryStatusSubmitted)
	draft := storedEntry(workerID, "b", models.EntryStatusDraft)
	repo := newFakeEntryRepo(submitted, draft)
	svc := NewTimeEntryService(repo)
	ctx := context.Background()

	approved, err := svc.Approve(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EntryStatusApproved, approved.Status)

	_, err = svc.Approve(ctx, draft.ID)
	assert.ErrorIs(t, err, utils.ErrEntryImmutable)
}

func TestRejectRecordsReason(t *testing.T) {
	workerID := uuid.New()
	submitted := storedEntry(workerID, "worked late", models.EntryStatusSubmitted)
	repo := newFakeEntryRepo(submitted)
	svc := NewTimeEntryService(repo)

	rejected, err := svc.Reject(context.Background(), submitted.ID, "missing clock-out")
	require.NoError(t, err)
	assert.Equal(t, models.EntryStatusRejected, rejected.Status)
	assert.Contains(t, rejected.Notes, "worked late")
	assert.Contains(t, rejected.Notes, "missing clock-out")
}
