package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchlog/timeclock-service/internal/models"
)

func baseEntry() *models.TimeEntry {
	t0 := time.Date(2026, 8, 10, 8, 0, 0, 0, time.UTC)
	e := &models.TimeEntry{
		ID:           uuid.New(),
		WorkerID:     uuid.New(),
		WorkDate:     t0,
		ClockInAt:    t0,
		BreakMinutes: 30,
		Notes:        "morning shift",
		Status:       models.EntryStatusSubmitted,
		CreatedAt:    t0,
		UpdatedAt:    t0,
	}
	e.SetRowVersion(1)
	return e
}

func TestResolveEquivalentPayloads(t *testing.T) {
	cr := NewConflictResolver()
	base := baseEntry()

	local := base.Clone()
	local.Notes = "updated"
	remote := base.Clone()
	remote.Notes = "updated"
	remote.UpdatedAt = remote.UpdatedAt.Add(time.Hour) // timestamps ignored

	res := cr.Resolve(base, local, remote)
	assert.Equal(t, OutcomeNoConflict, res.Outcome)
}

func TestResolveTerminalRemoteWins(t *testing.T) {
	cr := NewConflictResolver()
	base := baseEntry()

	local := base.Clone()
	local.Notes = "forgot to log the break"
	remote := base.Clone()
	remote.Status = models.EntryStatusApproved

	res := cr.Resolve(base, local, remote)
	assert.Equal(t, OutcomePermanentConflict, res.Outcome)
}

func TestResolveDisjointFieldsMerge(t *testing.T) {
	cr := NewConflictResolver()
	base := baseEntry()

	local := base.Clone()
	local.Notes = "covered for sam"
	remote := base.Clone()
	remote.Status = models.EntryStatusRejected

	res := cr.Resolve(base, local, remote)
	require.Equal(t, OutcomeMerged, res.Outcome)
	assert.Equal(t, "covered for sam", res.Merged.Notes)
	assert.Equal(t, models.EntryStatusRejected, res.Merged.Status)
}

func TestResolveOverlappingFieldsNeedManual(t *testing.T) {
	cr := NewConflictResolver()
	base := baseEntry()

	local := base.Clone()
	local.BreakMinutes = 45
	remote := base.Clone()
	remote.BreakMinutes = 15

	res := cr.Resolve(base, local, remote)
	assert.Equal(t, OutcomeManual, res.Outcome)
}

func TestResolveWithoutBaseNeedsManual(t *testing.T) {
	cr := NewConflictResolver()
	base := baseEntry()

	local := base.Clone()
	local.Notes = "a"
	remote := base.Clone()
	remote.BreakMinutes = 45

	res := cr.Resolve(nil, local, remote)
	assert.Equal(t, OutcomeManual, res.Outcome, "cannot prove disjointness without a base")
}

func TestResolveTerminalBeatsMerge(t *testing.T) {
	cr := NewConflictResolver()
	base := baseEntry()

	// Disjoint changes, but the remote reached a terminal status: the
	// terminal rule applies first.
	local := base.Clone()
	local.Notes = "late edit"
	remote := base.Clone()
	remote.Status = models.EntryStatusProcessed

	res := cr.Resolve(base, local, remote)
	assert.Equal(t, OutcomePermanentConflict, res.Outcome)
}
