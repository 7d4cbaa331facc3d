package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shiftEntry() *TimeEntry {
	day := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	out := day.Add(17 * time.Hour)
	e := &TimeEntry{
		ID:           uuid.New(),
		WorkerID:     uuid.New(),
		WorkDate:     day,
		ClockInAt:    day.Add(9 * time.Hour),
		ClockOutAt:   &out,
		BreakMinutes: 30,
		Notes:        "regular shift",
		Status:       EntryStatusDraft,
		CreatedAt:    day,
		UpdatedAt:    day,
	}
	e.SetRowVersion(1)
	return e
}

func TestCloneIsIndependent(t *testing.T) {
	orig := shiftEntry()
	cp := orig.Clone()

	*cp.ClockOutAt = cp.ClockOutAt.Add(time.Hour)
	cp.Notes = "edited"

	assert.Equal(t, "regular shift", orig.Notes)
	assert.NotEqual(t, orig.ClockOutAt, cp.ClockOutAt)

	var nilEntry *TimeEntry
	assert.Nil(t, nilEntry.Clone())
}

func TestChangedFieldsIgnoresTimestamps(t *testing.T) {
	a := shiftEntry()
	b := a.Clone()
	b.UpdatedAt = b.UpdatedAt.Add(time.Hour)
	b.SetRowVersion(7)

	assert.Empty(t, a.ChangedFields(b))
	assert.True(t, a.EquivalentTo(b))
}

func TestChangedFieldsNamesEachDifference(t *testing.T) {
	a := shiftEntry()
	b := a.Clone()
	b.BreakMinutes = 45
	b.Status = EntryStatusSubmitted
	b.ClockOutAt = nil

	changed := a.ChangedFields(b)
	assert.ElementsMatch(t, []string{FieldBreakMinutes, FieldStatus, FieldClockOutAt}, changed)
	assert.False(t, a.EquivalentTo(b))
}

func TestApplyFieldRoundTrip(t *testing.T) {
	src := shiftEntry()
	src.BreakMinutes = 60
	src.Notes = "covered for sam"
	src.ClockOutAt = nil

	dst := shiftEntry()
	for _, name := range dst.ChangedFields(src) {
		dst.ApplyField(name, src)
	}
	require.True(t, dst.EquivalentTo(src))
	assert.Nil(t, dst.ClockOutAt)
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, EntryStatusApproved.IsTerminal())
	assert.True(t, EntryStatusProcessed.IsTerminal())
	assert.False(t, EntryStatusDraft.IsTerminal())
	assert.False(t, EntryStatusSubmitted.IsTerminal())
	assert.False(t, EntryStatusRejected.IsTerminal())
}
