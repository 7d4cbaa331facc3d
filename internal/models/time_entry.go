package models

import (
	"time"

	"github.com/google/uuid"
)

type EntryStatusType string

const (
	EntryStatusDraft     EntryStatusType = "DRAFT"
	EntryStatusSubmitted EntryStatusType = "SUBMITTED"
	EntryStatusApproved  EntryStatusType = "APPROVED"
	EntryStatusProcessed EntryStatusType = "PROCESSED"
	EntryStatusRejected  EntryStatusType = "REJECTED"
)

// IsTerminal reports whether a status closes the entry to worker edits.
// Approved and processed entries are immutable from the worker's side.
func (s EntryStatusType) IsTerminal() bool {
	return s == EntryStatusApproved || s == EntryStatusProcessed
}

// TimeEntry is one tracked shift. Workers create and edit entries (possibly
// offline); admins approve or reject them.
type TimeEntry struct {
	Versioned

	ID           uuid.UUID       `json:"id"`
	WorkerID     uuid.UUID       `json:"worker_id"`
	WorkDate     time.Time       `json:"work_date"`
	ClockInAt    time.Time       `json:"clock_in_at"`
	ClockOutAt   *time.Time      `json:"clock_out_at,omitempty"`
	BreakMinutes int             `json:"break_minutes"`
	Notes        string          `json:"notes"`
	Status       EntryStatusType `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (e *TimeEntry) GetID() string {
	return e.ID.String()
}

// Clone returns a deep copy. Pointer fields are re-allocated so the copy can
// be mutated independently during conflict merging.
func (e *TimeEntry) Clone() *TimeEntry {
	if e == nil {
		return nil
	}
	out := *e
	if e.ClockOutAt != nil {
		t := *e.ClockOutAt
		out.ClockOutAt = &t
	}
	return &out
}

// entryFields enumerates the mergeable fields for three-way conflict
// resolution. Status participates so an admin-side approval and a
// worker-side notes edit count as disjoint changes.
const (
	FieldWorkDate     = "work_date"
	FieldClockInAt    = "clock_in_at"
	FieldClockOutAt   = "clock_out_at"
	FieldBreakMinutes = "break_minutes"
	FieldNotes        = "notes"
	FieldStatus       = "status"
)

// ChangedFields returns the names of mergeable fields that differ between e
// and other. Timestamps and row versions are excluded on purpose.
func (e *TimeEntry) ChangedFields(other *TimeEntry) []string {
	var changed []string
	if !e.WorkDate.Equal(other.WorkDate) {
		changed = append(changed, FieldWorkDate)
	}
	if !e.ClockInAt.Equal(other.ClockInAt) {
		changed = append(changed, FieldClockInAt)
	}
	if !equalTimePtr(e.ClockOutAt, other.ClockOutAt) {
		changed = append(changed, FieldClockOutAt)
	}
	if e.BreakMinutes != other.BreakMinutes {
		changed = append(changed, FieldBreakMinutes)
	}
	if e.Notes != other.Notes {
		changed = append(changed, FieldNotes)
	}
	if e.Status != other.Status {
		changed = append(changed, FieldStatus)
	}
	return changed
}

// EquivalentTo reports whether two entries carry the same payload aside from
// timestamps and row version.
func (e *TimeEntry) EquivalentTo(other *TimeEntry) bool {
	return len(e.ChangedFields(other)) == 0
}

// ApplyField copies a single named field from src onto e.
func (e *TimeEntry) ApplyField(name string, src *TimeEntry) {
	switch name {
	case FieldWorkDate:
		e.WorkDate = src.WorkDate
	case FieldClockInAt:
		e.ClockInAt = src.ClockInAt
	case FieldClockOutAt:
		if src.ClockOutAt != nil {
			t := *src.ClockOutAt
			e.ClockOutAt = &t
		} else {
			e.ClockOutAt = nil
		}
	case FieldBreakMinutes:
		e.BreakMinutes = src.BreakMinutes
	case FieldNotes:
		e.Notes = src.Notes
	case FieldStatus:
		e.Status = src.Status
	}
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
