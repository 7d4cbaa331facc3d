package models

import (
	"time"

	"github.com/google/uuid"
)

type SyncOpKind string

const (
	SyncOpCreate SyncOpKind = "create"
	SyncOpUpdate SyncOpKind = "update"
	SyncOpDelete SyncOpKind = "delete"
)

type SyncOpStatus string

const (
	SyncOpPending         SyncOpStatus = "PENDING"
	SyncOpInFlight        SyncOpStatus = "IN_FLIGHT"
	SyncOpFailed          SyncOpStatus = "FAILED"
	SyncOpNeedsResolution SyncOpStatus = "NEEDS_RESOLUTION"
)

// SyncOperation is one queued offline mutation to a time entry. Payload is
// the locally mutated record; Base is the snapshot the edit was made
// against, which the resolver needs for three-way field diffs. Operations
// are drained in enqueue order and never silently dropped: transient
// failures stay PENDING with an incremented attempt count, exhausted
// retries become FAILED, and true conflicts become NEEDS_RESOLUTION with
// the remote version captured for the caller to choose from.
type SyncOperation struct {
	ID             uuid.UUID  `json:"id"`
	WorkerID       uuid.UUID  `json:"worker_id"`
	Kind           SyncOpKind `json:"kind"`
	EntryID        uuid.UUID  `json:"entry_id"`
	Payload        *TimeEntry `json:"payload,omitempty"`
	Base           *TimeEntry `json:"base,omitempty"`
	BaseUpdatedAt  *time.Time `json:"base_updated_at,omitempty"`
	LocalTimestamp time.Time  `json:"local_timestamp"`

	AttemptCount   int          `json:"attempt_count"`
	Status         SyncOpStatus `json:"status"`
	LastError      string       `json:"last_error,omitempty"`
	RemoteSnapshot *TimeEntry   `json:"remote_snapshot,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ResolutionChoice is the caller's answer to a NEEDS_RESOLUTION operation.
type ResolutionChoice string

const (
	ResolutionKeepLocal  ResolutionChoice = "keep_local"
	ResolutionKeepRemote ResolutionChoice = "keep_remote"
)
