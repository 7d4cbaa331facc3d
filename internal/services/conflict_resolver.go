package services

import (
	"github.com/punchlog/timeclock-service/internal/models"
)

type ResolutionOutcome int

const (
	// OutcomeNoConflict: local and remote already agree; drop the operation.
	OutcomeNoConflict ResolutionOutcome = iota
	// OutcomeMerged: disjoint field changes were combined; write Merged.
	OutcomeMerged
	// OutcomePermanentConflict: the remote entry reached a terminal status;
	// the local edit is rejected and never retried.
	OutcomePermanentConflict
	// OutcomeManual: overlapping edits; both versions go back to the caller.
	OutcomeManual
)

type Resolution struct {
	Outcome ResolutionOutcome
	Merged  *models.TimeEntry
}

// ConflictResolver decides what happens when a queued local edit meets a
// remote entry that changed since the edit was made. Rules apply in order:
//
//  1. payloads equivalent aside from timestamps: no real conflict
//  2. remote in a terminal status: permanent rejection
//  3. local and remote changed disjoint fields since the common base:
//     union merge on top of the remote version
//  4. otherwise: manual resolution
type ConflictResolver struct{}

func NewConflictResolver() *ConflictResolver {
	return &ConflictResolver{}
}

func (cr *ConflictResolver) Resolve(base, local, remote *models.TimeEntry) Resolution {
	if local.EquivalentTo(remote) {
		return Resolution{Outcome: OutcomeNoConflict}
	}

	if remote.Status.IsTerminal() {
		return Resolution{Outcome: OutcomePermanentConflict}
	}

	// Without a base snapshot there is no way to tell which side changed
	// what, so overlapping edits cannot be ruled out.
	if base == nil {
		return Resolution{Outcome: OutcomeManual}
	}

	localChanged := base.ChangedFields(local)
	remoteChanged := base.ChangedFields(remote)
	if disjoint(localChanged, remoteChanged) {
		merged := remote.Clone()
		for _, f := range localChanged {
			merged.ApplyField(f, local)
		}
		return Resolution{Outcome: OutcomeMerged, Merged: merged}
	}

	return Resolution{Outcome: OutcomeManual}
}

func disjoint(a, b []string) bool {
	seen := make(map[string]struct{}, len(a))
	for _, f := range a {
		seen[f] = struct{}{}
	}
	for _, f := range b {
		if _, ok := seen[f]; ok {
			return false
		}
	}
	return true
}
