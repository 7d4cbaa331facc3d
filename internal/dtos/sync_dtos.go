package dtos

import (
	"github.com/punchlog/timeclock-service/internal/models"
)

// SyncOperationRequest is one queued offline mutation pushed by the client.
// Entry is the locally mutated record; Base is the snapshot the edit was
// made against (absent for creates).
type SyncOperationRequest struct {
	Kind  string            `json:"kind" validate:"required,oneof=create update delete"`
	Entry *models.TimeEntry `json:"entry" validate:"required"`
	Base  *models.TimeEntry `json:"base,omitempty"`
}

type SyncRequest struct {
	Operations []SyncOperationRequest `json:"operations" validate:"max=200,dive"`
}

type SyncResponse struct {
	Applied         int                     `json:"applied"`
	NeedsResolution int                     `json:"needs_resolution"`
	Failed          int                     `json:"failed"`
	Remaining       int                     `json:"remaining"`
	Unresolved      []*models.SyncOperation `json:"unresolved,omitempty"`
}

type ResolveRequest struct {
	Choice string `json:"choice" validate:"required,oneof=keep_local keep_remote"`
}

type SetOnlineRequest struct {
	Online *bool `json:"online" validate:"required"`
}
