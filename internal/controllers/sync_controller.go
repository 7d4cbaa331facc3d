package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/punchlog/timeclock-service/internal/dtos"
	"github.com/punchlog/timeclock-service/internal/models"
	"github.com/punchlog/timeclock-service/internal/services"
	"github.com/punchlog/timeclock-service/internal/utils"
)

type SyncController struct {
	syncService services.SyncService
}

func NewSyncController(syncService services.SyncService) *SyncController {
	return &SyncController{syncService: syncService}
}

// Push handles POST /time/v1/sync: the client uploads its queued offline
// operations, which are enqueued in order and drained once.
func (c *SyncController) Push(w http.ResponseWriter, r *http.Request) {
	workerID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}

	var req dtos.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Malformed request body", nil, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid request", nil, err)
		return
	}

	for _, op := range req.Operations {
		// Queued entries always belong to the authenticated worker.
		op.Entry.WorkerID = workerID
		if _, err := c.syncService.Enqueue(r.Context(), workerID, models.SyncOpKind(op.Kind), op.Entry, op.Base); err != nil {
			utils.RespondErrorWithCode(w, http.StatusInternalServerError, utils.ErrCodeInternal, "Could not queue operation", nil, err)
			return
		}
	}

	result, err := c.syncService.Drain(r.Context(), workerID)
	if err != nil && !errors.Is(err, utils.ErrSyncInProgress) {
		utils.RespondErrorWithCode(w, http.StatusInternalServerError, utils.ErrCodeInternal, "Sync failed", nil, err)
		return
	}
	if result == nil {
		result = &services.DrainResult{}
	}

	unresolved, err := c.syncService.ListUnresolved(r.Context(), workerID)
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusInternalServerError, utils.ErrCodeInternal, "Sync failed", nil, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.SyncResponse{
		Applied:         result.Applied,
		NeedsResolution: result.NeedsResolution,
		Failed:          result.Failed,
		Remaining:       result.Remaining,
		Unresolved:      unresolved,
	})
}

// ListUnresolved handles GET /time/v1/sync/unresolved.
func (c *SyncController) ListUnresolved(w http.ResponseWriter, r *http.Request) {
	workerID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}
	ops, err := c.syncService.ListUnresolved(r.Context(), workerID)
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusInternalServerError, utils.ErrCodeInternal, "Could not list conflicts", nil, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, ops)
}

// Resolve handles POST /time/v1/sync/{id}/resolve.
func (c *SyncController) Resolve(w http.ResponseWriter, r *http.Request) {
	workerID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}
	opID, err := parseUUID(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid operation id", nil, err)
		return
	}

	var req dtos.ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Malformed request body", nil, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid request", nil, err)
		return
	}

	err = c.syncService.Resolve(r.Context(), workerID, opID, models.ResolutionChoice(req.Choice))
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrEntryNotFound):
			utils.RespondErrorWithCode(w, http.StatusNotFound, utils.ErrCodeNotFound, "Operation not found", nil)
		case errors.Is(err, utils.ErrEntryImmutable):
			utils.RespondErrorWithCode(w, http.StatusConflict, utils.ErrCodeEntryImmutable, "Remote entry can no longer be modified", nil)
		case errors.Is(err, utils.ErrManualResolutionNeeded):
			utils.RespondErrorWithCode(w, http.StatusConflict, utils.ErrCodeNeedsResolution, "Operation is not awaiting resolution", nil)
		default:
			utils.RespondErrorWithCode(w, http.StatusInternalServerError, utils.ErrCodeInternal, "Resolution failed", nil, err)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetOnline handles PUT /time/v1/sync/online, toggling the engine's
// connectivity flag. Coming back online drains every queue with pending
// operations before responding.
func (c *SyncController) SetOnline(w http.ResponseWriter, r *http.Request) {
	var req dtos.SetOnlineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Malformed request body", nil, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid request", nil, err)
		return
	}
	c.syncService.SetOnline(*req.Online)
	if *req.Online {
		if err := c.syncService.DrainAll(r.Context()); err != nil {
			utils.RespondErrorWithCode(w, http.StatusInternalServerError, utils.ErrCodeInternal, "Drain after reconnect failed", nil, err)
			return
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]bool{"online": c.syncService.IsOnline()})
}
