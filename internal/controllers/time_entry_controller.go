package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/punchlog/timeclock-service/internal/dtos"
	"github.com/punchlog/timeclock-service/internal/models"
	"github.com/punchlog/timeclock-service/internal/services"
	"github.com/punchlog/timeclock-service/internal/utils"
)

type TimeEntryController struct {
	entryService services.TimeEntryService
}

func NewTimeEntryController(entryService services.TimeEntryService) *TimeEntryController {
	return &TimeEntryController{entryService: entryService}
}

// Create handles POST /time/v1/entries.
func (c *TimeEntryController) Create(w http.ResponseWriter, r *http.Request) {
	workerID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}
	in, ok := c.decodeEntryInput(w, r)
	if !ok {
		return
	}
	entry, err := c.entryService.Create(r.Context(), workerID, in)
	if err != nil {
		c.respondEntryError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, entry)
}

// List handles GET /time/v1/entries?from=2026-08-01&to=2026-08-31.
func (c *TimeEntryController) List(w http.ResponseWriter, r *http.Request) {
	workerID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}
	from, to, err := parseDateRange(r)
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid date range", nil, err)
		return
	}
	entries, err := c.entryService.ListByWorker(r.Context(), workerID, from, to)
	if err != nil {
		c.respondEntryError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, entries)
}

// Get handles GET /time/v1/entries/{id}.
func (c *TimeEntryController) Get(w http.ResponseWriter, r *http.Request) {
	workerID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}
	id, err := parseUUID(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid entry id", nil, err)
		return
	}
	entry, err := c.entryService.GetByID(r.Context(), id)
	if err != nil {
		c.respondEntryError(w, err)
		return
	}
	if entry.WorkerID != workerID {
		utils.RespondErrorWithCode(w, http.StatusNotFound, utils.ErrCodeNotFound, "Entry not found", nil)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, entry)
}

// Update handles PUT /time/v1/entries/{id}.
func (c *TimeEntryController) Update(w http.ResponseWriter, r *http.Request) {
	workerID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}
	id, err := parseUUID(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid entry id", nil, err)
		return
	}
	in, ok := c.decodeEntryInput(w, r)
	if !ok {
		return
	}
	entry, err := c.entryService.Update(r.Context(), workerID, id, in)
	if err != nil {
		c.respondEntryError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, entry)
}

// Delete handles DELETE /time/v1/entries/{id}.
func (c *TimeEntryController) Delete(w http.ResponseWriter, r *http.Request) {
	workerID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}
	id, err := parseUUID(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid entry id", nil, err)
		return
	}
	if err := c.entryService.Delete(r.Context(), workerID, id); err != nil {
		c.respondEntryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Submit handles POST /time/v1/entries/{id}/submit.
func (c *TimeEntryController) Submit(w http.ResponseWriter, r *http.Request) {
	workerID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}
	id, err := parseUUID(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid entry id", nil, err)
		return
	}
	entry, err := c.entryService.Submit(r.Context(), workerID, id)
	if err != nil {
		c.respondEntryError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, entry)
}

// ListForReview handles GET /time/v1/admin/entries?status=SUBMITTED.
func (c *TimeEntryController) ListForReview(w http.ResponseWriter, r *http.Request) {
	status := models.EntryStatusType(r.URL.Query().Get("status"))
	if status == "" {
		status = models.EntryStatusSubmitted
	}
	entries, err := c.entryService.ListByStatus(r.Context(), status)
	if err != nil {
		c.respondEntryError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, entries)
}

// Approve handles POST /time/v1/admin/entries/{id}/approve.
func (c *TimeEntryController) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid entry id", nil, err)
		return
	}
	entry, err := c.entryService.Approve(r.Context(), id)
	if err != nil {
		c.respondEntryError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, entry)
}

// Reject handles POST /time/v1/admin/entries/{id}/reject.
func (c *TimeEntryController) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid entry id", nil, err)
		return
	}
	var req dtos.RejectEntryRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Malformed request body", nil, err)
			return
		}
		if err := validate.Struct(req); err != nil {
			utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid request", nil, err)
			return
		}
	}
	entry, err := c.entryService.Reject(r.Context(), id, req.Reason)
	if err != nil {
		c.respondEntryError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, entry)
}

func (c *TimeEntryController) decodeEntryInput(w http.ResponseWriter, r *http.Request) (services.TimeEntryInput, bool) {
	var req dtos.TimeEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Malformed request body", nil, err)
		return services.TimeEntryInput{}, false
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid request", nil, err)
		return services.TimeEntryInput{}, false
	}
	return services.TimeEntryInput{
		WorkDate:     req.WorkDate,
		ClockInAt:    req.ClockInAt,
		ClockOutAt:   req.ClockOutAt,
		BreakMinutes: req.BreakMinutes,
		Notes:        req.Notes,
	}, true
}

func (c *TimeEntryController) respondEntryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, utils.ErrEntryNotFound):
		utils.RespondErrorWithCode(w, http.StatusNotFound, utils.ErrCodeNotFound, "Entry not found", nil)
	case errors.Is(err, utils.ErrEntryImmutable):
		utils.RespondErrorWithCode(w, http.StatusConflict, utils.ErrCodeEntryImmutable, "Entry can no longer be modified", nil)
	case errors.Is(err, utils.ErrRowVersionConflict):
		utils.RespondErrorWithCode(w, http.StatusConflict, utils.ErrCodeRowVersionConflict, "Entry was modified concurrently", nil)
	default:
		utils.RespondErrorWithCode(w, http.StatusInternalServerError, utils.ErrCodeInternal, "Operation failed", nil, err)
	}
}

func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	const layout = "2006-01-02"
	q := r.URL.Query()

	from := time.Now().AddDate(0, -1, 0)
	to := time.Now().AddDate(0, 0, 1)

	var err error
	if raw := q.Get("from"); raw != "" {
		if from, err = time.Parse(layout, raw); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if raw := q.Get("to"); raw != "" {
		if to, err = time.Parse(layout, raw); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return from, to, nil
}
