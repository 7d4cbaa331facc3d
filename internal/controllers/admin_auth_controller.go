package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/punchlog/timeclock-service/internal/dtos"
	"github.com/punchlog/timeclock-service/internal/services"
	"github.com/punchlog/timeclock-service/internal/utils"
)

type AdminAuthController struct {
	adminAuthService services.AdminAuthService
	refreshTTL       time.Duration
}

func NewAdminAuthController(adminAuthService services.AdminAuthService, refreshTTL time.Duration) *AdminAuthController {
	return &AdminAuthController{adminAuthService: adminAuthService, refreshTTL: refreshTTL}
}

// Login handles POST /auth/v1/admin/login.
func (c *AdminAuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req dtos.AdminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Malformed request body", nil, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid request", nil, err)
		return
	}

	client := utils.GetClientIdentifier(r, utils.GetClientPlatform(r))
	pair, err := c.adminAuthService.Login(r.Context(), req.Username, req.Password, req.TotpCode, client)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrAccountLocked):
			utils.RespondErrorWithCode(w, http.StatusLocked, utils.ErrCodeLockedAccount, "Account temporarily locked", nil)
		case errors.Is(err, utils.ErrInvalidCredentials):
			utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeInvalidCredentials, "Invalid username or password", nil)
		case errors.Is(err, utils.ErrInvalidTOTP):
			utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeInvalidTotp, "Invalid one-time code", nil)
		default:
			utils.RespondErrorWithCode(w, http.StatusInternalServerError, utils.ErrCodeInternal, "Login failed", nil, err)
		}
		return
	}
	respondWithTokens(w, r, pair, c.refreshTTL)
}
