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

// AuthController hosts the session endpoints shared by both portals:
// refresh-token rotation and logout.
type AuthController struct {
	jwtService services.JWTService
	refreshTTL time.Duration
}

func NewAuthController(jwtService services.JWTService, refreshTTL time.Duration) *AuthController {
	return &AuthController{jwtService: jwtService, refreshTTL: refreshTTL}
}

// Refresh handles POST /auth/v1/refresh_token.
func (c *AuthController) Refresh(w http.ResponseWriter, r *http.Request) {
	var body dtos.RefreshRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Malformed request body", nil, err)
			return
		}
	}

	refreshToken := extractRefreshToken(r, &body)
	if refreshToken == "" {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing refresh token", nil)
		return
	}

	client := utils.GetClientIdentifier(r, utils.GetClientPlatform(r))
	pair, err := c.jwtService.Refresh(r.Context(), refreshToken, client)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidRefreshToken) {
			ClearAuthCookies(w)
			utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid refresh token", nil)
			return
		}
		utils.RespondErrorWithCode(w, http.StatusInternalServerError, utils.ErrCodeInternal, "Could not refresh session", nil, err)
		return
	}
	respondWithTokens(w, r, pair, c.refreshTTL)
}

// Logout handles POST /auth/v1/logout. Revokes the refresh token when one
// is presented and always clears cookies.
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	var body dtos.RefreshRequest
	if r.Body != nil && r.ContentLength != 0 {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	if refreshToken := extractRefreshToken(r, &body); refreshToken != "" {
		if err := c.jwtService.Logout(r.Context(), refreshToken); err != nil {
			utils.Logger.Warnf("revoking refresh token on logout: %v", err)
		}
	}
	ClearAuthCookies(w)
	w.WriteHeader(http.StatusNoContent)
}
