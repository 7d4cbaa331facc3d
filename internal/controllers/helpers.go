package controllers

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/punchlog/timeclock-service/internal/dtos"
	"github.com/punchlog/timeclock-service/internal/middleware"
	"github.com/punchlog/timeclock-service/internal/models"
	"github.com/punchlog/timeclock-service/internal/services"
	"github.com/punchlog/timeclock-service/internal/utils"
)

var validate = validator.New()

// respondWithTokens hands a fresh token pair to the client the way its
// platform expects: cookies for web (refresh token never enters the body),
// JSON body for mobile.
func respondWithTokens(w http.ResponseWriter, r *http.Request, pair *services.TokenPair, refreshTTL time.Duration) {
	platform := utils.GetClientPlatform(r)
	if utils.IsMobile(platform) {
		utils.RespondWithJSON(w, http.StatusOK, dtos.TokenResponse{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			ExpiresAt:    pair.AccessExpiry,
		})
		return
	}
	SetAuthCookies(w, pair, refreshTTL)
	utils.RespondWithJSON(w, http.StatusOK, dtos.TokenResponse{
		ExpiresAt: pair.AccessExpiry,
	})
}

// authenticatedUserID pulls the user set by the auth middleware. A missing
// or malformed value means the route was wired without Authenticate.
func authenticatedUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := middleware.UserIDFromContext(r.Context())
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Not authenticated", nil, err)
		return uuid.Nil, false
	}
	return id, true
}

func parseUUID(raw string) (uuid.UUID, error) {
	return uuid.Parse(raw)
}

func credentialSummary(c *models.PasskeyCredential) dtos.CredentialSummary {
	return dtos.CredentialSummary{
		CredentialID: base64.RawURLEncoding.EncodeToString(c.CredentialID),
		Transports:   c.Transports,
		CreatedAt:    c.CreatedAt,
		LastUsedAt:   c.LastUsedAt,
	}
}

// extractRefreshToken prefers the cookie (web) and falls back to the parsed
// request body (mobile).
func extractRefreshToken(r *http.Request, body *dtos.RefreshRequest) string {
	if cookie, err := r.Cookie(middleware.RefreshTokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if body != nil {
		return body.RefreshToken
	}
	return ""
}
