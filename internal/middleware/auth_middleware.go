package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/punchlog/timeclock-service/internal/services"
	"github.com/punchlog/timeclock-service/internal/utils"
)

type contextKey string

const (
	ContextKeyUserID contextKey = "userID"
	ContextKeyRole   contextKey = "role"
)

const (
	// AccessTokenCookieName uses the __Host- prefix so browsers refuse it
	// without Secure + Path=/ + no Domain attribute.
	AccessTokenCookieName  = "__Host-accessToken"
	RefreshTokenCookieName = "auth_refreshToken"
)

// AuthMiddleware validates access tokens and exposes the authenticated
// user through the request context. Web clients carry the token in a
// cookie, mobile clients in the Authorization header.
type AuthMiddleware struct {
	jwtService services.JWTService
}

func NewAuthMiddleware(jwtService services.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		platform := utils.GetClientPlatform(r)

		tokenStr := extractAccessToken(r, platform)
		if tokenStr == "" {
			utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing access token", nil)
			return
		}

		claims, err := m.jwtService.ValidateAccessToken(tokenStr)
		if err != nil {
			if strings.Contains(err.Error(), "expired") {
				utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeTokenExpired, "Access token expired", nil)
				return
			}
			utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid access token", nil, err)
			return
		}

		// The token stays bound to the client that obtained it.
		client := utils.GetClientIdentifier(r, platform)
		switch {
		case claims.DeviceID != "":
			if client.Type != utils.ClientIDTypeDeviceID || client.Value != claims.DeviceID {
				utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Token not valid for this device", nil)
				return
			}
		case claims.IP != "":
			if client.Type != utils.ClientIDTypeIP || client.Value != claims.IP {
				utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Token not valid for this address", nil)
				return
			}
		}

		ctx := context.WithValue(r.Context(), ContextKeyUserID, claims.Subject)
		ctx = context.WithValue(ctx, ContextKeyRole, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a subtree to a single role; chain after Authenticate.
func (m *AuthMiddleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got, _ := r.Context().Value(ContextKeyRole).(string); got != role {
				utils.RespondErrorWithCode(w, http.StatusForbidden, utils.ErrCodeUnauthorized, "Insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext returns the authenticated user's ID, empty if the
// request skipped Authenticate.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyUserID).(string)
	return id
}

func extractAccessToken(r *http.Request, platform utils.PlatformType) string {
	if utils.IsMobile(platform) {
		header := r.Header.Get("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			return strings.TrimPrefix(header, "Bearer ")
		}
		return ""
	}
	cookie, err := r.Cookie(AccessTokenCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
