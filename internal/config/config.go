package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/punchlog/timeclock-service/internal/utils"
)

// Config carries every tunable the service reads from the environment.
// Nothing else in the codebase touches os.Getenv.
type Config struct {
	AppPort     string
	DatabaseURL string

	// WebAuthn relying party.
	RPID             string
	RPDisplayName    string
	RPOrigins        []string
	RegistrationTTL  time.Duration
	AuthChallengeTTL time.Duration

	// RS256 keypair, base64-encoded PEM.
	JWTPrivateKeyB64 string
	JWTPublicKeyB64  string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration

	// Admin login lockout.
	MaxLoginAttempts int
	LockoutDuration  time.Duration

	// Offline sync queue.
	SyncMaxAttempts int

	// CORS.
	AllowedOrigins []string
}

func LoadConfig() *Config {
	cfg := &Config{
		AppPort:     getEnv("APP_PORT", "8080"),
		DatabaseURL: mustGetEnv("DATABASE_URL"),

		RPID:             mustGetEnv("RP_ID"),
		RPDisplayName:    getEnv("RP_DISPLAY_NAME", "PunchLog"),
		RPOrigins:        splitList(mustGetEnv("RP_ORIGINS")),
		RegistrationTTL:  getDurationEnv("REGISTRATION_CHALLENGE_TTL", 5*time.Minute),
		AuthChallengeTTL: getDurationEnv("AUTH_CHALLENGE_TTL", 2*time.Minute),

		JWTPrivateKeyB64: mustGetEnv("JWT_PRIVATE_KEY"),
		JWTPublicKeyB64:  mustGetEnv("JWT_PUBLIC_KEY"),
		AccessTokenTTL:   getDurationEnv("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:  getDurationEnv("REFRESH_TOKEN_TTL", 30*24*time.Hour),

		MaxLoginAttempts: getIntEnv("MAX_LOGIN_ATTEMPTS", 5),
		LockoutDuration:  getDurationEnv("LOCKOUT_DURATION", 15*time.Minute),

		SyncMaxAttempts: getIntEnv("SYNC_MAX_ATTEMPTS", 3),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "")),
	}
	return cfg
}

func mustGetEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		utils.Logger.Fatalf("missing required environment variable %s", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		utils.Logger.Fatalf("invalid integer for %s: %q", key, v)
	}
	return n
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		utils.Logger.Fatalf("invalid duration for %s: %q", key, v)
	}
	return d
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
