package services

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/punchlog/timeclock-service/internal/config"
	"github.com/punchlog/timeclock-service/internal/models"
	"github.com/punchlog/timeclock-service/internal/repositories"
	"github.com/punchlog/timeclock-service/internal/utils"
)

const tokenIssuer = "timeclock-service"

const (
	RoleWorker = "worker"
	RoleAdmin  = "admin"
)

// AccessClaims is the payload of a signed access token. The client binding
// (IP for web, device ID for mobile) is checked again on every request.
type AccessClaims struct {
	jwt.RegisteredClaims
	Role     string `json:"role"`
	IP       string `json:"ip,omitempty"`
	DeviceID string `json:"device_id,omitempty"`
}

// TokenPair is what a successful login or refresh hands back.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	AccessExpiry time.Time `json:"access_expiry"`
}

type JWTService interface {
	// GenerateTokenPair mints an access token and a stored refresh token for
	// a freshly authenticated user.
	GenerateTokenPair(ctx context.Context, userID uuid.UUID, role string, client utils.ClientIdentifier) (*TokenPair, error)
	// ValidateAccessToken parses and verifies the signature and expiry.
	ValidateAccessToken(tokenStr string) (*AccessClaims, error)
	// Refresh rotates a refresh token: the old one is revoked, a new pair is
	// issued. Fails if the token is unknown, revoked, or expired.
	Refresh(ctx context.Context, refreshToken string, client utils.ClientIdentifier) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID uuid.UUID) error
}

type jwtService struct {
	privateKey      *rsa.PrivateKey
	publicKey       *rsa.PublicKey
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	tokenRepo       repositories.RefreshTokenRepository
}

func NewJWTService(cfg *config.Config, tokenRepo repositories.RefreshTokenRepository) (JWTService, error) {
	privPEM, err := base64.StdEncoding.DecodeString(cfg.JWTPrivateKeyB64)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	pubPEM, err := base64.StdEncoding.DecodeString(cfg.JWTPublicKeyB64)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return &jwtService{
		privateKey:      privateKey,
		publicKey:       publicKey,
		accessTokenTTL:  cfg.AccessTokenTTL,
		refreshTokenTTL: cfg.RefreshTokenTTL,
		tokenRepo:       tokenRepo,
	}, nil
}

func (s *jwtService) GenerateTokenPair(ctx context.Context, userID uuid.UUID, role string, client utils.ClientIdentifier) (*TokenPair, error) {
	now := time.Now()
	expiry := now.Add(s.accessTokenTTL)

	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(expiry),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		Role: role,
	}
	switch client.Type {
	case utils.ClientIDTypeIP:
		claims.IP = client.Value
	case utils.ClientIDTypeDeviceID:
		claims.DeviceID = client.Value
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh := &models.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     utils.RandomString(64),
		Role:      role,
		ExpiresAt: now.Add(s.refreshTokenTTL),
		CreatedAt: now,
	}
	switch client.Type {
	case utils.ClientIDTypeIP:
		refresh.IPAddress = client.Value
	case utils.ClientIDTypeDeviceID:
		refresh.DeviceID = client.Value
	}
	if err := s.tokenRepo.Create(ctx, refresh); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refresh.Token,
		AccessExpiry: expiry,
	}, nil
}

func (s *jwtService) ValidateAccessToken(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.publicKey, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}

func (s *jwtService) Refresh(ctx context.Context, refreshToken string, client utils.ClientIdentifier) (*TokenPair, error) {
	stored, err := s.tokenRepo.GetByToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if stored == nil || stored.IsExpired() {
		return nil, utils.ErrInvalidRefreshToken
	}

	// Refresh tokens stay bound to the client that obtained them.
	switch client.Type {
	case utils.ClientIDTypeIP:
		if stored.DeviceID != "" {
			return nil, utils.ErrInvalidRefreshToken
		}
	case utils.ClientIDTypeDeviceID:
		if stored.DeviceID != client.Value {
			return nil, utils.ErrInvalidRefreshToken
		}
	}

	if err := s.tokenRepo.Revoke(ctx, refreshToken); err != nil {
		return nil, err
	}

	// The role comes from the original grant, never from the caller.
	return s.GenerateTokenPair(ctx, stored.UserID, stored.Role, client)
}

func (s *jwtService) Logout(ctx context.Context, refreshToken string) error {
	return s.tokenRepo.Revoke(ctx, refreshToken)
}

func (s *jwtService) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	return s.tokenRepo.RevokeAllForUser(ctx, userID.String())
}
