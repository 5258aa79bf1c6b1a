package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/clockout/clockout/internal/config"
	"github.com/clockout/clockout/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TokenService issues and verifies the signed tokens that authorize timer
// mutations. Access and refresh tokens are signed with distinct secrets so
// one kind can never pass verification as the other.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	logger        *logrus.Logger
}

func NewTokenService(cfg *config.JWTConfig, logger *logrus.Logger) (*TokenService, error) {
	if len(cfg.AccessSecret) < 32 || len(cfg.RefreshSecret) < 32 {
		return nil, fmt.Errorf("signing secrets must be at least 32 bytes")
	}

	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessExpiry:  cfg.AccessExpiry,
		refreshExpiry: cfg.RefreshExpiry,
		logger:        logger,
	}, nil
}

type Claims struct {
	Tenant string `json:"tenant"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// IssuePair mints the access and refresh tokens returned by a successful
// login.
func (s *TokenService) IssuePair(tenant models.Tenant) (*models.TokenPair, error) {
	accessToken, err := s.sign(tenant, "access", s.accessSecret, s.accessExpiry)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign access token")
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken, err := s.sign(tenant, "refresh", s.refreshSecret, s.refreshExpiry)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign refresh token")
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.accessExpiry.Seconds()),
	}, nil
}

// IssueAccess mints a fresh access token for the refresh flow. The refresh
// token itself is not rotated.
func (s *TokenService) IssueAccess(tenant models.Tenant) (string, int64, error) {
	accessToken, err := s.sign(tenant, "access", s.accessSecret, s.accessExpiry)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign access token")
		return "", 0, fmt.Errorf("failed to sign access token: %w", err)
	}
	return accessToken, int64(s.accessExpiry.Seconds()), nil
}

// VerifyAccess validates an access token and returns the tenant it was
// issued for. Expired-but-well-signed tokens return ErrTokenExpired so
// callers can distinguish re-login prompts from malformed requests.
func (s *TokenService) VerifyAccess(tokenString string) (models.Tenant, error) {
	return s.verify(tokenString, "access", s.accessSecret)
}

// VerifyRefresh validates a refresh token and returns its tenant.
func (s *TokenService) VerifyRefresh(tokenString string) (models.Tenant, error) {
	return s.verify(tokenString, "refresh", s.refreshSecret)
}

func (s *TokenService) sign(tenant models.Tenant, tokenType string, secret []byte, expiry time.Duration) (string, error) {
	now := time.Now()
	jti := uuid.New().String()

	claims := &Claims{
		Tenant: tenant.String(),
		Type:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   tenant.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (s *TokenService) verify(tokenString, tokenType string, secret []byte) (models.Tenant, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		// An expired claim only counts once the signature checked out.
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return "", ErrTokenInvalid
		}
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", ErrTokenInvalid
	}

	if claims.Type != tokenType {
		return "", ErrTokenInvalid
	}

	// A well-signed token naming an unknown tenant is rejected outright;
	// this holds even if the signing secrets leak into another deployment.
	tenant, known := models.ParseTenant(claims.Tenant)
	if !known {
		return "", ErrUnknownTenant
	}

	return tenant, nil
}
