package service

import (
	"strings"
	"testing"
	"time"

	"github.com/clockout/clockout/internal/config"
	"github.com/clockout/clockout/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const (
	testAccessSecret  = "test-access-secret-0123456789abcdef"
	testRefreshSecret = "test-refresh-secret-0123456789abcdef"
)

func testTokenService(t *testing.T, accessExpiry, refreshExpiry time.Duration) *TokenService {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	svc, err := NewTokenService(&config.JWTConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessExpiry:  accessExpiry,
		RefreshExpiry: refreshExpiry,
	}, logger)
	require.NoError(t, err)
	return svc
}

func TestNewTokenServiceRejectsShortSecrets(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	_, err := NewTokenService(&config.JWTConfig{
		AccessSecret:  "short",
		RefreshSecret: testRefreshSecret,
	}, logger)
	require.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	svc := testTokenService(t, 15*time.Minute, 7*24*time.Hour)

	pair, err := svc.IssuePair(models.TenantMin)
	require.NoError(t, err)
	require.Equal(t, "bearer", pair.TokenType)
	require.Equal(t, int64((15 * time.Minute).Seconds()), pair.ExpiresIn)

	tenant, err := svc.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, models.TenantMin, tenant)

	tenant, err = svc.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, models.TenantMin, tenant)
}

func TestTokenSecretsAreNotInterchangeable(t *testing.T) {
	svc := testTokenService(t, 15*time.Minute, 7*24*time.Hour)

	pair, err := svc.IssuePair(models.TenantSE)
	require.NoError(t, err)

	t.Run("refresh token fails the access check", func(t *testing.T) {
		_, err := svc.VerifyAccess(pair.RefreshToken)
		require.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("access token fails the refresh check", func(t *testing.T) {
		_, err := svc.VerifyRefresh(pair.AccessToken)
		require.ErrorIs(t, err, ErrTokenInvalid)
	})
}

func TestExpiredTokenIsDistinctFromInvalid(t *testing.T) {
	svc := testTokenService(t, -time.Minute, 7*24*time.Hour)

	pair, err := svc.IssuePair(models.TenantSE)
	require.NoError(t, err)

	_, err = svc.VerifyAccess(pair.AccessToken)
	require.ErrorIs(t, err, ErrTokenExpired)
	require.NotErrorIs(t, err, ErrTokenInvalid)
}

func TestGarbageTokenIsInvalid(t *testing.T) {
	svc := testTokenService(t, 15*time.Minute, 7*24*time.Hour)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := svc.VerifyAccess(token)
		require.ErrorIs(t, err, ErrTokenInvalid)
	}
}

func TestTamperedTokenIsInvalid(t *testing.T) {
	svc := testTokenService(t, 15*time.Minute, 7*24*time.Hour)

	pair, err := svc.IssuePair(models.TenantSE)
	require.NoError(t, err)

	parts := strings.Split(pair.AccessToken, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	_, err = svc.VerifyAccess(tampered)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestUnknownTenantRejectedEvenWhenWellSigned(t *testing.T) {
	svc := testTokenService(t, 15*time.Minute, 7*24*time.Hour)

	// Signed with the real access secret but naming a tenant outside the
	// closed set.
	now := time.Now()
	claims := &Claims{
		Tenant: "intruder",
		Type:   "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "intruder",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAccessSecret))
	require.NoError(t, err)

	_, err = svc.VerifyAccess(token)
	require.ErrorIs(t, err, ErrUnknownTenant)
}
