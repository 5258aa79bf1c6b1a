package service

import (
	"context"

	"github.com/clockout/clockout/internal/config"
	"github.com/clockout/clockout/internal/models"
	"github.com/clockout/clockout/internal/ratelimit"
	"github.com/sirupsen/logrus"
)

// Logging threshold for repeated wrong-password attempts. Advisory only;
// actual blocking is the rate limiter's job.
const failedLoginWarnThreshold = 5

const (
	actionLogin   = "login"
	actionRefresh = "refresh"
)

// AuthService orchestrates login, token refresh and request
// authentication for the admin endpoints.
type AuthService struct {
	registry    *CredentialRegistry
	tokens      *TokenService
	limiter     ratelimit.Limiter
	failures    ratelimit.FailureCounter
	loginRule   ratelimit.Rule
	refreshRule ratelimit.Rule
	logger      *logrus.Logger
}

func NewAuthService(
	registry *CredentialRegistry,
	tokens *TokenService,
	limiter ratelimit.Limiter,
	failures ratelimit.FailureCounter,
	cfg *config.RateLimitConfig,
	logger *logrus.Logger,
) *AuthService {
	return &AuthService{
		registry: registry,
		tokens:   tokens,
		limiter:  limiter,
		failures: failures,
		loginRule: ratelimit.Rule{
			Limit:  cfg.LoginLimit,
			Window: cfg.LoginWindow,
			Block:  cfg.BlockDuration,
		},
		refreshRule: ratelimit.Rule{
			Limit:  cfg.RefreshLimit,
			Window: cfg.RefreshWindow,
			Block:  cfg.BlockDuration,
		},
		logger: logger,
	}
}

// Login runs the full admission chain for a credential login: rate limit,
// tenant validation, credential check, then token issuance.
func (s *AuthService) Login(ctx context.Context, callerIP, slug, password string) (*models.TokenPair, error) {
	decision, err := s.limiter.Admit(ctx, callerIP, actionLogin, s.loginRule)
	if err != nil {
		// Limiter backend trouble must not open the login gate.
		return nil, err
	}
	if !decision.Allowed {
		return nil, &RateLimitError{RetryAfter: decision.RetryAfter}
	}

	tenant, known := models.ParseTenant(slug)
	if !known {
		return nil, ErrUnknownTenant
	}

	if !s.registry.Verify(tenant, password) {
		count, cerr := s.failures.Fail(ctx, callerIP, tenant.String())
		if cerr != nil {
			s.logger.WithError(cerr).Error("Failed to record login failure")
		} else if count >= failedLoginWarnThreshold {
			s.logger.WithFields(logrus.Fields{
				"caller": callerIP,
				"tenant": tenant.String(),
				"count":  count,
			}).Warn("Repeated failed login attempts")
		}
		return nil, ErrBadCredentials
	}

	if err := s.failures.Reset(ctx, callerIP, tenant.String()); err != nil {
		s.logger.WithError(err).Error("Failed to reset login failures")
	}

	pair, err := s.tokens.IssuePair(tenant)
	if err != nil {
		return nil, err
	}

	s.logger.WithField("tenant", tenant.String()).Info("Admin logged in")
	return pair, nil
}

// Refresh verifies a refresh token and mints a new access token for its
// tenant. The refresh token is not rotated.
func (s *AuthService) Refresh(ctx context.Context, callerIP, refreshToken string) (string, int64, error) {
	decision, err := s.limiter.Admit(ctx, callerIP, actionRefresh, s.refreshRule)
	if err != nil {
		return "", 0, err
	}
	if !decision.Allowed {
		return "", 0, &RateLimitError{RetryAfter: decision.RetryAfter}
	}

	tenant, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", 0, err
	}

	return s.tokens.IssueAccess(tenant)
}

// Authenticate resolves a bearer access token to the tenant it authorizes.
// The returned tenant is the only one the request may mutate.
func (s *AuthService) Authenticate(tokenString string) (models.Tenant, error) {
	return s.tokens.VerifyAccess(tokenString)
}
