package service

import (
	"crypto/subtle"
	"strings"

	"github.com/clockout/clockout/internal/config"
	"github.com/clockout/clockout/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// CredentialRegistry maps tenants to their configured admin secret. It is
// resolved once at startup and read-only afterwards. A tenant without a
// configured secret can never log in.
type CredentialRegistry struct {
	secrets map[models.Tenant]string
}

func NewCredentialRegistry(cfg *config.AdminConfig) *CredentialRegistry {
	secrets := make(map[models.Tenant]string, len(cfg.Passwords))
	for tenant, secret := range cfg.Passwords {
		secrets[tenant] = secret
	}
	return &CredentialRegistry{secrets: secrets}
}

// Lookup returns the configured secret for a tenant. Absence is not an
// error; it means login is disabled for that tenant.
func (r *CredentialRegistry) Lookup(tenant models.Tenant) (string, bool) {
	secret, ok := r.secrets[tenant]
	return secret, ok
}

// Verify checks a supplied password against a tenant's configured secret.
// Secrets in bcrypt format are compared as hashes; anything else is
// compared in constant time as plaintext.
func (r *CredentialRegistry) Verify(tenant models.Tenant, password string) bool {
	secret, ok := r.secrets[tenant]
	if !ok {
		return false
	}
	if isBcryptHash(secret) {
		return bcrypt.CompareHashAndPassword([]byte(secret), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(password)) == 1
}

func isBcryptHash(secret string) bool {
	return strings.HasPrefix(secret, "$2a$") ||
		strings.HasPrefix(secret, "$2b$") ||
		strings.HasPrefix(secret, "$2y$")
}
