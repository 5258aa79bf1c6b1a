package models

// Tenant identifies one timer owner. The set of tenants is closed and known
// at startup; values outside it are rejected everywhere, including inside
// otherwise valid signed tokens.
type Tenant string

const (
	TenantSE       Tenant = "se"
	TenantMin      Tenant = "min"
	TenantTutoring Tenant = "tutoring"
)

// DefaultTenant is served by the unscoped /api/clock-out endpoint.
const DefaultTenant = TenantSE

var allTenants = []Tenant{TenantSE, TenantMin, TenantTutoring}

// Tenants returns the closed tenant set in a stable order.
func Tenants() []Tenant {
	out := make([]Tenant, len(allTenants))
	copy(out, allTenants)
	return out
}

// ParseTenant maps a slug to a known tenant. The second return is false for
// any slug outside the closed set.
func ParseTenant(slug string) (Tenant, bool) {
	switch Tenant(slug) {
	case TenantSE:
		return TenantSE, true
	case TenantMin:
		return TenantMin, true
	case TenantTutoring:
		return TenantTutoring, true
	}
	return "", false
}

func (t Tenant) String() string {
	return string(t)
}
