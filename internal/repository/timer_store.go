package repository

import (
	"context"
	"errors"

	"github.com/clockout/clockout/internal/models"
)

// ErrNotFound is returned when a tenant has no stored timer setting.
var ErrNotFound = errors.New("timer setting not found")

// TimerStore persists one clock-out target per tenant. Every adapter
// guarantees a row for each known tenant after open, seeded at 18:00,
// so Get only fails for tenants outside the closed set or on backend
// trouble.
type TimerStore interface {
	Get(ctx context.Context, tenant models.Tenant) (models.TimerSetting, error)
	Set(ctx context.Context, tenant models.Tenant, hour, minute int) error
	Ping(ctx context.Context) error
	Close() error
}
