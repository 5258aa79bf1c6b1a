package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/clockout/clockout/internal/models"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// PostgresStore backs timer settings with Postgres, the store the hosted
// deployment runs on.
type PostgresStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewPostgresStore(databaseURL string, logger *logrus.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	store := &PostgresStore{db: db, logger: logger}
	if err := store.bootstrap(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Postgres timer store initialized")
	return store, nil
}

// bootstrap creates the schema if needed and seeds the default target for
// every known tenant. Seeding is idempotent; existing rows are untouched.
func (s *PostgresStore) bootstrap(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS timer_settings (
			slug TEXT PRIMARY KEY,
			hour INTEGER NOT NULL,
			minute INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create timer_settings table: %w", err)
	}

	for _, tenant := range models.Tenants() {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO timer_settings (slug, hour, minute)
			VALUES ($1, $2, $3)
			ON CONFLICT (slug) DO NOTHING
		`, tenant.String(), models.DefaultHour, models.DefaultMinute)
		if err != nil {
			return fmt.Errorf("failed to seed timer setting for %s: %w", tenant, err)
		}
	}

	return nil
}

func (s *PostgresStore) Get(ctx context.Context, tenant models.Tenant) (models.TimerSetting, error) {
	setting := models.TimerSetting{Tenant: tenant}
	err := s.db.QueryRowContext(ctx,
		`SELECT hour, minute FROM timer_settings WHERE slug = $1`,
		tenant.String(),
	).Scan(&setting.Hour, &setting.Minute)

	if errors.Is(err, sql.ErrNoRows) {
		return models.TimerSetting{}, ErrNotFound
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to read timer setting from Postgres")
		return models.TimerSetting{}, fmt.Errorf("failed to get timer setting: %w", err)
	}

	return setting, nil
}

func (s *PostgresStore) Set(ctx context.Context, tenant models.Tenant, hour, minute int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO timer_settings (slug, hour, minute)
		VALUES ($1, $2, $3)
		ON CONFLICT (slug) DO UPDATE SET hour = EXCLUDED.hour, minute = EXCLUDED.minute
	`, tenant.String(), hour, minute)

	if err != nil {
		s.logger.WithError(err).Error("Failed to write timer setting to Postgres")
		return fmt.Errorf("failed to set timer setting: %w", err)
	}

	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
