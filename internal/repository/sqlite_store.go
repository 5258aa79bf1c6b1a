package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/clockout/clockout/internal/models"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the file-backed store for local development. Same schema
// as the Postgres adapter, ? placeholders instead of $n.
type SQLiteStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	store := &SQLiteStore{db: db, logger: logger}
	if err := store.bootstrap(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	logger.WithField("path", path).Info("SQLite timer store initialized")
	return store, nil
}

func (s *SQLiteStore) bootstrap(ctx context.Context) error {
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
		_, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO timer_settings (slug, hour, minute) VALUES (?, ?, ?)`,
			tenant.String(), models.DefaultHour, models.DefaultMinute,
		)
		if err != nil {
			return fmt.Errorf("failed to seed timer setting for %s: %w", tenant, err)
		}
	}

	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, tenant models.Tenant) (models.TimerSetting, error) {
	setting := models.TimerSetting{Tenant: tenant}
	err := s.db.QueryRowContext(ctx,
		`SELECT hour, minute FROM timer_settings WHERE slug = ?`,
		tenant.String(),
	).Scan(&setting.Hour, &setting.Minute)

	if errors.Is(err, sql.ErrNoRows) {
		return models.TimerSetting{}, ErrNotFound
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to read timer setting from SQLite")
		return models.TimerSetting{}, fmt.Errorf("failed to get timer setting: %w", err)
	}

	return setting, nil
}

func (s *SQLiteStore) Set(ctx context.Context, tenant models.Tenant, hour, minute int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO timer_settings (slug, hour, minute)
		VALUES (?, ?, ?)
		ON CONFLICT (slug) DO UPDATE SET hour = excluded.hour, minute = excluded.minute
	`, tenant.String(), hour, minute)

	if err != nil {
		s.logger.WithError(err).Error("Failed to write timer setting to SQLite")
		return fmt.Errorf("failed to set timer setting: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
