package repository

import (
	"context"
	"sync"

	"github.com/clockout/clockout/internal/models"
)

// MemoryStore keeps timer settings in process memory. Used in tests and
// as the zero-configuration default; settings do not survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	settings map[models.Tenant]models.TimerSetting
}

func NewMemoryStore() *MemoryStore {
	settings := make(map[models.Tenant]models.TimerSetting)
	for _, tenant := range models.Tenants() {
		settings[tenant] = models.TimerSetting{
			Tenant: tenant,
			Hour:   models.DefaultHour,
			Minute: models.DefaultMinute,
		}
	}
	return &MemoryStore{settings: settings}
}

func (s *MemoryStore) Get(_ context.Context, tenant models.Tenant) (models.TimerSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	setting, ok := s.settings[tenant]
	if !ok {
		return models.TimerSetting{}, ErrNotFound
	}
	return setting, nil
}

func (s *MemoryStore) Set(_ context.Context, tenant models.Tenant, hour, minute int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[tenant] = models.TimerSetting{Tenant: tenant, Hour: hour, Minute: minute}
	return nil
}

func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
