package service

import (
	"context"

	"github.com/clockout/clockout/internal/models"
	"github.com/clockout/clockout/internal/repository"
	"github.com/sirupsen/logrus"
)

// TimerService wraps the timer store with the bounds checks the store
// contract leaves to its callers.
type TimerService struct {
	store  repository.TimerStore
	logger *logrus.Logger
}

func NewTimerService(store repository.TimerStore, logger *logrus.Logger) *TimerService {
	return &TimerService{
		store:  store,
		logger: logger,
	}
}

func (s *TimerService) Get(ctx context.Context, tenant models.Tenant) (models.TimerSetting, error) {
	return s.store.Get(ctx, tenant)
}

// SetTarget updates a tenant's clock-out time. The tenant must already be
// authorized by the caller; only the time range is validated here.
func (s *TimerService) SetTarget(ctx context.Context, tenant models.Tenant, hour, minute int) error {
	if !models.ValidTime(hour, minute) {
		return ErrInvalidTime
	}

	if err := s.store.Set(ctx, tenant, hour, minute); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"tenant": tenant.String(),
		"hour":   hour,
		"minute": minute,
	}).Info("Clock-out target updated")
	return nil
}
