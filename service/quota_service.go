package service

import (
	"context"

	"coinledger/config"
	"coinledger/models"

	log "github.com/sirupsen/logrus"
)

type quotaService struct {
	uowFactory    UnitOfWorkFactory
	periods       Periods
	dailyInsights int64
}

// NewQuotaService creates a new quota service
func NewQuotaService(uowFactory UnitOfWorkFactory, cfg *config.Config, periods Periods) QuotaService {
	return &quotaService{
		uowFactory:    uowFactory,
		periods:       periods,
		dailyInsights: cfg.DailyInsights,
	}
}

func (s *quotaService) CanProceed(ctx context.Context, key models.QuotaKey, limit int64) (bool, error) {
	remaining, err := s.Remaining(ctx, key, limit)
	if err != nil {
		return false, err
	}
	return remaining > 0, nil
}

func (s *quotaService) Consume(ctx context.Context, key models.QuotaKey) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, storageError("failed to begin transaction", err)
	}
	defer uow.Rollback()

	count, err := uow.QuotaRepository().Increment(ctx, key)
	if err != nil {
		return 0, storageError("failed to consume quota", err)
	}

	if err := uow.Commit(); err != nil {
		return 0, storageError("failed to commit transaction", err)
	}
	return count, nil
}

func (s *quotaService) Reserve(ctx context.Context, key models.QuotaKey, limit int64) (*models.QuotaReservation, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("failed to begin transaction", err)
	}
	defer uow.Rollback()

	reservation, err := reserveQuota(ctx, uow, key, limit)
	if err != nil {
		return nil, storageError("failed to reserve quota", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, storageError("failed to commit transaction", err)
	}
	return reservation, nil
}

func (s *quotaService) Remaining(ctx context.Context, key models.QuotaKey, limit int64) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, storageError("failed to begin transaction", err)
	}
	defer uow.Rollback()

	remaining, err := remainingQuota(ctx, uow, key, limit)
	if err != nil {
		return 0, storageError("failed to get remaining quota", err)
	}
	return remaining, nil
}

func (s *quotaService) RemainingToday(ctx context.Context, accountID, businessID int64, quotaType models.QuotaType, limit int64) (int64, error) {
	return s.Remaining(ctx, s.periods.DailyKey(quotaType, accountID, businessID), limit)
}

func (s *quotaService) RemainingThisWeek(ctx context.Context, accountID int64, quotaType models.QuotaType, limit int64) (int64, error) {
	return s.Remaining(ctx, s.periods.WeeklyKey(quotaType, accountID), limit)
}

func (s *quotaService) ConsumeInsight(ctx context.Context, accountID, businessID int64) (int64, error) {
	key := s.periods.DailyKey(models.QuotaTypeAIInsight, accountID, businessID)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, storageError("failed to begin transaction", err)
	}
	defer uow.Rollback()

	if _, err := reserveQuota(ctx, uow, key, s.dailyInsights); err != nil {
		return 0, storageError("failed to reserve insight", err)
	}
	remaining, err := remainingQuota(ctx, uow, key, s.dailyInsights)
	if err != nil {
		return 0, storageError("failed to get remaining insights", err)
	}

	if err := uow.Commit(); err != nil {
		return 0, storageError("failed to commit transaction", err)
	}

	log.WithFields(log.Fields{
		"accountID":  accountID,
		"businessID": businessID,
		"remaining":  remaining,
	}).Debug("Insight refresh consumed")
	return remaining, nil
}
