package service

import (
	"context"

	"coinledger/config"
	"coinledger/models"
)

type statusService struct {
	uowFactory    UnitOfWorkFactory
	defaults      models.GameSettings
	periods       Periods
	freeVotes     int64
	dailyInsights int64
}

// NewStatusService creates a new status service
func NewStatusService(uowFactory UnitOfWorkFactory, cfg *config.Config, periods Periods) StatusService {
	return &statusService{
		uowFactory:    uowFactory,
		defaults:      PlatformDefaults(cfg),
		periods:       periods,
		freeVotes:     cfg.WeeklyFreeVotes,
		dailyInsights: cfg.DailyInsights,
	}
}

func (s *statusService) GetStatus(ctx context.Context, accountID, businessID int64) (*models.AccountStatus, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("failed to begin transaction", err)
	}
	defer uow.Rollback()

	settings, err := resolveGameSettings(ctx, uow, s.defaults, businessID)
	if err != nil {
		return nil, storageError("failed to resolve settings", err)
	}

	balance, err := uow.LedgerRepository().GetBalance(ctx, accountID)
	if err != nil {
		return nil, storageError("failed to get balance", err)
	}

	plays, err := remainingQuota(ctx, uow, s.periods.DailyKey(models.QuotaTypeCasinoPlay, accountID, businessID), settings.DailyPlayLimit)
	if err != nil {
		return nil, storageError("failed to get remaining plays", err)
	}
	votes, err := remainingQuota(ctx, uow, s.periods.WeeklyKey(models.QuotaTypeFreeVote, accountID), s.freeVotes)
	if err != nil {
		return nil, storageError("failed to get remaining votes", err)
	}
	insights, err := remainingQuota(ctx, uow, s.periods.DailyKey(models.QuotaTypeAIInsight, accountID, businessID), s.dailyInsights)
	if err != nil {
		return nil, storageError("failed to get remaining insights", err)
	}

	return &models.AccountStatus{
		Balance:           balance,
		PlaysRemaining:    plays,
		VotesRemaining:    votes,
		InsightsRemaining: insights,
		PeriodResetAt:     s.periods.NextDailyReset(),
	}, nil
}
