package service

import (
	"context"
	"testing"
	"time"

	"coinledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusService_GetStatus(t *testing.T) {
	ctx := context.Background()
	factory, uow := newMockUoW(ctx)
	periods := testPeriods()
	svc := NewStatusService(factory, testConfig(t), periods)

	plays := periods.DailyKey(models.QuotaTypeCasinoPlay, 1, 7)
	votes := periods.WeeklyKey(models.QuotaTypeFreeVote, 1)
	insights := periods.DailyKey(models.QuotaTypeAIInsight, 1, 7)

	noBusinessSettings(uow, 7)
	uow.Ledger.On("GetBalance", ctx, int64(1)).Return(int64(160), nil)
	uow.Quota.On("Count", ctx, plays).Return(int64(1), nil)
	uow.Quota.On("Allowance", ctx, plays.Allowance()).Return(int64(5), nil)
	uow.Quota.On("Count", ctx, votes).Return(int64(2), nil)
	uow.Quota.On("Allowance", ctx, votes.Allowance()).Return(int64(0), nil)
	uow.Quota.On("Count", ctx, insights).Return(int64(0), nil)
	uow.Quota.On("Allowance", ctx, insights.Allowance()).Return(int64(0), nil)

	status, err := svc.GetStatus(ctx, 1, 7)

	require.NoError(t, err)
	assert.Equal(t, int64(160), status.Balance)
	assert.Equal(t, int64(14), status.PlaysRemaining)
	assert.Equal(t, int64(0), status.VotesRemaining)
	assert.Equal(t, int64(1), status.InsightsRemaining)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), status.PeriodResetAt)
	uow.AssertNotCalled(t, "Commit")
}
