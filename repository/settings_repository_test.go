package repository

import (
	"context"
	"testing"
	"time"

	"coinledger/models"
	"coinledger/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsRepository_Integration(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	repo := NewSettingsRepository(testDB.DB)

	got, err := repo.GetByBusinessID(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, got, "a business without a row uses platform defaults")

	settings := testutil.CreateTestSettings(7)
	require.NoError(t, repo.Upsert(ctx, settings))

	settings.MaxBet = 250
	settings.HouseEdge = decimal.RequireFromString("0.08")
	require.NoError(t, repo.Upsert(ctx, settings))

	got, err = repo.GetByBusinessID(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(250), got.MaxBet)
	assert.True(t, got.HouseEdge.Equal(decimal.RequireFromString("0.08")))
	assert.True(t, got.JackpotMultiplier.Equal(decimal.NewFromInt(10)))

	settings.MinBet = 300
	assert.Error(t, repo.Upsert(ctx, settings), "max bet below min bet is refused")
}

func TestExternalEventRepository_Integration(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	repo := NewExternalEventRepository(testDB.DB)

	event := testutil.CreateTestExternalEvent("tx-77", []byte(`{"transaction_id":"tx-77"}`))

	created, err := repo.InsertIfAbsent(ctx, event)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.InsertIfAbsent(ctx, event)
	require.NoError(t, err)
	assert.False(t, created, "redelivery does not create a second row")

	stored, err := repo.GetForUpdate(ctx, models.EventSourceTerminalWebhook, "tx-77")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.ProcessingStatusPending, stored.ProcessingStatus)

	applied := int64(5)
	stored.ProcessingStatus = models.ProcessingStatusApplied
	stored.AppliedTransactionID = &applied
	require.NoError(t, repo.MarkProcessed(ctx, stored))

	stored, err = repo.GetForUpdate(ctx, models.EventSourceTerminalWebhook, "tx-77")
	require.NoError(t, err)
	assert.Equal(t, models.ProcessingStatusApplied, stored.ProcessingStatus)
	require.NotNil(t, stored.ProcessedAt)
	require.NotNil(t, stored.AppliedTransactionID)
	assert.Equal(t, applied, *stored.AppliedTransactionID)

	missing, err := repo.GetForUpdate(ctx, models.EventSourceQueueMessage, "tx-77")
	require.NoError(t, err)
	assert.Nil(t, missing, "external ids are scoped by source")
}

func TestTerminalBindingAndVoteRepositories_Integration(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	bindings := NewTerminalBindingRepository(testDB.DB)
	votes := NewVoteRepository(testDB.DB)

	account, err := bindings.GetAccountForMachine(ctx, "m-1")
	require.NoError(t, err)
	assert.Nil(t, account)

	require.NoError(t, bindings.Bind(ctx, "m-1", 10))
	require.NoError(t, bindings.Bind(ctx, "m-1", 11))

	account, err = bindings.GetAccountForMachine(ctx, "m-1")
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, int64(11), *account)

	since := time.Now().Add(-time.Minute)
	for i := 0; i < 3; i++ {
		vote := &models.Vote{AccountID: int64(20 + i), BusinessID: 7, Paid: i == 2}
		require.NoError(t, votes.Create(ctx, vote))
		assert.NotZero(t, vote.ID)
	}
	require.NoError(t, votes.Create(ctx, &models.Vote{AccountID: 20, BusinessID: 8}))

	count, err := votes.CountByBusinessSince(ctx, 7, since)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}
