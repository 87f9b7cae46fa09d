package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"coinledger/models"
	"coinledger/repository/testutil"
	"coinledger/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRepository_Integration(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	repo := NewLedgerRepository(testDB.DB)

	accountID := int64(1001)

	t.Run("lock creates missing rows at zero", func(t *testing.T) {
		balances, err := repo.LockBalances(ctx, []int64{accountID, 1002})
		require.NoError(t, err)
		assert.Equal(t, map[int64]int64{accountID: 0, 1002: 0}, balances)
	})

	t.Run("insert and rewrite balance", func(t *testing.T) {
		earn := testutil.CreateTestTransaction(accountID, models.DirectionEarning, models.CategoryTerminalSale, 100, 100)
		earn.Reference = "ext:terminal_webhook:tx-1"
		require.NoError(t, repo.Insert(ctx, earn))
		require.NoError(t, repo.SetBalance(ctx, accountID, 100))
		assert.NotZero(t, earn.ID)
		assert.False(t, earn.CreatedAt.IsZero())

		spend := testutil.CreateTestTransaction(accountID, models.DirectionSpending, models.CategoryCasinoBet, 30, 70)
		spend.Metadata = nil
		require.NoError(t, repo.Insert(ctx, spend))
		require.NoError(t, repo.SetBalance(ctx, accountID, 70))

		balance, err := repo.GetBalance(ctx, accountID)
		require.NoError(t, err)
		assert.Equal(t, int64(70), balance)

		history, err := repo.History(ctx, accountID, 10)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, spend.ID, history[0].ID)
		assert.Equal(t, models.CategoryCasinoBet, history[0].Category)
		assert.Equal(t, true, history[1].Metadata["test"])
	})

	t.Run("negative balance violates constraint", func(t *testing.T) {
		err := repo.SetBalance(ctx, accountID, -1)
		require.Error(t, err)
		assert.True(t, errors.Is(err, service.ErrInvariantViolation))

		balance, err := repo.GetBalance(ctx, accountID)
		require.NoError(t, err)
		assert.Equal(t, int64(70), balance)
	})

	t.Run("unknown account reads zero", func(t *testing.T) {
		balance, err := repo.GetBalance(ctx, 424242)
		require.NoError(t, err)
		assert.Zero(t, balance)
	})

	t.Run("archive keeps reconciled balance", func(t *testing.T) {
		before, err := repo.Reconcile(ctx, accountID)
		require.NoError(t, err)
		assert.Equal(t, int64(70), before)

		moved, err := repo.ArchiveBefore(ctx, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(2), moved)

		history, err := repo.History(ctx, accountID, 10)
		require.NoError(t, err)
		assert.Empty(t, history)

		after, err := repo.Reconcile(ctx, accountID)
		require.NoError(t, err)
		assert.Equal(t, before, after)

		exists, err := repo.ExistsByReference(ctx, accountID, "ext:terminal_webhook:tx-1")
		require.NoError(t, err)
		assert.True(t, exists)

		more := testutil.CreateTestTransaction(accountID, models.DirectionEarning, models.CategoryLevelUpBonus, 5, 75)
		require.NoError(t, repo.Insert(ctx, more))
		require.NoError(t, repo.SetBalance(ctx, accountID, 75))

		reconciled, err := repo.Reconcile(ctx, accountID)
		require.NoError(t, err)
		assert.Equal(t, int64(75), reconciled)

		// A second archive folds into the existing checkpoint
		moved, err = repo.ArchiveBefore(ctx, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), moved)

		reconciled, err = repo.Reconcile(ctx, accountID)
		require.NoError(t, err)
		assert.Equal(t, int64(75), reconciled)
	})

	t.Run("missing reference", func(t *testing.T) {
		exists, err := repo.ExistsByReference(ctx, accountID, "level:99")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}
