package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"coinledger/models"
	"coinledger/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaRepository_IncrementIfBelow_Concurrent(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	repo := NewQuotaRepository(testDB.DB)

	key := models.QuotaKey{AccountID: 7, BusinessID: 3, Type: models.QuotaTypeCasinoPlay, PeriodKey: "2024-03-09"}
	const limit = 10

	var granted atomic.Int64
	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := repo.IncrementIfBelow(ctx, key, limit)
			if err != nil {
				errs <- err
				return
			}
			if ok {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int64(limit), granted.Load())

	count, err := repo.Count(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(limit), count)

	count, ok, err := repo.IncrementIfBelow(ctx, key, limit)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(limit), count)
}

func TestQuotaRepository_Integration(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	repo := NewQuotaRepository(testDB.DB)

	key := models.QuotaKey{AccountID: 8, BusinessID: models.PlatformBusinessID, Type: models.QuotaTypeFreeVote, PeriodKey: "2024-W10"}

	t.Run("absent counter reads zero", func(t *testing.T) {
		count, err := repo.Count(ctx, key)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("increment ignores limits", func(t *testing.T) {
		for i := int64(1); i <= 3; i++ {
			count, err := repo.Increment(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, i, count)
		}
	})

	t.Run("zero limit never grants", func(t *testing.T) {
		other := key
		other.PeriodKey = "2024-W11"
		_, ok, err := repo.IncrementIfBelow(ctx, other, 0)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("periods are independent", func(t *testing.T) {
		next := key
		next.PeriodKey = "2024-W12"
		count, ok, err := repo.IncrementIfBelow(ctx, next, 2)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(1), count)
	})

	t.Run("allowance is consumed until empty", func(t *testing.T) {
		allowance := key.Allowance()

		remaining, err := repo.AddAllowance(ctx, allowance, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(2), remaining)

		for _, want := range []bool{true, true, false} {
			ok, err := repo.ConsumeAllowance(ctx, allowance)
			require.NoError(t, err)
			assert.Equal(t, want, ok)
		}

		remaining, err = repo.Allowance(ctx, allowance)
		require.NoError(t, err)
		assert.Zero(t, remaining)
	})
}
