package service

import (
	"context"
	"fmt"

	"coinledger/models"
)

// reserveQuota takes one use inside the caller's unit of work. Purchased
// allowance is spent before the period counter, and the counter is only
// incremented while it is below limit.
func reserveQuota(ctx context.Context, uow UnitOfWork, key models.QuotaKey, limit int64) (*models.QuotaReservation, error) {
	repo := uow.QuotaRepository()

	fromAllowance, err := repo.ConsumeAllowance(ctx, key.Allowance())
	if err != nil {
		return nil, fmt.Errorf("failed to consume allowance: %w", err)
	}
	if fromAllowance {
		return &models.QuotaReservation{FromAllowance: true}, nil
	}

	if limit <= 0 {
		return nil, fmt.Errorf("%w: %s is not available", ErrQuotaExceeded, key.Type)
	}

	count, ok, err := repo.IncrementIfBelow(ctx, key, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to increment quota: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s limit of %d reached", ErrQuotaExceeded, key.Type, limit)
	}
	return &models.QuotaReservation{Count: count}, nil
}

// remainingQuota returns the uses left in the period plus any allowance
func remainingQuota(ctx context.Context, uow UnitOfWork, key models.QuotaKey, limit int64) (int64, error) {
	repo := uow.QuotaRepository()

	count, err := repo.Count(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to get quota count: %w", err)
	}
	allowance, err := repo.Allowance(ctx, key.Allowance())
	if err != nil {
		return 0, fmt.Errorf("failed to get allowance: %w", err)
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining + allowance, nil
}

// grantAllowance adds purchased uses inside the caller's unit of work
func grantAllowance(ctx context.Context, uow UnitOfWork, key models.AllowanceKey, n int64) (int64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("%w: allowance must be positive, got %d", ErrInvalidAmount, n)
	}
	total, err := uow.QuotaRepository().AddAllowance(ctx, key, n)
	if err != nil {
		return 0, fmt.Errorf("failed to add allowance: %w", err)
	}
	return total, nil
}
