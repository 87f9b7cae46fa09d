package repository

import (
	"context"
	"fmt"

	"coinledger/database"
	"coinledger/models"

	"github.com/jackc/pgx/v5"
)

// QuotaRepository implements the QuotaRepository interface
type QuotaRepository struct {
	q queryable
}

// NewQuotaRepository creates a new quota repository
func NewQuotaRepository(db *database.DB) *QuotaRepository {
	return &QuotaRepository{q: db.Pool}
}

// newQuotaRepositoryWithTx creates a new quota repository with a transaction
func newQuotaRepositoryWithTx(tx queryable) *QuotaRepository {
	return &QuotaRepository{q: tx}
}

// Count returns the counter value, 0 if absent
func (r *QuotaRepository) Count(ctx context.Context, key models.QuotaKey) (int64, error) {
	var count int64
	err := r.q.QueryRow(ctx, `
		SELECT count FROM quota_counters
		WHERE account_id = $1 AND business_id = $2 AND quota_type = $3 AND period_key = $4
	`, key.AccountID, key.BusinessID, string(key.Type), key.PeriodKey).Scan(&count)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get %s count: %w", key.Type, err)
	}
	return count, nil
}

// Increment adds one unconditionally
func (r *QuotaRepository) Increment(ctx context.Context, key models.QuotaKey) (int64, error) {
	var count int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO quota_counters (account_id, business_id, quota_type, period_key, count)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (account_id, business_id, quota_type, period_key) DO UPDATE
		SET count = quota_counters.count + 1, updated_at = NOW()
		RETURNING count
	`, key.AccountID, key.BusinessID, string(key.Type), key.PeriodKey).Scan(&count)
	if err != nil {
		return 0, wrapError(fmt.Sprintf("failed to increment %s", key.Type), err)
	}
	return count, nil
}

// IncrementIfBelow adds one while the counter is below limit. The check and
// the increment are one statement, so concurrent callers can never push the
// counter past limit.
func (r *QuotaRepository) IncrementIfBelow(ctx context.Context, key models.QuotaKey, limit int64) (int64, bool, error) {
	if limit <= 0 {
		return 0, false, nil
	}

	var count int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO quota_counters (account_id, business_id, quota_type, period_key, count)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (account_id, business_id, quota_type, period_key) DO UPDATE
		SET count = quota_counters.count + 1, updated_at = NOW()
		WHERE quota_counters.count < $5
		RETURNING count
	`, key.AccountID, key.BusinessID, string(key.Type), key.PeriodKey, limit).Scan(&count)
	if err == pgx.ErrNoRows {
		return limit, false, nil
	}
	if err != nil {
		return 0, false, wrapError(fmt.Sprintf("failed to reserve %s", key.Type), err)
	}
	return count, true, nil
}

// Allowance returns the remaining purchased uses
func (r *QuotaRepository) Allowance(ctx context.Context, key models.AllowanceKey) (int64, error) {
	var remaining int64
	err := r.q.QueryRow(ctx, `
		SELECT remaining FROM quota_allowances
		WHERE account_id = $1 AND business_id = $2 AND quota_type = $3
	`, key.AccountID, key.BusinessID, string(key.Type)).Scan(&remaining)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get %s allowance: %w", key.Type, err)
	}
	return remaining, nil
}

// ConsumeAllowance takes one purchased use if any is left
func (r *QuotaRepository) ConsumeAllowance(ctx context.Context, key models.AllowanceKey) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE quota_allowances
		SET remaining = remaining - 1, updated_at = NOW()
		WHERE account_id = $1 AND business_id = $2 AND quota_type = $3 AND remaining > 0
	`, key.AccountID, key.BusinessID, string(key.Type))
	if err != nil {
		return false, wrapError(fmt.Sprintf("failed to consume %s allowance", key.Type), err)
	}
	return tag.RowsAffected() == 1, nil
}

// AddAllowance grants n uses
func (r *QuotaRepository) AddAllowance(ctx context.Context, key models.AllowanceKey, n int64) (int64, error) {
	var remaining int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO quota_allowances (account_id, business_id, quota_type, remaining)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id, business_id, quota_type) DO UPDATE
		SET remaining = quota_allowances.remaining + EXCLUDED.remaining, updated_at = NOW()
		RETURNING remaining
	`, key.AccountID, key.BusinessID, string(key.Type), n).Scan(&remaining)
	if err != nil {
		return 0, wrapError(fmt.Sprintf("failed to add %s allowance", key.Type), err)
	}
	return remaining, nil
}
