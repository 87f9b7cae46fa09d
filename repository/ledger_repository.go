package repository

import (
	"context"
	"fmt"
	"time"

	"coinledger/database"
	"coinledger/models"

	"github.com/jackc/pgx/v5"
)

// LedgerRepository implements the LedgerRepository interface
type LedgerRepository struct {
	q queryable
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{q: db.Pool}
}

// newLedgerRepositoryWithTx creates a new ledger repository with a transaction
func newLedgerRepositoryWithTx(tx queryable) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

// LockBalances creates any missing balance rows, then locks all of them in
// ascending account order so concurrent writers cannot deadlock
func (r *LedgerRepository) LockBalances(ctx context.Context, accountIDs []int64) (map[int64]int64, error) {
	balances := make(map[int64]int64, len(accountIDs))
	if len(accountIDs) == 0 {
		return balances, nil
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO account_balances (account_id)
		SELECT id FROM unnest($1::bigint[]) AS t(id) ORDER BY id
		ON CONFLICT (account_id) DO NOTHING
	`, accountIDs)
	if err != nil {
		return nil, wrapError("failed to create balance rows", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT account_id, balance
		FROM account_balances
		WHERE account_id = ANY($1)
		ORDER BY account_id
		FOR UPDATE
	`, accountIDs)
	if err != nil {
		return nil, wrapError("failed to lock balances", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, balance int64
		if err := rows.Scan(&id, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances[id] = balance
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balances: %w", err)
	}

	return balances, nil
}

// GetBalance returns the cached balance, 0 for an unknown account
func (r *LedgerRepository) GetBalance(ctx context.Context, accountID int64) (int64, error) {
	var balance int64
	err := r.q.QueryRow(ctx, `SELECT balance FROM account_balances WHERE account_id = $1`, accountID).Scan(&balance)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance for account %d: %w", accountID, err)
	}
	return balance, nil
}

// SetBalance rewrites the cached balance. The row must already exist.
func (r *LedgerRepository) SetBalance(ctx context.Context, accountID int64, balance int64) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE account_balances
		SET balance = $2, updated_at = NOW()
		WHERE account_id = $1
	`, accountID, balance)
	if err != nil {
		return wrapError(fmt.Sprintf("failed to set balance for account %d", accountID), err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("balance row for account %d not found", accountID)
	}
	return nil
}

// Insert appends a transaction
func (r *LedgerRepository) Insert(ctx context.Context, tx *models.Transaction) error {
	metadata := tx.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	err := r.q.QueryRow(ctx, `
		INSERT INTO ledger_transactions (account_id, direction, category, amount, balance_after, reference, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`,
		tx.AccountID,
		string(tx.Direction),
		string(tx.Category),
		tx.Amount,
		tx.BalanceAfter,
		tx.Reference,
		metadata,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return wrapError("failed to insert transaction", err)
	}
	return nil
}

// History returns the most recent live transactions, newest first
func (r *LedgerRepository) History(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, account_id, direction, category, amount, balance_after, reference, metadata, created_at
		FROM ledger_transactions
		WHERE account_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history for account %d: %w", accountID, err)
	}
	defer rows.Close()

	var txs []*models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var direction, category string
		err := rows.Scan(
			&tx.ID,
			&tx.AccountID,
			&direction,
			&category,
			&tx.Amount,
			&tx.BalanceAfter,
			&tx.Reference,
			&tx.Metadata,
			&tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Direction = models.Direction(direction)
		tx.Category = models.Category(category)
		txs = append(txs, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txs, nil
}

// ExistsByReference looks in both the live and archived transactions
func (r *LedgerRepository) ExistsByReference(ctx context.Context, accountID int64, reference string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM ledger_transactions WHERE account_id = $1 AND reference = $2
			UNION ALL
			SELECT 1 FROM ledger_transactions_archive WHERE account_id = $1 AND reference = $2
		)
	`, accountID, reference).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check reference %q: %w", reference, err)
	}
	return exists, nil
}

// Reconcile returns the checkpoint balance plus the net of live transactions
func (r *LedgerRepository) Reconcile(ctx context.Context, accountID int64) (int64, error) {
	var balance int64
	err := r.q.QueryRow(ctx, `
		SELECT (
			COALESCE((SELECT balance FROM ledger_checkpoints WHERE account_id = $1), 0) +
			COALESCE((
				SELECT SUM(CASE WHEN direction = 'earning' THEN amount ELSE -amount END)
				FROM ledger_transactions
				WHERE account_id = $1
			), 0)
		)::bigint
	`, accountID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile account %d: %w", accountID, err)
	}
	return balance, nil
}

// ArchiveBefore moves old transactions to the archive table and folds their
// net amount into each account's checkpoint, in one statement
func (r *LedgerRepository) ArchiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var moved int64
	err := r.q.QueryRow(ctx, `
		WITH moved AS (
			DELETE FROM ledger_transactions
			WHERE created_at < $1
			RETURNING id, account_id, direction, category, amount, balance_after, reference, metadata, created_at
		), archived AS (
			INSERT INTO ledger_transactions_archive
				(id, account_id, direction, category, amount, balance_after, reference, metadata, created_at)
			SELECT id, account_id, direction, category, amount, balance_after, reference, metadata, created_at
			FROM moved
			RETURNING id
		), folded AS (
			INSERT INTO ledger_checkpoints (account_id, balance, through_transaction_id)
			SELECT account_id,
				SUM(CASE WHEN direction = 'earning' THEN amount ELSE -amount END)::bigint,
				MAX(id)
			FROM moved
			GROUP BY account_id
			ON CONFLICT (account_id) DO UPDATE
			SET balance = ledger_checkpoints.balance + EXCLUDED.balance,
				through_transaction_id = GREATEST(ledger_checkpoints.through_transaction_id, EXCLUDED.through_transaction_id),
				updated_at = NOW()
		)
		SELECT COUNT(*) FROM archived
	`, cutoff).Scan(&moved)
	if err != nil {
		return 0, wrapError("failed to archive transactions", err)
	}
	return moved, nil
}
