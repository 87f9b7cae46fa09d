package repository

import (
	"context"
	"fmt"

	"coinledger/database"

	"github.com/jackc/pgx/v5"
)

// TerminalBindingRepository implements the TerminalBindingRepository interface
type TerminalBindingRepository struct {
	q queryable
}

// NewTerminalBindingRepository creates a new terminal binding repository
func NewTerminalBindingRepository(db *database.DB) *TerminalBindingRepository {
	return &TerminalBindingRepository{q: db.Pool}
}

func newTerminalBindingRepositoryWithTx(tx queryable) *TerminalBindingRepository {
	return &TerminalBindingRepository{q: tx}
}

// GetAccountForMachine returns the bound account, nil if unbound
func (r *TerminalBindingRepository) GetAccountForMachine(ctx context.Context, machineID string) (*int64, error) {
	var accountID int64
	err := r.q.QueryRow(ctx, `SELECT account_id FROM terminal_bindings WHERE machine_id = $1`, machineID).Scan(&accountID)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up machine %s: %w", machineID, err)
	}
	return &accountID, nil
}

// Bind creates or replaces a binding
func (r *TerminalBindingRepository) Bind(ctx context.Context, machineID string, accountID int64) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO terminal_bindings (machine_id, account_id)
		VALUES ($1, $2)
		ON CONFLICT (machine_id) DO UPDATE SET account_id = EXCLUDED.account_id
	`, machineID, accountID)
	if err != nil {
		return wrapError(fmt.Sprintf("failed to bind machine %s", machineID), err)
	}
	return nil
}
