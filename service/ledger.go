package service

import (
	"context"
	"fmt"
	"math"
	"slices"

	"coinledger/events"
	"coinledger/models"

	log "github.com/sirupsen/logrus"
)

// appendEntries is the single entry point for all balance changes. It runs
// inside the caller's unit of work: every affected balance row is locked in
// ascending account order, each entry is checked against the running
// balance, then the transactions are written and the cache rewritten.
// Nothing is written unless every entry is valid.
func appendEntries(ctx context.Context, uow UnitOfWork, entries []models.Entry) ([]*models.Transaction, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	accountIDs := make([]int64, 0, len(entries))
	for _, e := range entries {
		if err := validateEntry(e); err != nil {
			return nil, err
		}
		accountIDs = append(accountIDs, e.AccountID)
	}
	slices.Sort(accountIDs)
	accountIDs = slices.Compact(accountIDs)

	ledgerRepo := uow.LedgerRepository()
	balances, err := ledgerRepo.LockBalances(ctx, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to lock balances: %w", err)
	}

	running := make(map[int64]int64, len(accountIDs))
	for _, id := range accountIDs {
		running[id] = balances[id]
	}

	pending := make([]*models.Transaction, len(entries))
	for i, e := range entries {
		if e.Delta() > 0 && running[e.AccountID] > math.MaxInt64-e.Delta() {
			return nil, fmt.Errorf("%w: crediting %d would overflow account %d", ErrInvalidAmount, e.Amount, e.AccountID)
		}
		after := running[e.AccountID] + e.Delta()
		if after < 0 {
			return nil, fmt.Errorf("%w: account %d has %d, needs %d", ErrInsufficientFunds, e.AccountID, running[e.AccountID], e.Amount)
		}
		running[e.AccountID] = after
		pending[i] = &models.Transaction{
			AccountID:    e.AccountID,
			Direction:    e.Direction,
			Category:     e.Category,
			Amount:       e.Amount,
			BalanceAfter: after,
			Reference:    e.Reference,
			Metadata:     e.Metadata,
		}
	}

	bus := uow.EventBus()
	for _, tx := range pending {
		if err := ledgerRepo.Insert(ctx, tx); err != nil {
			return nil, fmt.Errorf("failed to insert transaction: %w", err)
		}
		bus.Publish(events.BalanceChangeEvent{
			AccountID:     tx.AccountID,
			TransactionID: tx.ID,
			OldBalance:    tx.BalanceAfter - tx.SignedAmount(),
			NewBalance:    tx.BalanceAfter,
			Category:      tx.Category,
			Delta:         tx.SignedAmount(),
		})
	}

	for _, id := range accountIDs {
		if running[id] == balances[id] {
			continue
		}
		if err := ledgerRepo.SetBalance(ctx, id, running[id]); err != nil {
			return nil, fmt.Errorf("failed to update balance for account %d: %w", id, err)
		}
	}

	log.WithFields(log.Fields{
		"entries":  len(entries),
		"accounts": len(accountIDs),
	}).Debug("Appended ledger entries")

	return pending, nil
}

func validateEntry(e models.Entry) error {
	if e.Amount <= 0 || e.Amount > models.MaxAmount {
		return fmt.Errorf("%w: got %d", ErrInvalidAmount, e.Amount)
	}
	if e.AccountID <= 0 {
		return fmt.Errorf("%w: account id %d", ErrInvalidRequest, e.AccountID)
	}
	if e.Direction != models.DirectionEarning && e.Direction != models.DirectionSpending {
		return fmt.Errorf("%w: unknown direction %q", ErrInvariantViolation, e.Direction)
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvariantViolation, e.Category)
	}
	return nil
}

// lastBalanceFor returns the balance after the last transaction of accountID
// in txs, or fallback if the account does not appear.
func lastBalanceFor(txs []*models.Transaction, accountID int64, fallback int64) int64 {
	for i := len(txs) - 1; i >= 0; i-- {
		if txs[i].AccountID == accountID {
			return txs[i].BalanceAfter
		}
	}
	return fallback
}

// multiplyAmount returns a*b when both are positive and the product stays
// within models.MaxAmount
func multiplyAmount(a, b int64) (int64, error) {
	if a <= 0 || b <= 0 || a > models.MaxAmount/b {
		return 0, fmt.Errorf("%w: %d x %d is out of range", ErrInvalidAmount, a, b)
	}
	return a * b, nil
}
