package service

import (
	"context"
	"fmt"
	"time"

	"coinledger/models"

	log "github.com/sirupsen/logrus"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type ledgerService struct {
	uowFactory UnitOfWorkFactory
}

// NewLedgerService creates a new ledger service
func NewLedgerService(uowFactory UnitOfWorkFactory) LedgerService {
	return &ledgerService{
		uowFactory: uowFactory,
	}
}

func (s *ledgerService) GetBalance(ctx context.Context, accountID int64) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, storageError("failed to begin transaction", err)
	}
	defer uow.Rollback()

	balance, err := uow.LedgerRepository().GetBalance(ctx, accountID)
	if err != nil {
		return 0, storageError("failed to get balance", err)
	}
	return balance, nil
}

func (s *ledgerService) Append(ctx context.Context, entry models.Entry) (*models.Transaction, error) {
	txs, err := s.AppendBatch(ctx, []models.Entry{entry})
	if err != nil {
		return nil, err
	}
	return txs[0], nil
}

func (s *ledgerService) AppendBatch(ctx context.Context, entries []models.Entry) ([]*models.Transaction, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no entries", ErrInvalidRequest)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("failed to begin transaction", err)
	}
	defer uow.Rollback()

	txs, err := appendEntries(ctx, uow, entries)
	if err != nil {
		return nil, storageError("failed to append entries", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, storageError("failed to commit transaction", err)
	}
	return txs, nil
}

func (s *ledgerService) History(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("failed to begin transaction", err)
	}
	defer uow.Rollback()

	txs, err := uow.LedgerRepository().History(ctx, accountID, limit)
	if err != nil {
		return nil, storageError("failed to get history", err)
	}
	return txs, nil
}

func (s *ledgerService) VerifyBalance(ctx context.Context, accountID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return storageError("failed to begin transaction", err)
	}
	defer uow.Rollback()

	// Holding the row lock keeps appends out while the log is summed
	balances, err := uow.LedgerRepository().LockBalances(ctx, []int64{accountID})
	if err != nil {
		return storageError("failed to lock balance", err)
	}
	computed, err := uow.LedgerRepository().Reconcile(ctx, accountID)
	if err != nil {
		return storageError("failed to reconcile balance", err)
	}

	if cached := balances[accountID]; cached != computed {
		log.WithFields(log.Fields{
			"accountID": accountID,
			"cached":    cached,
			"computed":  computed,
		}).Error("Cached balance does not match transaction log")
		return fmt.Errorf("%w: account %d cached %d, computed %d", ErrInvariantViolation, accountID, cached, computed)
	}

	return nil
}

func (s *ledgerService) Archive(ctx context.Context, before time.Time) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, storageError("failed to begin transaction", err)
	}
	defer uow.Rollback()

	moved, err := uow.LedgerRepository().ArchiveBefore(ctx, before)
	if err != nil {
		return 0, storageError("failed to archive transactions", err)
	}

	if err := uow.Commit(); err != nil {
		return 0, storageError("failed to commit transaction", err)
	}

	log.WithFields(log.Fields{
		"before": before,
		"moved":  moved,
	}).Info("Archived ledger transactions")
	return moved, nil
}
