package repository

import (
	"context"
	"fmt"

	"coinledger/database"
	"coinledger/events"
	"coinledger/service"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db                  *database.DB
	tx                  pgx.Tx
	ctx                 context.Context
	transactionalBus    *events.TransactionalBus
	ledgerRepo          service.LedgerRepository
	quotaRepo           service.QuotaRepository
	playRepo            service.PlayRepository
	externalEventRepo   service.ExternalEventRepository
	terminalBindingRepo service.TerminalBindingRepository
	settingsRepo        service.SettingsRepository
	raceRepo            service.RaceRepository
	voteRepo            service.VoteRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new read-committed transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories with the transaction
	u.ledgerRepo = newLedgerRepositoryWithTx(tx)
	u.quotaRepo = newQuotaRepositoryWithTx(tx)
	u.playRepo = newPlayRepositoryWithTx(tx)
	u.externalEventRepo = newExternalEventRepositoryWithTx(tx)
	u.terminalBindingRepo = newTerminalBindingRepositoryWithTx(tx)
	u.settingsRepo = newSettingsRepositoryWithTx(tx)
	u.raceRepo = newRaceRepositoryWithTx(tx)
	u.voteRepo = newVoteRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return wrapError("failed to commit transaction", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	if u.transactionalBus != nil {
		if err := u.transactionalBus.Flush(u.ctx); err != nil {
			log.WithError(err).Warn("Failed to flush events after commit")
		}
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	// Discard pending events on rollback
	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

func (u *unitOfWork) LedgerRepository() service.LedgerRepository {
	if u.ledgerRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.ledgerRepo
}

func (u *unitOfWork) QuotaRepository() service.QuotaRepository {
	if u.quotaRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.quotaRepo
}

func (u *unitOfWork) PlayRepository() service.PlayRepository {
	if u.playRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.playRepo
}

func (u *unitOfWork) ExternalEventRepository() service.ExternalEventRepository {
	if u.externalEventRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.externalEventRepo
}

func (u *unitOfWork) TerminalBindingRepository() service.TerminalBindingRepository {
	if u.terminalBindingRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.terminalBindingRepo
}

func (u *unitOfWork) SettingsRepository() service.SettingsRepository {
	if u.settingsRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.settingsRepo
}

func (u *unitOfWork) RaceRepository() service.RaceRepository {
	if u.raceRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.raceRepo
}

func (u *unitOfWork) VoteRepository() service.VoteRepository {
	if u.voteRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.voteRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
