package service

import (
	"context"
	"fmt"
	"strings"

	"coinledger/config"
	"coinledger/models"

	log "github.com/sirupsen/logrus"
)

// MaxVotePacks caps the packs bought in one purchase
const MaxVotePacks int64 = 100

type purchaseService struct {
	uowFactory    UnitOfWorkFactory
	defaults      models.GameSettings
	votePackPrice int64
	votePackSize  int64
}

// NewPurchaseService creates a new purchase service
func NewPurchaseService(uowFactory UnitOfWorkFactory, cfg *config.Config) PurchaseService {
	return &purchaseService{
		uowFactory:    uowFactory,
		defaults:      PlatformDefaults(cfg),
		votePackPrice: cfg.VotePackPrice,
		votePackSize:  cfg.VotePackSize,
	}
}

// BuySpinPack debits the business's pack price and grants extra plays there
func (s *purchaseService) BuySpinPack(ctx context.Context, accountID, businessID int64) (*models.PurchaseResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("failed to begin transaction", err)
	}
	defer uow.Rollback()

	settings, err := resolveGameSettings(ctx, uow, s.defaults, businessID)
	if err != nil {
		return nil, storageError("failed to resolve settings", err)
	}
	if settings.SpinPackPrice <= 0 || settings.SpinPackSize <= 0 {
		return nil, fmt.Errorf("%w: business %d does not sell spin packs", ErrInvalidRequest, businessID)
	}

	entry := models.Spend(accountID, models.CategorySpinPackPurchase, settings.SpinPackPrice, "").
		WithMetadata(map[string]any{"business_id": businessID, "plays": settings.SpinPackSize})
	txs, err := appendEntries(ctx, uow, []models.Entry{entry})
	if err != nil {
		return nil, storageError("failed to debit spin pack", err)
	}

	key := models.AllowanceKey{AccountID: accountID, BusinessID: businessID, Type: models.QuotaTypeCasinoPlay}
	if _, err := grantAllowance(ctx, uow, key, settings.SpinPackSize); err != nil {
		return nil, storageError("failed to grant plays", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, storageError("failed to commit transaction", err)
	}

	log.WithFields(log.Fields{
		"accountID":  accountID,
		"businessID": businessID,
		"price":      settings.SpinPackPrice,
		"plays":      settings.SpinPackSize,
	}).Info("Spin pack purchased")

	return &models.PurchaseResult{
		Transaction:    txs[0],
		NewBalance:     txs[0].BalanceAfter,
		AllowanceAdded: settings.SpinPackSize,
	}, nil
}

// BuyVotePack debits packs × price and grants platform-wide votes
func (s *purchaseService) BuyVotePack(ctx context.Context, accountID int64, packs int64) (*models.PurchaseResult, error) {
	if packs <= 0 || packs > MaxVotePacks {
		return nil, fmt.Errorf("%w: pack count must be between 1 and %d", ErrInvalidAmount, MaxVotePacks)
	}
	price, err := multiplyAmount(s.votePackPrice, packs)
	if err != nil {
		return nil, err
	}
	votes, err := multiplyAmount(s.votePackSize, packs)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("failed to begin transaction", err)
	}
	defer uow.Rollback()

	entry := models.Spend(accountID, models.CategoryVotePackPurchase, price, "").
		WithMetadata(map[string]any{"packs": packs, "votes": votes})
	txs, err := appendEntries(ctx, uow, []models.Entry{entry})
	if err != nil {
		return nil, storageError("failed to debit vote pack", err)
	}

	key := models.AllowanceKey{AccountID: accountID, BusinessID: models.PlatformBusinessID, Type: models.QuotaTypeFreeVote}
	if _, err := grantAllowance(ctx, uow, key, votes); err != nil {
		return nil, storageError("failed to grant votes", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, storageError("failed to commit transaction", err)
	}

	log.WithFields(log.Fields{
		"accountID": accountID,
		"packs":     packs,
		"votes":     votes,
	}).Info("Vote pack purchased")

	return &models.PurchaseResult{
		Transaction:    txs[0],
		NewBalance:     txs[0].BalanceAfter,
		AllowanceAdded: votes,
	}, nil
}

func (s *purchaseService) BuyDiscount(ctx context.Context, accountID, businessID int64, code string, price int64) (*models.PurchaseResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: discount code is required", ErrInvalidRequest)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("failed to begin transaction", err)
	}
	defer uow.Rollback()

	entry := models.Spend(accountID, models.CategoryDiscountPurchase, price, "discount:"+code).
		WithMetadata(map[string]any{"business_id": businessID, "code": code})
	txs, err := appendEntries(ctx, uow, []models.Entry{entry})
	if err != nil {
		return nil, storageError("failed to debit discount", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, storageError("failed to commit transaction", err)
	}

	log.WithFields(log.Fields{
		"accountID":  accountID,
		"businessID": businessID,
		"code":       code,
		"price":      price,
	}).Info("Discount purchased")

	return &models.PurchaseResult{Transaction: txs[0], NewBalance: txs[0].BalanceAfter}, nil
}

// GrantLevelUpBonus credits the bonus for level once. A repeat grant returns
// nil with no error.
func (s *purchaseService) GrantLevelUpBonus(ctx context.Context, accountID int64, level int, amount int64) (*models.Transaction, error) {
	if level <= 0 {
		return nil, fmt.Errorf("%w: level must be positive", ErrInvalidRequest)
	}
	entry := models.Earn(accountID, models.CategoryLevelUpBonus, amount, models.LevelReference(level)).
		WithMetadata(map[string]any{"level": level})
	if err := validateEntry(entry); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("failed to begin transaction", err)
	}
	defer uow.Rollback()

	ledgerRepo := uow.LedgerRepository()

	// The balance lock serialises concurrent grants for the same account
	if _, err := ledgerRepo.LockBalances(ctx, []int64{accountID}); err != nil {
		return nil, storageError("failed to lock balance", err)
	}
	granted, err := ledgerRepo.ExistsByReference(ctx, accountID, entry.Reference)
	if err != nil {
		return nil, storageError("failed to check previous bonus", err)
	}
	if granted {
		log.WithFields(log.Fields{
			"accountID": accountID,
			"level":     level,
		}).Debug("Level-up bonus already granted")
		return nil, nil
	}

	txs, err := appendEntries(ctx, uow, []models.Entry{entry})
	if err != nil {
		return nil, storageError("failed to credit bonus", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, storageError("failed to commit transaction", err)
	}

	log.WithFields(log.Fields{
		"accountID": accountID,
		"level":     level,
		"amount":    amount,
	}).Info("Level-up bonus granted")

	return txs[0], nil
}
