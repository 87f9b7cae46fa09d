package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coinledger/config"
	"coinledger/events"
	"coinledger/game"
	"coinledger/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type wageringService struct {
	uowFactory UnitOfWorkFactory
	defaults   models.GameSettings
	periods    Periods
	rng        game.RandomSource
}

// NewWageringService creates a new wagering service. Every outcome is drawn
// from rng on the server.
func NewWageringService(uowFactory UnitOfWorkFactory, cfg *config.Config, periods Periods, rng game.RandomSource) WageringService {
	return &wageringService{
		uowFactory: uowFactory,
		defaults:   PlatformDefaults(cfg),
		periods:    periods,
		rng:        rng,
	}
}

func (s *wageringService) PlaceWager(ctx context.Context, req WagerRequest) (*models.WagerResult, error) {
	if !req.GameType.Valid() {
		return nil, fmt.Errorf("%w: unknown game type %q", ErrInvalidGame, req.GameType)
	}
	if req.AccountID <= 0 {
		return nil, fmt.Errorf("%w: account id is required", ErrInvalidRequest)
	}
	if req.Stake <= 0 {
		return nil, fmt.Errorf("%w: stake must be positive", ErrInvalidStake)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("failed to begin transaction", err)
	}
	defer uow.Rollback()

	settings, err := resolveGameSettings(ctx, uow, s.defaults, req.BusinessID)
	if err != nil {
		return nil, storageError("failed to resolve settings", err)
	}
	if !settings.StakeAllowed(req.Stake) {
		return nil, fmt.Errorf("%w: stake %d must be between %d and %d", ErrInvalidStake, req.Stake, settings.MinBet, settings.MaxBet)
	}

	playKey := s.periods.DailyKey(models.QuotaTypeCasinoPlay, req.AccountID, req.BusinessID)

	var race *models.RaceEvent
	if req.GameType == models.GameTypeRace {
		race, err = s.openRace(ctx, uow, req)
		if err != nil {
			return nil, err
		}
	} else {
		if _, err := reserveQuota(ctx, uow, playKey, settings.DailyPlayLimit); err != nil {
			return nil, storageError("failed to reserve play", err)
		}
	}

	balance, err := uow.LedgerRepository().GetBalance(ctx, req.AccountID)
	if err != nil {
		return nil, storageError("failed to get balance", err)
	}
	if balance < req.Stake {
		return nil, fmt.Errorf("%w: balance %d, stake %d", ErrInsufficientFunds, balance, req.Stake)
	}

	play := &models.Play{
		RoundID:    uuid.New(),
		AccountID:  req.AccountID,
		BusinessID: req.BusinessID,
		GameType:   req.GameType,
		Stake:      req.Stake,
	}
	if err := s.resolveOutcome(play, settings, race, req.Context); err != nil {
		return nil, err
	}

	debitCategory := models.CategoryCasinoBet
	if play.GameType == models.GameTypeRace {
		debitCategory = models.CategoryRaceBet
	}
	metadata := map[string]any{"game_type": string(play.GameType), "business_id": play.BusinessID}
	entries := []models.Entry{
		models.Spend(play.AccountID, debitCategory, play.Stake, play.Reference()).WithMetadata(metadata),
	}
	if play.Payout > 0 {
		entries = append(entries, models.Earn(play.AccountID, models.CategoryCasinoWin, play.Payout, play.Reference()).WithMetadata(metadata))
	}

	txs, err := appendEntries(ctx, uow, entries)
	if err != nil {
		return nil, storageError("failed to record wager", err)
	}
	play.DebitTransactionID = txs[0].ID
	if len(txs) > 1 {
		creditID := txs[1].ID
		play.CreditTransactionID = &creditID
	}

	if err := uow.PlayRepository().Create(ctx, play); err != nil {
		return nil, storageError("failed to create play", err)
	}

	if play.Status != models.PlayStatusPlaced {
		uow.EventBus().Publish(events.PlaySettledEvent{
			PlayID:     play.ID,
			AccountID:  play.AccountID,
			BusinessID: play.BusinessID,
			GameType:   play.GameType,
			Stake:      play.Stake,
			Payout:     play.Payout,
			Status:     play.Status,
			IsJackpot:  play.IsJackpot,
		})
	}

	playsRemaining, err := remainingQuota(ctx, uow, playKey, settings.DailyPlayLimit)
	if err != nil {
		return nil, storageError("failed to get remaining plays", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, storageError("failed to commit transaction", err)
	}

	log.WithFields(log.Fields{
		"accountID":  play.AccountID,
		"businessID": play.BusinessID,
		"gameType":   play.GameType,
		"playID":     play.ID,
		"stake":      play.Stake,
		"payout":     play.Payout,
		"jackpot":    play.IsJackpot,
	}).Info("Wager placed")

	return &models.WagerResult{
		PlayID:         play.ID,
		Stake:          play.Stake,
		Payout:         play.Payout,
		Multiplier:     play.Multiplier,
		IsJackpot:      play.IsJackpot,
		Outcome:        play.Outcome,
		Status:         play.Status,
		NewBalance:     lastBalanceFor(txs, play.AccountID, balance),
		PlaysRemaining: playsRemaining,
	}, nil
}

// openRace loads the race a bet targets, holding a share lock so it cannot
// be settled or cancelled until the bet commits.
func (s *wageringService) openRace(ctx context.Context, uow UnitOfWork, req WagerRequest) (*models.RaceEvent, error) {
	if req.Context.RaceID <= 0 || req.Context.EntrantNo <= 0 {
		return nil, fmt.Errorf("%w: race bets need a race and an entrant", ErrInvalidRequest)
	}

	race, err := uow.RaceRepository().GetForShare(ctx, req.Context.RaceID)
	if err != nil {
		return nil, storageError("failed to get race", err)
	}
	if race == nil || race.BusinessID != req.BusinessID {
		return nil, fmt.Errorf("%w: race %d", ErrNotFound, req.Context.RaceID)
	}
	if race.State != models.RaceStateOpen {
		return nil, fmt.Errorf("%w: race %d is %s", ErrRaceNotOpen, race.ID, race.State)
	}
	return race, nil
}

// resolveOutcome fills in the play's outcome, payout and status
func (s *wageringService) resolveOutcome(play *models.Play, settings models.GameSettings, race *models.RaceEvent, choice WagerContext) error {
	now := time.Now()

	switch play.GameType {
	case models.GameTypeSlot:
		spin, err := game.SpinWheel(settings.WheelTiers, s.rng.Float64())
		if err != nil {
			return gameError(err)
		}
		play.Outcome = models.SlotOutcome(spin)
		play.Payout = spin.Payout(play.Stake)
		play.Multiplier = spin.EffectiveMultiplier(play.Stake)

	case models.GameTypeBlackjack:
		hand, err := game.PlayBlackjack(s.rng.Float64())
		if err != nil {
			return gameError(err)
		}
		play.Outcome = models.BlackjackOutcome(hand)
		play.Payout = hand.Payout(play.Stake)
		play.Multiplier = hand.Multiplier

	case models.GameTypeRace:
		entrant := race.Entrant(choice.EntrantNo)
		if entrant == nil {
			return fmt.Errorf("%w: entrant %d in race %d", ErrNotFound, choice.EntrantNo, race.ID)
		}
		raceID, entrantNo, odds := race.ID, entrant.EntrantNo, entrant.Odds
		play.RaceID = &raceID
		play.EntrantNo = &entrantNo
		play.Odds = &odds
		play.Multiplier = decimal.Zero
		play.Status = models.PlayStatusPlaced
		play.Outcome = models.Outcome{
			Kind: models.OutcomeKindRace,
			Race: &models.RaceOutcome{
				RaceID:      race.ID,
				EntrantNo:   entrant.EntrantNo,
				EntrantName: entrant.Name,
				Odds:        odds.StringFixed(2),
			},
		}
		return nil
	}

	play.IsJackpot = settings.IsJackpot(play.Multiplier)
	play.Status = models.PlayStatusSettledLoss
	if play.Payout > 0 {
		play.Status = models.PlayStatusSettledWin
	}
	play.SettledAt = &now
	return nil
}

func gameError(err error) error {
	if errors.Is(err, game.ErrInvalidDraw) || errors.Is(err, game.ErrInvalidTable) {
		return fmt.Errorf("%w: %w", ErrInvalidGame, err)
	}
	return err
}
