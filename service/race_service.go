package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"coinledger/config"
	"coinledger/events"
	"coinledger/game"
	"coinledger/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type raceService struct {
	uowFactory UnitOfWorkFactory
	defaults   models.GameSettings
	rng        game.RandomSource
}

// NewRaceService creates a new race service. Winners are drawn from rng.
func NewRaceService(uowFactory UnitOfWorkFactory, cfg *config.Config, rng game.RandomSource) RaceService {
	return &raceService{
		uowFactory: uowFactory,
		defaults:   PlatformDefaults(cfg),
		rng:        rng,
	}
}

func (s *raceService) CreateRace(ctx context.Context, req CreateRaceRequest) (*models.RaceEvent, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: race name is required", ErrInvalidRequest)
	}
	if req.PrizePool < 0 {
		return nil, fmt.Errorf("%w: prize pool cannot be negative", ErrInvalidAmount)
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

	field := make([]game.Entrant, len(req.Entrants))
	for i, e := range req.Entrants {
		field[i] = game.Entrant{
			No:               e.EntrantNo,
			Name:             e.Name,
			PerformanceScore: e.PerformanceScore,
			RecentForm:       e.RecentForm,
			PreferredWeather: e.PreferredWeather,
			PreferredTime:    e.PreferredTime,
		}
	}
	priced, err := game.PriceRace(game.Conditions{Weather: req.Weather, TimeOfDay: req.TimeOfDay}, field, settings.HouseEdge)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	houseAccountID := req.HouseAccountID
	if houseAccountID == nil {
		houseAccountID = settings.HouseAccountID
	}
	if req.PrizePool > 0 && houseAccountID == nil {
		return nil, fmt.Errorf("%w: a prize pool needs a house account", ErrInvalidRequest)
	}

	race := &models.RaceEvent{
		BusinessID:     req.BusinessID,
		Name:           req.Name,
		Weather:        req.Weather,
		TimeOfDay:      req.TimeOfDay,
		StartsAt:       req.StartsAt,
		State:          models.RaceStateOpen,
		PrizePool:      req.PrizePool,
		HouseAccountID: houseAccountID,
		Entrants:       make([]*models.RaceEntrant, len(priced)),
	}
	for i, p := range priced {
		race.Entrants[i] = &models.RaceEntrant{
			EntrantNo:        p.No,
			Name:             p.Name,
			PerformanceScore: p.PerformanceScore,
			RecentForm:       p.RecentForm,
			PreferredWeather: p.PreferredWeather,
			PreferredTime:    p.PreferredTime,
			WinProbability:   p.WinProbability,
			Odds:             p.Odds,
		}
	}

	raceRepo := uow.RaceRepository()
	if err := raceRepo.Create(ctx, race); err != nil {
		return nil, storageError("failed to create race", err)
	}

	if race.PrizePool > 0 {
		entry := models.Spend(*houseAccountID, models.CategoryRaceBet, race.PrizePool, race.PoolReference()).
			WithMetadata(map[string]any{"race_id": race.ID, "business_id": race.BusinessID})
		txs, err := appendEntries(ctx, uow, []models.Entry{entry})
		if err != nil {
			return nil, storageError("failed to fund prize pool", err)
		}
		poolTxID := txs[0].ID
		if err := raceRepo.SetPoolTransaction(ctx, race.ID, poolTxID); err != nil {
			return nil, storageError("failed to record prize pool", err)
		}
		race.PoolTransactionID = &poolTxID
	}

	if err := uow.Commit(); err != nil {
		return nil, storageError("failed to commit transaction", err)
	}

	log.WithFields(log.Fields{
		"raceID":     race.ID,
		"businessID": race.BusinessID,
		"entrants":   len(race.Entrants),
		"prizePool":  race.PrizePool,
	}).Info("Race created")

	return race, nil
}

func (s *raceService) GetRace(ctx context.Context, raceID int64) (*models.RaceEvent, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("failed to begin transaction", err)
	}
	defer uow.Rollback()

	race, err := uow.RaceRepository().GetByID(ctx, raceID)
	if err != nil {
		return nil, storageError("failed to get race", err)
	}
	if race == nil {
		return nil, fmt.Errorf("%w: race %d", ErrNotFound, raceID)
	}
	return race, nil
}

func (s *raceService) SettleRace(ctx context.Context, raceID int64) (*models.SettleResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("failed to begin transaction", err)
	}
	defer uow.Rollback()

	race, err := s.lockOpenRace(ctx, uow, raceID)
	if err != nil {
		return nil, err
	}

	field := make([]game.PricedEntrant, len(race.Entrants))
	for i, e := range race.Entrants {
		field[i] = game.PricedEntrant{
			Entrant:        game.Entrant{No: e.EntrantNo, Name: e.Name},
			WinProbability: e.WinProbability,
			Odds:           e.Odds,
		}
	}
	winner, err := game.RunRace(field, s.rng.Float64())
	if err != nil {
		return nil, gameError(err)
	}

	raceRepo := uow.RaceRepository()
	winningNo := winner.No
	closed, err := raceRepo.Close(ctx, race.ID, models.RaceStateSettled, &winningNo)
	if err != nil {
		return nil, storageError("failed to close race", err)
	}
	if !closed {
		return nil, fmt.Errorf("%w: race %d", ErrRaceNotOpen, race.ID)
	}

	playRepo := uow.PlayRepository()
	bets, err := playRepo.LockOpenByRace(ctx, race.ID)
	if err != nil {
		return nil, storageError("failed to lock bets", err)
	}

	var winningStake int64
	for _, bet := range bets {
		if isWinningBet(bet, winningNo) {
			winningStake += bet.Stake
		}
	}

	result := &models.SettleResult{RaceID: race.ID, WinningEntrantNo: winningNo}
	var entries []models.Entry
	entryIndex := make(map[int64]int, len(bets))
	var poolPaid int64

	for _, bet := range bets {
		if !isWinningBet(bet, winningNo) {
			result.Losers++
			continue
		}
		result.Winners++

		payout := game.PayoutFor(bet.Stake, *bet.Odds)
		share := poolShare(race.PrizePool, bet.Stake, winningStake)
		poolPaid += share
		bet.Payout = payout + share
		if bet.Outcome.Race != nil {
			bet.Outcome.Race.PrizePoolShare = share
		}

		if bet.Payout > 0 {
			entryIndex[bet.ID] = len(entries)
			entries = append(entries, models.Earn(bet.AccountID, models.CategoryRacePayout, bet.Payout, bet.Reference()).
				WithMetadata(map[string]any{"race_id": race.ID, "entrant_no": winningNo}))
		}
		result.TotalPaid += bet.Payout
	}

	if remainder := race.PrizePool - poolPaid; remainder > 0 && race.PoolTransactionID != nil {
		entries = append(entries, models.Earn(*race.HouseAccountID, models.CategoryRefund, remainder, race.PoolReference()).
			WithMetadata(map[string]any{"race_id": race.ID, "reason": "unclaimed_pool"}))
		result.PoolReturned = remainder
	}

	txs, err := appendEntries(ctx, uow, entries)
	if err != nil {
		return nil, storageError("failed to pay race", err)
	}

	now := time.Now()
	bus := uow.EventBus()
	for _, bet := range bets {
		bet.SettledAt = &now
		if bet.Outcome.Race != nil {
			bet.Outcome.Race.WinningEntrant = winningNo
		}
		if isWinningBet(bet, winningNo) {
			bet.Status = models.PlayStatusSettledWin
			bet.Multiplier = *bet.Odds
			if i, ok := entryIndex[bet.ID]; ok {
				creditID := txs[i].ID
				bet.CreditTransactionID = &creditID
			}
		} else {
			bet.Status = models.PlayStatusSettledLoss
			bet.Multiplier = decimal.Zero
			bet.Payout = 0
		}

		settled, err := playRepo.Settle(ctx, bet)
		if err != nil {
			return nil, storageError("failed to settle bet", err)
		}
		if !settled {
			return nil, fmt.Errorf("%w: bet %d was no longer placed", ErrInvariantViolation, bet.ID)
		}

		bus.Publish(events.PlaySettledEvent{
			PlayID:     bet.ID,
			AccountID:  bet.AccountID,
			BusinessID: bet.BusinessID,
			GameType:   bet.GameType,
			Stake:      bet.Stake,
			Payout:     bet.Payout,
			Status:     bet.Status,
		})
	}

	bus.Publish(events.RaceClosedEvent{
		RaceID:     race.ID,
		BusinessID: race.BusinessID,
		State:      models.RaceStateSettled,
		Bets:       len(bets),
		TotalPaid:  result.TotalPaid,
	})

	if err := uow.Commit(); err != nil {
		return nil, storageError("failed to commit transaction", err)
	}

	log.WithFields(log.Fields{
		"raceID":       race.ID,
		"winner":       winningNo,
		"winners":      result.Winners,
		"losers":       result.Losers,
		"totalPaid":    result.TotalPaid,
		"poolReturned": result.PoolReturned,
	}).Info("Race settled")

	return result, nil
}

func (s *raceService) CancelRace(ctx context.Context, raceID int64) (*models.CancelResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("failed to begin transaction", err)
	}
	defer uow.Rollback()

	race, err := s.lockOpenRace(ctx, uow, raceID)
	if err != nil {
		return nil, err
	}

	closed, err := uow.RaceRepository().Close(ctx, race.ID, models.RaceStateCancelled, nil)
	if err != nil {
		return nil, storageError("failed to close race", err)
	}
	if !closed {
		return nil, fmt.Errorf("%w: race %d", ErrRaceNotOpen, race.ID)
	}

	playRepo := uow.PlayRepository()
	bets, err := playRepo.LockOpenByRace(ctx, race.ID)
	if err != nil {
		return nil, storageError("failed to lock bets", err)
	}

	result := &models.CancelResult{RaceID: race.ID}
	entries := make([]models.Entry, 0, len(bets)+1)
	for _, bet := range bets {
		entries = append(entries, models.Earn(bet.AccountID, models.CategoryRefund, bet.Stake, bet.Reference()).
			WithMetadata(map[string]any{"race_id": race.ID, "reason": "race_cancelled"}))
		result.TotalRefunded += bet.Stake
	}
	if race.PrizePool > 0 && race.PoolTransactionID != nil {
		entries = append(entries, models.Earn(*race.HouseAccountID, models.CategoryRefund, race.PrizePool, race.PoolReference()).
			WithMetadata(map[string]any{"race_id": race.ID, "reason": "race_cancelled"}))
		result.PoolReturned = race.PrizePool
	}

	txs, err := appendEntries(ctx, uow, entries)
	if err != nil {
		return nil, storageError("failed to refund bets", err)
	}

	for i, bet := range bets {
		refunded, err := playRepo.MarkRefunded(ctx, bet.ID, txs[i].ID)
		if err != nil {
			return nil, storageError("failed to mark bet refunded", err)
		}
		if !refunded {
			return nil, fmt.Errorf("%w: bet %d was no longer placed", ErrInvariantViolation, bet.ID)
		}
		result.RefundedCount++
	}

	uow.EventBus().Publish(events.RaceClosedEvent{
		RaceID:     race.ID,
		BusinessID: race.BusinessID,
		State:      models.RaceStateCancelled,
		Bets:       len(bets),
		TotalPaid:  result.TotalRefunded,
	})

	if err := uow.Commit(); err != nil {
		return nil, storageError("failed to commit transaction", err)
	}

	log.WithFields(log.Fields{
		"raceID":        race.ID,
		"refundedCount": result.RefundedCount,
		"totalRefunded": result.TotalRefunded,
		"poolReturned":  result.PoolReturned,
	}).Info("Race cancelled")

	return result, nil
}

func (s *raceService) lockOpenRace(ctx context.Context, uow UnitOfWork, raceID int64) (*models.RaceEvent, error) {
	race, err := uow.RaceRepository().GetForUpdate(ctx, raceID)
	if err != nil {
		return nil, storageError("failed to get race", err)
	}
	if race == nil {
		return nil, fmt.Errorf("%w: race %d", ErrNotFound, raceID)
	}
	if race.State != models.RaceStateOpen {
		return nil, fmt.Errorf("%w: race %d is %s", ErrRaceNotOpen, race.ID, race.State)
	}
	if race.PrizePool > 0 && race.PoolTransactionID != nil && race.HouseAccountID == nil {
		return nil, fmt.Errorf("%w: race %d has a funded pool but no house account", ErrInvariantViolation, race.ID)
	}
	return race, nil
}

func isWinningBet(bet *models.Play, winningNo int) bool {
	return bet.EntrantNo != nil && *bet.EntrantNo == winningNo && bet.Odds != nil
}

// poolShare is the winner's floor share of pool, pro rata to stake
func poolShare(pool, stake, winningStake int64) int64 {
	if pool <= 0 || winningStake <= 0 {
		return 0
	}
	return decimal.NewFromInt(pool).Mul(decimal.NewFromInt(stake)).Div(decimal.NewFromInt(winningStake)).Floor().IntPart()
}
