package testutil

import (
	"time"

	"coinledger/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateTestTransaction builds an unsaved transaction
func CreateTestTransaction(accountID int64, direction models.Direction, category models.Category, amount, balanceAfter int64) *models.Transaction {
	return &models.Transaction{
		AccountID:    accountID,
		Direction:    direction,
		Category:     category,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		Metadata:     map[string]any{"test": true},
	}
}

// CreateTestSettings builds settings for a business with sane table limits
func CreateTestSettings(businessID int64) *models.BusinessSettings {
	return &models.BusinessSettings{
		BusinessID:        businessID,
		MinBet:            1,
		MaxBet:            500,
		DailyPlayLimit:    10,
		HouseEdge:         decimal.RequireFromString("0.05"),
		JackpotMultiplier: decimal.RequireFromString("10"),
		SpinPackPrice:     50,
		SpinPackSize:      5,
	}
}

// CreateTestRace builds an open race with two priced entrants
func CreateTestRace(businessID int64) *models.RaceEvent {
	return &models.RaceEvent{
		BusinessID: businessID,
		Name:       "Test Derby",
		Weather:    "sunny",
		TimeOfDay:  "day",
		State:      models.RaceStateOpen,
		Entrants: []*models.RaceEntrant{
			{EntrantNo: 1, Name: "Comet", PerformanceScore: 80, RecentForm: 0.6, WinProbability: 0.6, Odds: decimal.RequireFromString("1.58")},
			{EntrantNo: 2, Name: "Dasher", PerformanceScore: 50, RecentForm: 0.4, WinProbability: 0.4, Odds: decimal.RequireFromString("2.37")},
		},
	}
}

// CreateTestRaceBet builds a placed bet on entrant of race
func CreateTestRaceBet(accountID, businessID, raceID int64, entrantNo int, stake int64, odds string, debitTxID int64) *models.Play {
	o := decimal.RequireFromString(odds)
	return &models.Play{
		RoundID:            uuid.New(),
		AccountID:          accountID,
		BusinessID:         businessID,
		GameType:           models.GameTypeRace,
		Stake:              stake,
		Outcome:            models.Outcome{Kind: models.OutcomeKindRace, Race: &models.RaceOutcome{RaceID: raceID, EntrantNo: entrantNo, Odds: odds}},
		Multiplier:         decimal.Zero,
		Status:             models.PlayStatusPlaced,
		RaceID:             &raceID,
		EntrantNo:          &entrantNo,
		Odds:               &o,
		DebitTransactionID: debitTxID,
	}
}

// CreateTestExternalEvent builds a pending terminal event
func CreateTestExternalEvent(externalID string, payload []byte) *models.ExternalEvent {
	return &models.ExternalEvent{
		Source:           models.EventSourceTerminalWebhook,
		ExternalID:       externalID,
		RawPayload:       payload,
		ProcessingStatus: models.ProcessingStatusPending,
		ReceivedAt:       time.Now(),
	}
}
