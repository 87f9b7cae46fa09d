package service

import (
	"context"
	"fmt"

	"coinledger/config"
	"coinledger/game"
	"coinledger/models"

	"github.com/shopspring/decimal"
)

// PlatformDefaults builds the settings used by businesses without a row
func PlatformDefaults(cfg *config.Config) models.GameSettings {
	return models.GameSettings{
		MinBet:            cfg.DefaultMinBet,
		MaxBet:            cfg.DefaultMaxBet,
		DailyPlayLimit:    cfg.DefaultDailyPlays,
		HouseEdge:         cfg.DefaultHouseEdge,
		JackpotMultiplier: decimal.NewFromFloat(cfg.JackpotMultiplier),
		SpinPackPrice:     cfg.SpinPackPrice,
		SpinPackSize:      cfg.SpinPackSize,
		WheelTiers:        game.DefaultTiers,
	}
}

// resolveGameSettings reads the business row once and falls back to the
// platform defaults for a business that has none.
func resolveGameSettings(ctx context.Context, uow UnitOfWork, defaults models.GameSettings, businessID int64) (models.GameSettings, error) {
	settings := defaults
	settings.BusinessID = businessID

	row, err := uow.SettingsRepository().GetByBusinessID(ctx, businessID)
	if err != nil {
		return settings, fmt.Errorf("failed to get business settings: %w", err)
	}
	if row == nil {
		return settings, nil
	}

	settings.MinBet = row.MinBet
	settings.MaxBet = row.MaxBet
	settings.DailyPlayLimit = row.DailyPlayLimit
	settings.HouseEdge = row.HouseEdge.InexactFloat64()
	settings.JackpotMultiplier = row.JackpotMultiplier
	settings.SpinPackPrice = row.SpinPackPrice
	settings.SpinPackSize = row.SpinPackSize
	settings.HouseAccountID = row.HouseAccountID
	return settings, nil
}
