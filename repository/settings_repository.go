package repository

import (
	"context"
	"fmt"

	"coinledger/database"
	"coinledger/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// SettingsRepository implements the SettingsRepository interface
type SettingsRepository struct {
	q queryable
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *database.DB) *SettingsRepository {
	return &SettingsRepository{q: db.Pool}
}

// newSettingsRepositoryWithTx creates a new settings repository with a transaction
func newSettingsRepositoryWithTx(tx queryable) *SettingsRepository {
	return &SettingsRepository{q: tx}
}

// GetByBusinessID returns the settings row, nil if the business has none
func (r *SettingsRepository) GetByBusinessID(ctx context.Context, businessID int64) (*models.BusinessSettings, error) {
	var s models.BusinessSettings
	var houseEdge, jackpot string

	err := r.q.QueryRow(ctx, `
		SELECT business_id, min_bet, max_bet, daily_play_limit, house_edge::text,
			jackpot_multiplier::text, spin_pack_price, spin_pack_size, house_account_id,
			created_at, updated_at
		FROM business_settings
		WHERE business_id = $1
	`, businessID).Scan(
		&s.BusinessID,
		&s.MinBet,
		&s.MaxBet,
		&s.DailyPlayLimit,
		&houseEdge,
		&jackpot,
		&s.SpinPackPrice,
		&s.SpinPackSize,
		&s.HouseAccountID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings for business %d: %w", businessID, err)
	}

	if s.HouseEdge, err = decimal.NewFromString(houseEdge); err != nil {
		return nil, fmt.Errorf("invalid house edge %q: %w", houseEdge, err)
	}
	if s.JackpotMultiplier, err = decimal.NewFromString(jackpot); err != nil {
		return nil, fmt.Errorf("invalid jackpot multiplier %q: %w", jackpot, err)
	}
	return &s, nil
}

// Upsert creates or replaces a settings row
func (r *SettingsRepository) Upsert(ctx context.Context, s *models.BusinessSettings) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO business_settings (
			business_id, min_bet, max_bet, daily_play_limit, house_edge,
			jackpot_multiplier, spin_pack_price, spin_pack_size, house_account_id
		)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8, $9)
		ON CONFLICT (business_id) DO UPDATE SET
			min_bet = EXCLUDED.min_bet,
			max_bet = EXCLUDED.max_bet,
			daily_play_limit = EXCLUDED.daily_play_limit,
			house_edge = EXCLUDED.house_edge,
			jackpot_multiplier = EXCLUDED.jackpot_multiplier,
			spin_pack_price = EXCLUDED.spin_pack_price,
			spin_pack_size = EXCLUDED.spin_pack_size,
			house_account_id = EXCLUDED.house_account_id,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`,
		s.BusinessID,
		s.MinBet,
		s.MaxBet,
		s.DailyPlayLimit,
		s.HouseEdge.String(),
		s.JackpotMultiplier.String(),
		s.SpinPackPrice,
		s.SpinPackSize,
		s.HouseAccountID,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return wrapError(fmt.Sprintf("failed to save settings for business %d", s.BusinessID), err)
	}
	return nil
}
