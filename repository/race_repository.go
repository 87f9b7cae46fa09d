package repository

import (
	"context"
	"fmt"

	"coinledger/database"
	"coinledger/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// RaceRepository implements the RaceRepository interface
type RaceRepository struct {
	q queryable
}

// NewRaceRepository creates a new race repository
func NewRaceRepository(db *database.DB) *RaceRepository {
	return &RaceRepository{q: db.Pool}
}

// newRaceRepositoryWithTx creates a new race repository with a transaction
func newRaceRepositoryWithTx(tx queryable) *RaceRepository {
	return &RaceRepository{q: tx}
}

// Create inserts a race and its entrants
func (r *RaceRepository) Create(ctx context.Context, race *models.RaceEvent) error {
	if race.State == "" {
		race.State = models.RaceStateOpen
	}

	err := r.q.QueryRow(ctx, `
		INSERT INTO race_events (business_id, name, weather, time_of_day, starts_at, state, prize_pool, house_account_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`,
		race.BusinessID,
		race.Name,
		race.Weather,
		race.TimeOfDay,
		race.StartsAt,
		string(race.State),
		race.PrizePool,
		race.HouseAccountID,
	).Scan(&race.ID, &race.CreatedAt)
	if err != nil {
		return wrapError("failed to create race", err)
	}

	for _, e := range race.Entrants {
		e.RaceID = race.ID
		_, err := r.q.Exec(ctx, `
			INSERT INTO race_entrants (
				race_id, entrant_no, name, performance_score, recent_form,
				preferred_weather, preferred_time, win_probability, odds
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric)
		`,
			e.RaceID,
			e.EntrantNo,
			e.Name,
			e.PerformanceScore,
			e.RecentForm,
			e.PreferredWeather,
			e.PreferredTime,
			e.WinProbability,
			e.Odds.String(),
		)
		if err != nil {
			return wrapError(fmt.Sprintf("failed to create entrant %d of race %d", e.EntrantNo, race.ID), err)
		}
	}

	return nil
}

// GetByID returns a race with its entrants, nil if absent
func (r *RaceRepository) GetByID(ctx context.Context, id int64) (*models.RaceEvent, error) {
	return r.load(ctx, id, "")
}

// GetForShare returns a race holding a share lock on its row
func (r *RaceRepository) GetForShare(ctx context.Context, id int64) (*models.RaceEvent, error) {
	return r.load(ctx, id, "FOR SHARE")
}

// GetForUpdate returns a race holding an exclusive lock on its row
func (r *RaceRepository) GetForUpdate(ctx context.Context, id int64) (*models.RaceEvent, error) {
	return r.load(ctx, id, "FOR UPDATE")
}

func (r *RaceRepository) load(ctx context.Context, id int64, lock string) (*models.RaceEvent, error) {
	var race models.RaceEvent
	var state string

	err := r.q.QueryRow(ctx, `
		SELECT id, business_id, name, weather, time_of_day, starts_at, state, prize_pool,
			house_account_id, pool_transaction_id, winning_entrant_no, created_at, settled_at
		FROM race_events
		WHERE id = $1
		`+lock, id).Scan(
		&race.ID,
		&race.BusinessID,
		&race.Name,
		&race.Weather,
		&race.TimeOfDay,
		&race.StartsAt,
		&state,
		&race.PrizePool,
		&race.HouseAccountID,
		&race.PoolTransactionID,
		&race.WinningEntrantNo,
		&race.CreatedAt,
		&race.SettledAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get race %d: %w", id, err)
	}
	race.State = models.RaceState(state)

	rows, err := r.q.Query(ctx, `
		SELECT race_id, entrant_no, name, performance_score::float8, recent_form::float8,
			preferred_weather, preferred_time, win_probability::float8, odds::text
		FROM race_entrants
		WHERE race_id = $1
		ORDER BY entrant_no
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get entrants of race %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var e models.RaceEntrant
		var odds string
		err := rows.Scan(
			&e.RaceID,
			&e.EntrantNo,
			&e.Name,
			&e.PerformanceScore,
			&e.RecentForm,
			&e.PreferredWeather,
			&e.PreferredTime,
			&e.WinProbability,
			&odds,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entrant: %w", err)
		}
		if e.Odds, err = decimal.NewFromString(odds); err != nil {
			return nil, fmt.Errorf("invalid odds %q: %w", odds, err)
		}
		race.Entrants = append(race.Entrants, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entrants: %w", err)
	}

	return &race, nil
}

// Close moves an open race to state
func (r *RaceRepository) Close(ctx context.Context, raceID int64, state models.RaceState, winningEntrantNo *int) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE race_events
		SET state = $2, winning_entrant_no = $3, settled_at = NOW()
		WHERE id = $1 AND state = 'open'
	`, raceID, string(state), winningEntrantNo)
	if err != nil {
		return false, wrapError(fmt.Sprintf("failed to close race %d", raceID), err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetPoolTransaction records the ledger row that funded the prize pool
func (r *RaceRepository) SetPoolTransaction(ctx context.Context, raceID int64, transactionID int64) error {
	_, err := r.q.Exec(ctx, `UPDATE race_events SET pool_transaction_id = $2 WHERE id = $1`, raceID, transactionID)
	if err != nil {
		return wrapError(fmt.Sprintf("failed to set pool transaction of race %d", raceID), err)
	}
	return nil
}
