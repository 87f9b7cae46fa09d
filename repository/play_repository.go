package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"coinledger/database"
	"coinledger/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// PlayRepository implements the PlayRepository interface
type PlayRepository struct {
	q queryable
}

// NewPlayRepository creates a new play repository
func NewPlayRepository(db *database.DB) *PlayRepository {
	return &PlayRepository{q: db.Pool}
}

// newPlayRepositoryWithTx creates a new play repository with a transaction
func newPlayRepositoryWithTx(tx queryable) *PlayRepository {
	return &PlayRepository{q: tx}
}

const playColumns = `
	id, round_id, account_id, business_id, game_type, stake, outcome, payout,
	multiplier::text, is_jackpot, status, race_id, entrant_no, odds::text,
	debit_transaction_id, credit_transaction_id, refund_transaction_id,
	placed_at, settled_at
`

// Create inserts a play
func (r *PlayRepository) Create(ctx context.Context, play *models.Play) error {
	outcome := play.Outcome.Bytes()
	if outcome == nil {
		return fmt.Errorf("failed to encode outcome for round %s", play.RoundID)
	}

	var odds *string
	if play.Odds != nil {
		s := play.Odds.String()
		odds = &s
	}

	err := r.q.QueryRow(ctx, `
		INSERT INTO plays (
			round_id, account_id, business_id, game_type, stake, outcome, payout,
			multiplier, is_jackpot, status, race_id, entrant_no, odds,
			debit_transaction_id, credit_transaction_id, settled_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9, $10, $11, $12, $13::numeric, $14, $15, $16)
		RETURNING id, placed_at
	`,
		play.RoundID,
		play.AccountID,
		play.BusinessID,
		string(play.GameType),
		play.Stake,
		outcome,
		play.Payout,
		play.Multiplier.String(),
		play.IsJackpot,
		string(play.Status),
		play.RaceID,
		play.EntrantNo,
		odds,
		play.DebitTransactionID,
		play.CreditTransactionID,
		play.SettledAt,
	).Scan(&play.ID, &play.PlacedAt)
	if err != nil {
		return wrapError("failed to create play", err)
	}
	return nil
}

// GetByID retrieves a play by its ID
func (r *PlayRepository) GetByID(ctx context.Context, id int64) (*models.Play, error) {
	row := r.q.QueryRow(ctx, `SELECT `+playColumns+` FROM plays WHERE id = $1`, id)
	play, err := scanPlay(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get play %d: %w", id, err)
	}
	return play, nil
}

// GetByAccount returns recent plays of an account
func (r *PlayRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Play, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+playColumns+`
		FROM plays
		WHERE account_id = $1
		ORDER BY placed_at DESC, id DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query plays for account %d: %w", accountID, err)
	}
	return collectPlays(rows)
}

// LockOpenByRace locks every placed bet on a race in id order
func (r *PlayRepository) LockOpenByRace(ctx context.Context, raceID int64) ([]*models.Play, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+playColumns+`
		FROM plays
		WHERE race_id = $1 AND status = 'placed'
		ORDER BY id
		FOR UPDATE
	`, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock bets for race %d: %w", raceID, err)
	}
	return collectPlays(rows)
}

// Settle writes the settlement of a placed play
func (r *PlayRepository) Settle(ctx context.Context, play *models.Play) (bool, error) {
	settledAt := time.Now()
	if play.SettledAt != nil {
		settledAt = *play.SettledAt
	}

	tag, err := r.q.Exec(ctx, `
		UPDATE plays
		SET status = $2, payout = $3, multiplier = $4::numeric, outcome = $5,
			credit_transaction_id = $6, settled_at = $7
		WHERE id = $1 AND status = 'placed'
	`,
		play.ID,
		string(play.Status),
		play.Payout,
		play.Multiplier.String(),
		play.Outcome.Bytes(),
		play.CreditTransactionID,
		settledAt,
	)
	if err != nil {
		return false, wrapError(fmt.Sprintf("failed to settle play %d", play.ID), err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkRefunded moves a placed play to refunded
func (r *PlayRepository) MarkRefunded(ctx context.Context, playID int64, refundTransactionID int64) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE plays
		SET status = 'refunded', payout = 0, refund_transaction_id = $2, settled_at = NOW()
		WHERE id = $1 AND status = 'placed'
	`, playID, refundTransactionID)
	if err != nil {
		return false, wrapError(fmt.Sprintf("failed to refund play %d", playID), err)
	}
	return tag.RowsAffected() == 1, nil
}

func collectPlays(rows pgx.Rows) ([]*models.Play, error) {
	defer rows.Close()

	var plays []*models.Play
	for rows.Next() {
		play, err := scanPlay(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan play: %w", err)
		}
		plays = append(plays, play)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plays: %w", err)
	}
	return plays, nil
}

func scanPlay(row pgx.Row) (*models.Play, error) {
	var play models.Play
	var gameType, status, multiplier string
	var odds *string
	var outcome []byte

	err := row.Scan(
		&play.ID,
		&play.RoundID,
		&play.AccountID,
		&play.BusinessID,
		&gameType,
		&play.Stake,
		&outcome,
		&play.Payout,
		&multiplier,
		&play.IsJackpot,
		&status,
		&play.RaceID,
		&play.EntrantNo,
		&odds,
		&play.DebitTransactionID,
		&play.CreditTransactionID,
		&play.RefundTransactionID,
		&play.PlacedAt,
		&play.SettledAt,
	)
	if err != nil {
		return nil, err
	}

	play.GameType = models.GameType(gameType)
	play.Status = models.PlayStatus(status)

	if play.Multiplier, err = decimal.NewFromString(multiplier); err != nil {
		return nil, fmt.Errorf("invalid multiplier %q: %w", multiplier, err)
	}
	if odds != nil {
		d, err := decimal.NewFromString(*odds)
		if err != nil {
			return nil, fmt.Errorf("invalid odds %q: %w", *odds, err)
		}
		play.Odds = &d
	}
	if err := json.Unmarshal(outcome, &play.Outcome); err != nil {
		return nil, fmt.Errorf("invalid outcome for play %d: %w", play.ID, err)
	}

	return &play, nil
}
