package repository

import (
	"context"
	"fmt"
	"time"

	"coinledger/database"
	"coinledger/models"
)

// VoteRepository implements the VoteRepository interface
type VoteRepository struct {
	q queryable
}

// NewVoteRepository creates a new vote repository
func NewVoteRepository(db *database.DB) *VoteRepository {
	return &VoteRepository{q: db.Pool}
}

func newVoteRepositoryWithTx(tx queryable) *VoteRepository {
	return &VoteRepository{q: tx}
}

// Create records a vote
func (r *VoteRepository) Create(ctx context.Context, vote *models.Vote) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO votes (account_id, business_id, paid)
		VALUES ($1, $2, $3)
		RETURNING id, cast_at
	`, vote.AccountID, vote.BusinessID, vote.Paid).Scan(&vote.ID, &vote.CastAt)
	if err != nil {
		return wrapError("failed to create vote", err)
	}
	return nil
}

// CountByBusinessSince counts votes cast for a business since a time
func (r *VoteRepository) CountByBusinessSince(ctx context.Context, businessID int64, since time.Time) (int64, error) {
	var count int64
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM votes WHERE business_id = $1 AND cast_at >= $2
	`, businessID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes for business %d: %w", businessID, err)
	}
	return count, nil
}
