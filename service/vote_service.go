package service

import (
	"context"
	"fmt"

	"coinledger/config"
	"coinledger/models"

	log "github.com/sirupsen/logrus"
)

type voteService struct {
	uowFactory UnitOfWorkFactory
	periods    Periods
	freeVotes  int64
}

// NewVoteService creates a new vote service
func NewVoteService(uowFactory UnitOfWorkFactory, cfg *config.Config, periods Periods) VoteService {
	return &voteService{
		uowFactory: uowFactory,
		periods:    periods,
		freeVotes:  cfg.WeeklyFreeVotes,
	}
}

// CastVote spends a vote-pack allowance first, then a free weekly vote
func (s *voteService) CastVote(ctx context.Context, accountID, businessID int64) (*models.VoteResult, error) {
	if accountID <= 0 || businessID <= 0 {
		return nil, fmt.Errorf("%w: account id and business id are required", ErrInvalidRequest)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("failed to begin transaction", err)
	}
	defer uow.Rollback()

	key := s.periods.WeeklyKey(models.QuotaTypeFreeVote, accountID)
	reservation, err := reserveQuota(ctx, uow, key, s.freeVotes)
	if err != nil {
		return nil, storageError("failed to reserve vote", err)
	}

	vote := &models.Vote{
		AccountID:  accountID,
		BusinessID: businessID,
		Paid:       reservation.FromAllowance,
	}
	if err := uow.VoteRepository().Create(ctx, vote); err != nil {
		return nil, storageError("failed to record vote", err)
	}

	remaining, err := remainingQuota(ctx, uow, key, s.freeVotes)
	if err != nil {
		return nil, storageError("failed to get remaining votes", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, storageError("failed to commit transaction", err)
	}

	log.WithFields(log.Fields{
		"accountID":  accountID,
		"businessID": businessID,
		"paid":       vote.Paid,
		"remaining":  remaining,
	}).Info("Vote cast")

	return &models.VoteResult{VoteID: vote.ID, Paid: vote.Paid, VotesRemaining: remaining}, nil
}
