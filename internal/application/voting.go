package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/participa-vecinal/participa/internal/domain/entity"
	"github.com/participa-vecinal/participa/internal/domain/repository"
	"github.com/participa-vecinal/participa/internal/infrastructure/lock"
	"github.com/participa-vecinal/participa/pkg/apperror"
	"github.com/participa-vecinal/participa/pkg/metrics"
)

// Transition names the state change a cast produced.
type Transition string

const (
	TransitionCreated   Transition = "created"
	TransitionChanged   Transition = "changed"
	TransitionWithdrawn Transition = "withdrawn"
)

// VoteResult is the outcome of Cast. Vote is nil after a withdrawal.
type VoteResult struct {
	Transition Transition
	Vote       *entity.Vote
	Tally      entity.Tally
}

// VotingService keeps at most one live vote per (user, proposal).
type VotingService struct {
	Store   repository.Store
	Locker  lock.Locker
	Logger  *logrus.Logger
	Metrics *metrics.Metrics
}

func voteLockKey(userID, proposalID int64) string {
	return fmt.Sprintf("vote:%d:%d", userID, proposalID)
}

// Cast applies valor to the caller's vote on a proposal: 1 or -1 create or
// flip the vote, 0 withdraws it.
func (s *VotingService) Cast(ctx context.Context, userID, proposalID int64, valor int) (*VoteResult, error) {
	defer s.Metrics.ObserveOperation("vote_cast", time.Now())

	if valor < -1 || valor > 1 {
		return nil, apperror.ErrInvalidVoteValue
	}
	prop, err := s.Store.Proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, notFoundOr("get proposal", err, apperror.ErrProposalNotFound)
	}

	release, err := s.Locker.Lock(ctx, voteLockKey(userID, proposalID))
	if err != nil {
		return nil, apperror.Upstream("lock vote", err)
	}
	res, err := s.apply(ctx, userID, proposalID, entity.VoteValue(valor))
	if errors.Is(err, repository.ErrDuplicate) {
		// a writer outside this lock created the row first; re-read and re-evaluate
		res, err = s.apply(ctx, userID, proposalID, entity.VoteValue(valor))
	}
	release()
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Upstream("create vote", err)
		}
		return nil, err
	}
	s.Metrics.IncVoteTransition(string(res.Transition))

	if res.Transition == TransitionCreated {
		tipo, msg := entity.NotificationVotePositive, msgVotePositive
		if res.Vote.Valor == entity.VoteAgainst {
			tipo, msg = entity.NotificationVoteNegative, msgVoteNegative
		}
		raiseNotification(ctx, s.Store.Notifications, s.Logger, s.Metrics, prop, tipo, msg)
	}

	t, err := s.Tally(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	res.Tally = t
	return res, nil
}

func (s *VotingService) apply(ctx context.Context, userID, proposalID int64, valor entity.VoteValue) (*VoteResult, error) {
	existing, err := s.Store.Votes.Find(ctx, userID, proposalID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.Upstream("find vote", err)
		}
		existing = nil
	}

	switch {
	case valor == 0:
		if existing == nil {
			return nil, apperror.ErrNoVoteToWithdraw
		}
		if err := s.Store.Votes.Delete(ctx, existing.ID); err != nil {
			return nil, notFoundOr("delete vote", err, apperror.ErrNoVoteToWithdraw)
		}
		return &VoteResult{Transition: TransitionWithdrawn}, nil

	case existing != nil:
		if existing.Valor == valor {
			return nil, apperror.ErrRedundantVote
		}
		if err := s.Store.Votes.UpdateValue(ctx, existing.ID, valor); err != nil {
			return nil, apperror.Upstream("update vote", err)
		}
		existing.Valor = valor
		return &VoteResult{Transition: TransitionChanged, Vote: existing}, nil

	default:
		v := &entity.Vote{UsuarioID: userID, PropuestaID: proposalID, Valor: valor}
		if err := s.Store.Votes.Create(ctx, v); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, err
			}
			return nil, apperror.Upstream("create vote", err)
		}
		return &VoteResult{Transition: TransitionCreated, Vote: v}, nil
	}
}

// Tally partitions the proposal's votes by sign.
func (s *VotingService) Tally(ctx context.Context, proposalID int64) (entity.Tally, error) {
	votes, err := s.Store.Votes.ListByProposal(ctx, proposalID)
	if err != nil {
		return entity.Tally{}, apperror.Upstream("list votes", err)
	}
	return entity.TallyVotes(votes), nil
}
