package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/participa-vecinal/participa/internal/domain/entity"
	"github.com/participa-vecinal/participa/internal/domain/repository"
	"github.com/participa-vecinal/participa/pkg/apperror"
)

type VotingSuite struct {
	suite.Suite
	f        *fixture
	author   int64
	voter    int64
	proposal int64
}

func (s *VotingSuite) SetupTest() {
	s.f = newFixture(s.T())
	s.author = s.f.verifiedUser(s.T(), registerInput("30123456", "ana@example.com"))
	s.voter = s.f.verifiedUser(s.T(), registerInput("28999111", "bruno@example.com"))
	s.proposal = s.f.proposal(s.T(), s.author, "Bicisenda")
}

func (s *VotingSuite) cast(valor int) (*VoteResult, error) {
	return s.f.voting.Cast(context.Background(), s.voter, s.proposal, valor)
}

func (s *VotingSuite) TestForAgainstWithdrawSequence() {
	res, err := s.cast(1)
	s.Require().NoError(err)
	s.Equal(TransitionCreated, res.Transition)
	s.Equal(entity.Tally{Positivos: 1, Negativos: 0}, res.Tally)

	res, err = s.cast(-1)
	s.Require().NoError(err)
	s.Equal(TransitionChanged, res.Transition)
	s.Equal(entity.VoteAgainst, res.Vote.Valor)
	s.Equal(entity.Tally{Positivos: 0, Negativos: 1}, res.Tally)

	res, err = s.cast(0)
	s.Require().NoError(err)
	s.Equal(TransitionWithdrawn, res.Transition)
	s.Nil(res.Vote)
	s.Equal(entity.Tally{}, res.Tally)
	s.Equal(0, s.f.mem.VoteCount(s.voter, s.proposal))
}

func (s *VotingSuite) TestRedundantVoteLeavesStateUnchanged() {
	_, err := s.cast(1)
	s.Require().NoError(err)

	_, err = s.cast(1)
	s.ErrorIs(err, apperror.ErrRedundantVote)
	s.Equal(409, apperror.HTTPStatus(err))

	t, err := s.f.voting.Tally(context.Background(), s.proposal)
	s.Require().NoError(err)
	s.Equal(entity.Tally{Positivos: 1}, t)
}

func (s *VotingSuite) TestWithdrawingNothingIsAnError() {
	_, err := s.cast(0)
	s.ErrorIs(err, apperror.ErrNoVoteToWithdraw)
	s.Equal(apperror.KindConflict, apperror.KindOf(err))
}

func (s *VotingSuite) TestRejectsInvalidValueAndMissingProposal() {
	for _, v := range []int{2, -2, 257} {
		_, err := s.cast(v)
		s.ErrorIs(err, apperror.ErrInvalidVoteValue, "valor %d", v)
	}
	_, err := s.f.voting.Cast(context.Background(), s.voter, 9999, 1)
	s.ErrorIs(err, apperror.ErrProposalNotFound)
}

func (s *VotingSuite) TestOnlyNewVotesNotifyTheAuthor() {
	ctx := context.Background()
	_, err := s.cast(-1)
	s.Require().NoError(err)
	_, err = s.cast(1)
	s.Require().NoError(err)
	_, err = s.cast(0)
	s.Require().NoError(err)

	list, err := s.f.moderation.ListNotifications(ctx, s.author, false)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(entity.NotificationVoteNegative, list[0].Tipo)
	s.Equal(msgVoteNegative, list[0].Mensaje)
	s.Require().NotNil(list[0].PropuestaID)
	s.Equal(s.proposal, *list[0].PropuestaID)
}

func (s *VotingSuite) TestSelfVotingIsAllowed() {
	res, err := s.f.voting.Cast(context.Background(), s.author, s.proposal, 1)
	s.Require().NoError(err)
	s.Equal(TransitionCreated, res.Transition)
}

func (s *VotingSuite) TestTallyIsThePartitionOfVotes() {
	ctx := context.Background()
	third := s.f.verifiedUser(s.T(), registerInput("40111222", "carla@example.com"))
	_, err := s.f.voting.Cast(ctx, s.author, s.proposal, 1)
	s.Require().NoError(err)
	_, err = s.f.voting.Cast(ctx, s.voter, s.proposal, 1)
	s.Require().NoError(err)
	res, err := s.f.voting.Cast(ctx, third, s.proposal, -1)
	s.Require().NoError(err)
	s.Equal(entity.Tally{Positivos: 2, Negativos: 1}, res.Tally)
}

// concurrent first votes from one user leave exactly one row
func (s *VotingSuite) TestConcurrentFirstVotesCreateOneRow() {
	const n = 50
	var (
		wg        sync.WaitGroup
		created   atomic.Int32
		redundant atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res, err := s.cast(1)
			switch {
			case err == nil && res.Transition == TransitionCreated:
				created.Add(1)
			case errors.Is(err, apperror.ErrRedundantVote):
				redundant.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	s.Equal(int32(1), created.Load())
	s.Equal(int32(n-1), redundant.Load())
	s.Equal(1, s.f.mem.VoteCount(s.voter, s.proposal))
}

func TestVotingSuite(t *testing.T) {
	suite.Run(t, new(VotingSuite))
}

// racingVotes simulates a writer outside the lock winning the insert: the first
// Find misses and the first Create reports a duplicate.
type racingVotes struct {
	repository.VoteRepository
	finds   int
	creates int
}

func (r *racingVotes) Find(ctx context.Context, userID, proposalID int64) (*entity.Vote, error) {
	r.finds++
	if r.finds == 1 {
		return nil, repository.ErrNotFound
	}
	return r.VoteRepository.Find(ctx, userID, proposalID)
}

func (r *racingVotes) Create(ctx context.Context, v *entity.Vote) error {
	r.creates++
	if r.creates == 1 {
		other := &entity.Vote{UsuarioID: v.UsuarioID, PropuestaID: v.PropuestaID, Valor: entity.VoteAgainst}
		if err := r.VoteRepository.Create(ctx, other); err != nil {
			return err
		}
		return repository.ErrDuplicate
	}
	return r.VoteRepository.Create(ctx, v)
}

func TestCastReevaluatesAfterLostInsert(t *testing.T) {
	f := newFixture(t)
	author := f.verifiedUser(t, registerInput("30123456", "ana@example.com"))
	pid := f.proposal(t, author, "Luminarias")

	votes := &racingVotes{VoteRepository: f.voting.Store.Votes}
	f.voting.Store.Votes = votes

	res, err := f.voting.Cast(context.Background(), author, pid, 1)
	require.NoError(t, err)
	assert.Equal(t, TransitionChanged, res.Transition, "the concurrent against-vote is flipped, not duplicated")
	assert.Equal(t, entity.Tally{Positivos: 1}, res.Tally)
	assert.Equal(t, 1, f.mem.VoteCount(author, pid))
	assert.Equal(t, 2, votes.finds)
}
