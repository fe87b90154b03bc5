package application

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/participa-vecinal/participa/internal/domain/entity"
	"github.com/participa-vecinal/participa/internal/domain/repository"
	"github.com/participa-vecinal/participa/pkg/apperror"
)

type ProfileService struct {
	Store     repository.Store
	Proposals *ProposalService
	Logger    *logrus.Logger
}

// PrivacyPatch carries the flags to change. Nil flags are kept.
type PrivacyPatch struct {
	ProfilePrivate  *bool
	ShowPublicName  *bool
	ShowPublicVotes *bool
}

// Me returns the owner's full view of their profile.
func (s *ProfileService) Me(ctx context.Context, userID int64) (*SelfProfile, error) {
	acc, err := s.account(ctx, userID)
	if err != nil {
		return nil, err
	}
	owned, votes, referenced, err := s.activity(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	p := ProjectSelf(*acc, owned, votes, referenced)
	return &p, nil
}

// View returns the profile of targetID as seen by viewerID (0 when anonymous).
// Viewers looking at themselves get the self view.
func (s *ProfileService) View(ctx context.Context, targetID, viewerID int64) (any, error) {
	if viewerID != 0 && viewerID == targetID {
		return s.Me(ctx, targetID)
	}
	acc, err := s.account(ctx, targetID)
	if err != nil {
		return nil, err
	}
	owned, votes, referenced, err := s.activity(ctx, targetID, acc.Privacy.VotesVisible())
	if err != nil {
		return nil, err
	}
	p := ProjectForViewer(*acc, owned, votes, referenced)
	return &p, nil
}

// UpdatePrivacy applies the given flags. An empty patch leaves the account as is.
func (s *ProfileService) UpdatePrivacy(ctx context.Context, userID int64, patch PrivacyPatch) (*entity.Account, error) {
	acc, err := s.account(ctx, userID)
	if err != nil {
		return nil, err
	}
	if patch.ProfilePrivate == nil && patch.ShowPublicName == nil && patch.ShowPublicVotes == nil {
		return acc, nil
	}
	if patch.ProfilePrivate != nil {
		acc.Privacy.ProfilePrivate = *patch.ProfilePrivate
	}
	if patch.ShowPublicName != nil {
		acc.Privacy.ShowPublicName = *patch.ShowPublicName
	}
	if patch.ShowPublicVotes != nil {
		acc.Privacy.ShowPublicVotes = *patch.ShowPublicVotes
	}
	if err := s.Store.Accounts.Update(ctx, acc); err != nil {
		return nil, notFoundOr("update account", err, apperror.ErrAccountNotFound)
	}
	s.Logger.WithFields(logrus.Fields{"usuario_id": acc.ID, "privacy": acc.Privacy}).Info("privacy updated")
	return acc, nil
}

func (s *ProfileService) account(ctx context.Context, id int64) (*entity.Account, error) {
	acc, err := s.Store.Accounts.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr("get account", err, apperror.ErrAccountNotFound)
	}
	return acc, nil
}

// activity loads owned proposals (enriched) and, when withVotes, the vote
// history together with the proposals it references that still exist.
func (s *ProfileService) activity(ctx context.Context, userID int64, withVotes bool) ([]ProposalView, []entity.Vote, map[int64]entity.Proposal, error) {
	var (
		owned []entity.Proposal
		votes []entity.Vote
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		owned, err = s.Store.Proposals.ListByAuthor(gctx, userID)
		return err
	})
	if withVotes {
		g.Go(func() error {
			var err error
			votes, err = s.Store.Votes.ListByUser(gctx, userID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, nil, apperror.Upstream("load activity", err)
	}

	views, err := s.Proposals.Enrich(ctx, owned)
	if err != nil {
		return nil, nil, nil, err
	}

	referenced := make(map[int64]entity.Proposal)
	for _, p := range owned {
		referenced[p.ID] = p
	}
	missing := make([]int64, 0)
	seen := make(map[int64]bool)
	for _, v := range votes {
		if _, ok := referenced[v.PropuestaID]; ok || seen[v.PropuestaID] {
			continue
		}
		seen[v.PropuestaID] = true
		missing = append(missing, v.PropuestaID)
	}
	found := make([]*entity.Proposal, len(missing))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for i, id := range missing {
		i, id := i, id // per-iteration copy (go.mod targets go 1.21)
		g.Go(func() error {
			p, err := s.Store.Proposals.GetByID(gctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil
				}
				return err
			}
			found[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, nil, apperror.Upstream("load voted proposals", err)
	}
	for _, p := range found {
		if p != nil {
			referenced[p.ID] = *p
		}
	}
	return views, votes, referenced, nil
}
