package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/participa-vecinal/participa/internal/domain/entity"
	"github.com/participa-vecinal/participa/internal/domain/repository"
	"github.com/participa-vecinal/participa/pkg/apperror"
	"github.com/participa-vecinal/participa/pkg/metrics"
)

// ProposalIndex mirrors proposals into a search backend.
type ProposalIndex interface {
	Enabled() bool
	Put(ctx context.Context, p entity.Proposal) error
	Remove(ctx context.Context, id int64) error
	Search(ctx context.Context, q string, size int) ([]int64, error)
}

// enrichConcurrency bounds the count reads in flight per request.
const enrichConcurrency = 8

type ProposalService struct {
	Store   repository.Store
	Index   ProposalIndex
	Logger  *logrus.Logger
	Metrics *metrics.Metrics
}

type CreateProposalInput struct {
	Titulo      string
	Descripcion string
}

// ProposalPatch carries the fields to change. Nil fields are kept.
type ProposalPatch struct {
	Titulo      *string
	Descripcion *string
}

func (s *ProposalService) Create(ctx context.Context, authorID int64, in CreateProposalInput) (*ProposalView, error) {
	titulo, descripcion := cleanText(in.Titulo), cleanText(in.Descripcion)
	if fields := requiredText(titulo, descripcion); fields != nil {
		return nil, apperror.Validation("invalid_proposal", "invalid proposal", fields)
	}

	author, err := s.Store.Accounts.GetByID(ctx, authorID)
	if err != nil {
		return nil, notFoundOr("get author", err, apperror.ErrAccountNotFound)
	}
	var localidad string
	roll, err := s.Store.Roll.FindByDNI(ctx, author.DNI)
	switch {
	case err == nil:
		localidad = roll.Localidad
	case !errors.Is(err, repository.ErrNotFound):
		return nil, apperror.Upstream("roll lookup", err)
	}

	p := &entity.Proposal{Titulo: titulo, Descripcion: descripcion, AutorID: authorID, Localidad: localidad}
	if err := s.Store.Proposals.Create(ctx, p); err != nil {
		return nil, apperror.Upstream("create proposal", err)
	}
	s.syncIndex(ctx, p)

	v := proposalView(*p, entity.Tally{}, 0, AuthorLabel(author))
	return &v, nil
}

func (s *ProposalService) Get(ctx context.Context, id int64) (*ProposalView, error) {
	p, err := s.Store.Proposals.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr("get proposal", err, apperror.ErrProposalNotFound)
	}
	views, err := s.Enrich(ctx, []entity.Proposal{*p})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *ProposalService) List(ctx context.Context) ([]ProposalView, error) {
	props, err := s.Store.Proposals.List(ctx)
	if err != nil {
		return nil, apperror.Upstream("list proposals", err)
	}
	return s.Enrich(ctx, props)
}

// Update changes title and/or description. Only the author may do it.
func (s *ProposalService) Update(ctx context.Context, actorID, id int64, patch ProposalPatch) (*ProposalView, error) {
	if patch.Titulo == nil && patch.Descripcion == nil {
		return nil, apperror.ErrEmptyUpdate
	}
	p, err := s.authored(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	fields := map[string]string{}
	if patch.Titulo != nil {
		if p.Titulo = cleanText(*patch.Titulo); p.Titulo == "" {
			fields["titulo"] = "is required"
		}
	}
	if patch.Descripcion != nil {
		if p.Descripcion = cleanText(*patch.Descripcion); p.Descripcion == "" {
			fields["descripcion"] = "is required"
		}
	}
	if len(fields) > 0 {
		return nil, apperror.Validation("invalid_proposal", "invalid proposal", fields)
	}
	if err := s.Store.Proposals.Update(ctx, p); err != nil {
		return nil, notFoundOr("update proposal", err, apperror.ErrProposalNotFound)
	}
	s.syncIndex(ctx, p)

	views, err := s.Enrich(ctx, []entity.Proposal{*p})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Delete removes the proposal and its votes. Only the author may do it.
func (s *ProposalService) Delete(ctx context.Context, actorID, id int64) error {
	p, err := s.authored(ctx, actorID, id)
	if err != nil {
		return err
	}
	if err := s.Store.Proposals.Delete(ctx, p.ID); err != nil {
		return notFoundOr("delete proposal", err, apperror.ErrProposalNotFound)
	}
	if s.Index != nil && s.Index.Enabled() {
		if err := s.Index.Remove(context.WithoutCancel(ctx), p.ID); err != nil {
			s.Metrics.IncDispatchFailure("search_index")
			s.Logger.WithError(err).WithField("propuesta_id", p.ID).Warn("es delete failed")
		}
	}
	s.Logger.WithFields(logrus.Fields{"propuesta_id": p.ID, "usuario_id": actorID}).Info("proposal deleted")
	return nil
}

// Search returns proposals matching q in relevance order. Hits whose proposal
// no longer exists are skipped.
func (s *ProposalService) Search(ctx context.Context, q string, size int) ([]ProposalView, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperror.Validation("invalid_query", "invalid query", map[string]string{"q": "is required"})
	}
	if s.Index == nil || !s.Index.Enabled() {
		return nil, apperror.ErrSearchUnavailable
	}
	ids, err := s.Index.Search(ctx, q, size)
	if err != nil {
		s.Logger.WithError(err).Error("es search failed")
		return nil, apperror.ErrSearchUnavailable
	}
	props := make([]entity.Proposal, 0, len(ids))
	for _, id := range ids {
		p, err := s.Store.Proposals.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, apperror.Upstream("get proposal", err)
		}
		props = append(props, *p)
	}
	return s.Enrich(ctx, props)
}

// Tally returns the current vote partition of an existing proposal.
func (s *ProposalService) Tally(ctx context.Context, id int64) (entity.Tally, error) {
	if _, err := s.Store.Proposals.GetByID(ctx, id); err != nil {
		return entity.Tally{}, notFoundOr("get proposal", err, apperror.ErrProposalNotFound)
	}
	votes, err := s.Store.Votes.ListByProposal(ctx, id)
	if err != nil {
		return entity.Tally{}, apperror.Upstream("list votes", err)
	}
	return entity.TallyVotes(votes), nil
}

// Enrich attaches vote counts, report counts and the author label to each
// proposal. Reads for different proposals overlap; output order matches input.
func (s *ProposalService) Enrich(ctx context.Context, props []entity.Proposal) ([]ProposalView, error) {
	defer s.Metrics.ObserveOperation("proposal_enrich", time.Now())

	out := make([]ProposalView, len(props))
	if len(props) == 0 {
		return out, nil
	}

	authors := make(map[int64]*entity.Account)
	for _, p := range props {
		authors[p.AutorID] = nil
	}
	authorIDs := make([]int64, 0, len(authors))
	for id := range authors {
		authorIDs = append(authorIDs, id)
	}
	resolved := make([]*entity.Account, len(authorIDs))
	tallies := make([]entity.Tally, len(props))
	reports := make([]int, len(props))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for i, id := range authorIDs {
		i, id := i, id // per-iteration copy (go.mod targets go 1.21)
		g.Go(func() error {
			a, err := s.Store.Accounts.GetByID(gctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil
				}
				return err
			}
			resolved[i] = a
			return nil
		})
	}
	for i, p := range props {
		i, p := i, p // per-iteration copy (go.mod targets go 1.21)
		g.Go(func() error {
			votes, err := s.Store.Votes.ListByProposal(gctx, p.ID)
			if err != nil {
				return err
			}
			tallies[i] = entity.TallyVotes(votes)
			return nil
		})
		g.Go(func() error {
			n, err := s.Store.Reports.CountByProposal(gctx, p.ID)
			if err != nil {
				return err
			}
			reports[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperror.Upstream("enrich proposals", err)
	}

	for i, id := range authorIDs {
		authors[id] = resolved[i]
	}
	for i, p := range props {
		out[i] = proposalView(p, tallies[i], reports[i], AuthorLabel(authors[p.AutorID]))
	}
	return out, nil
}

func (s *ProposalService) authored(ctx context.Context, actorID, id int64) (*entity.Proposal, error) {
	p, err := s.Store.Proposals.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr("get proposal", err, apperror.ErrProposalNotFound)
	}
	if p.AutorID != actorID {
		return nil, apperror.ErrNotProposalAuthor
	}
	return p, nil
}

func (s *ProposalService) syncIndex(ctx context.Context, p *entity.Proposal) {
	if s.Index == nil || !s.Index.Enabled() {
		return
	}
	if err := s.Index.Put(context.WithoutCancel(ctx), *p); err != nil {
		s.Metrics.IncDispatchFailure("search_index")
		s.Logger.WithError(err).WithField("propuesta_id", p.ID).Warn("es index failed")
	}
}

func requiredText(titulo, descripcion string) map[string]string {
	fields := map[string]string{}
	if titulo == "" {
		fields["titulo"] = "is required"
	}
	if descripcion == "" {
		fields["descripcion"] = "is required"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func proposalView(p entity.Proposal, t entity.Tally, reports int, label string) ProposalView {
	return ProposalView{
		ID:               p.ID,
		Titulo:           p.Titulo,
		Descripcion:      p.Descripcion,
		AutorID:          p.AutorID,
		Localidad:        p.Localidad,
		VotosPositivos:   t.Positivos,
		VotosNegativos:   t.Negativos,
		CantidadReportes: reports,
		AutorNombre:      label,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}
