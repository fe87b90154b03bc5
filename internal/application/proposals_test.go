package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/participa-vecinal/participa/internal/domain/entity"
	"github.com/participa-vecinal/participa/pkg/apperror"
)

type fakeIndex struct {
	docs      map[int64]entity.Proposal
	hits      []int64
	searchErr error
	putErr    error
}

func (f *fakeIndex) Enabled() bool { return true }

func (f *fakeIndex) Put(_ context.Context, p entity.Proposal) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.docs[p.ID] = p
	return nil
}

func (f *fakeIndex) Remove(_ context.Context, id int64) error {
	delete(f.docs, id)
	return nil
}

func (f *fakeIndex) Search(context.Context, string, int) ([]int64, error) {
	return f.hits, f.searchErr
}

type ProposalSuite struct {
	suite.Suite
	f     *fixture
	index *fakeIndex
	ana   int64
	bruno int64
}

func (s *ProposalSuite) SetupTest() {
	s.f = newFixture(s.T())
	s.index = &fakeIndex{docs: map[int64]entity.Proposal{}}
	s.f.proposals.Index = s.index
	s.ana = s.f.verifiedUser(s.T(), registerInput("30123456", "ana@example.com"))
	hidden := registerInput("28999111", "bruno@example.com")
	hidden.Privacy.ShowPublicName = false
	s.bruno = s.f.verifiedUser(s.T(), hidden)
}

func (s *ProposalSuite) TestCreateSanitizesAndTakesLocalidadFromRoll() {
	v, err := s.f.proposals.Create(context.Background(), s.bruno, CreateProposalInput{
		Titulo:      "  <script>alert(1)</script>Más <b>árboles</b> ",
		Descripcion: "Plantar en la plaza & la costanera",
	})
	s.Require().NoError(err)
	s.Equal("Más árboles", v.Titulo)
	s.Equal("Plantar en la plaza & la costanera", v.Descripcion)
	s.Equal("Funes", v.Localidad)
	s.Equal(AnonymousLabel, v.AutorNombre)
	s.Contains(s.index.docs, v.ID)

	_, err = s.f.proposals.Create(context.Background(), s.ana, CreateProposalInput{Titulo: "<b></b>", Descripcion: " "})
	s.Equal(apperror.KindValidation, apperror.KindOf(err))
	s.Equal(map[string]string{"titulo": "is required", "descripcion": "is required"}, apperror.FieldsOf(err))
}

func (s *ProposalSuite) TestCreateStripsEntityEncodedMarkup() {
	v, err := s.f.proposals.Create(context.Background(), s.ana, CreateProposalInput{
		Titulo:      "&lt;b&gt;Bicisenda&lt;/b&gt; &lt;script&gt;alert(1)&lt;/script&gt;",
		Descripcion: "Ciclovía &amp;lt;img src=x onerror=alert(1)&amp;gt; en bulevar",
	})
	s.Require().NoError(err)
	s.Equal("Bicisenda", v.Titulo)
	s.NotContains(v.Descripcion, "<img")
	s.Contains(v.Descripcion, "Ciclovía")

	_, err = s.f.proposals.Create(context.Background(), s.ana, CreateProposalInput{
		Titulo:      "&lt;script&gt;alert(1)&lt;/script&gt;",
		Descripcion: "algo",
	})
	s.Equal(map[string]string{"titulo": "is required"}, apperror.FieldsOf(err))
}

func (s *ProposalSuite) TestListEnrichesCountsAndLabels() {
	ctx := context.Background()
	p1 := s.f.proposal(s.T(), s.ana, "Bicisenda")
	p2 := s.f.proposal(s.T(), s.bruno, "Peatonal")
	_, err := s.f.voting.Cast(ctx, s.ana, p1, 1)
	s.Require().NoError(err)
	_, err = s.f.voting.Cast(ctx, s.bruno, p1, -1)
	s.Require().NoError(err)
	_, err = s.f.moderation.FileReport(ctx, s.ana, p2, "spam")
	s.Require().NoError(err)

	list, err := s.f.proposals.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(p1, list[0].ID)
	s.Equal(1, list[0].VotosPositivos)
	s.Equal(1, list[0].VotosNegativos)
	s.Equal("Ana Paz", list[0].AutorNombre)
	s.Equal(1, list[1].CantidadReportes)
	s.Equal(AnonymousLabel, list[1].AutorNombre)
}

func (s *ProposalSuite) TestUnknownAuthorIsLabelled() {
	ctx := context.Background()
	p := &entity.Proposal{Titulo: "Huérfana", Descripcion: "sin autor", AutorID: 4242}
	s.Require().NoError(s.f.proposals.Store.Proposals.Create(ctx, p))
	v, err := s.f.proposals.Get(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(UnknownAuthorLabel, v.AutorNombre)
}

func (s *ProposalSuite) TestOnlyTheAuthorMutates() {
	ctx := context.Background()
	pid := s.f.proposal(s.T(), s.ana, "Bicisenda")
	titulo := "Otra cosa"

	_, err := s.f.proposals.Update(ctx, s.bruno, pid, ProposalPatch{Titulo: &titulo})
	s.ErrorIs(err, apperror.ErrNotProposalAuthor)
	s.Equal(403, apperror.HTTPStatus(err))
	s.ErrorIs(s.f.proposals.Delete(ctx, s.bruno, pid), apperror.ErrNotProposalAuthor)

	_, err = s.f.proposals.Update(ctx, s.ana, pid, ProposalPatch{})
	s.ErrorIs(err, apperror.ErrEmptyUpdate)

	v, err := s.f.proposals.Update(ctx, s.ana, pid, ProposalPatch{Titulo: &titulo})
	s.Require().NoError(err)
	s.Equal("Otra cosa", v.Titulo)
	s.Equal("Descripción de Bicisenda", v.Descripcion)
	s.Equal("Otra cosa", s.index.docs[pid].Titulo)

	_, err = s.f.proposals.Update(ctx, s.ana, 9999, ProposalPatch{Titulo: &titulo})
	s.ErrorIs(err, apperror.ErrProposalNotFound)
}

func (s *ProposalSuite) TestDeleteRemovesVotesAndIndexEntry() {
	ctx := context.Background()
	pid := s.f.proposal(s.T(), s.ana, "Bicisenda")
	_, err := s.f.voting.Cast(ctx, s.bruno, pid, 1)
	s.Require().NoError(err)

	s.Require().NoError(s.f.proposals.Delete(ctx, s.ana, pid))
	s.Equal(0, s.f.mem.VoteCount(s.bruno, pid))
	s.NotContains(s.index.docs, pid)
	_, err = s.f.proposals.Get(ctx, pid)
	s.ErrorIs(err, apperror.ErrProposalNotFound)
	_, err = s.f.proposals.Tally(ctx, pid)
	s.ErrorIs(err, apperror.ErrProposalNotFound)
}

func (s *ProposalSuite) TestIndexFailuresDoNotFailWrites() {
	s.index.putErr = errors.New("cluster red")
	_, err := s.f.proposals.Create(context.Background(), s.ana, CreateProposalInput{Titulo: "a", Descripcion: "b"})
	s.NoError(err)
}

func (s *ProposalSuite) TestSearchKeepsHitOrderAndSkipsStaleHits() {
	ctx := context.Background()
	p1 := s.f.proposal(s.T(), s.ana, "Bicisenda")
	p2 := s.f.proposal(s.T(), s.ana, "Bicicleteros")
	s.index.hits = []int64{p2, 9999, p1}

	res, err := s.f.proposals.Search(ctx, "bici", 10)
	s.Require().NoError(err)
	s.Require().Len(res, 2)
	s.Equal(p2, res[0].ID)
	s.Equal(p1, res[1].ID)

	_, err = s.f.proposals.Search(ctx, "  ", 10)
	s.Equal(apperror.KindValidation, apperror.KindOf(err))

	s.index.searchErr = errors.New("timeout")
	_, err = s.f.proposals.Search(ctx, "bici", 10)
	s.ErrorIs(err, apperror.ErrSearchUnavailable)
}

func TestProposalSuite(t *testing.T) {
	suite.Run(t, new(ProposalSuite))
}

func TestSearchWithoutIndexIsUnavailable(t *testing.T) {
	f := newFixture(t)
	_, err := f.proposals.Search(context.Background(), "bici", 10)
	require.ErrorIs(t, err, apperror.ErrSearchUnavailable)
	assert.Equal(t, 500, apperror.HTTPStatus(err))
}
