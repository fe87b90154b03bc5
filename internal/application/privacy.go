package application

import (
	"sort"
	"time"

	"github.com/participa-vecinal/participa/internal/domain/entity"
)

const (
	// AnonymousLabel replaces the display name of authors who hide it.
	AnonymousLabel = "Usuario anónimo"
	// UnknownAuthorLabel is shown when the author record cannot be resolved.
	UnknownAuthorLabel = "Usuario desconocido"
)

// AccountView is an account as its owner sees it. It never carries the
// password hash or the verification token.
type AccountView struct {
	ID                   int64     `json:"id"`
	DNI                  string    `json:"dni"`
	Email                string    `json:"email"`
	EmailVerificado      bool      `json:"emailVerificado"`
	PerfilPrivado        bool      `json:"perfilPrivado"`
	MostrarNombrePublico bool      `json:"mostrarNombrePublico"`
	MostrarVotosPublicos bool      `json:"mostrarVotosPublicos"`
	NombreMostrado       string    `json:"nombreMostrado"`
	UltimaLat            *float64  `json:"ultimaLat,omitempty"`
	UltimaLng            *float64  `json:"ultimaLng,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// ProposalView is a proposal enriched with its counts and author label.
type ProposalView struct {
	ID               int64     `json:"id"`
	Titulo           string    `json:"titulo"`
	Descripcion      string    `json:"descripcion"`
	AutorID          int64     `json:"autorId"`
	Localidad        string    `json:"localidad"`
	VotosPositivos   int       `json:"votosPositivos"`
	VotosNegativos   int       `json:"votosNegativos"`
	CantidadReportes int       `json:"cantidadReportes"`
	AutorNombre      string    `json:"autorNombre"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// VoteView is one entry of a vote history with the referenced proposal title.
type VoteView struct {
	ID              int64     `json:"id"`
	PropuestaID     int64     `json:"propuestaId"`
	TituloPropuesta string    `json:"tituloPropuesta"`
	CreatedAt       time.Time `json:"createdAt"`
}

// VoteLists is a vote history partitioned by sign.
type VoteLists struct {
	VotosPositivos []VoteView `json:"votosPositivos"`
	VotosNegativos []VoteView `json:"votosNegativos"`
}

// SelfProfile is what GET /users/me returns.
type SelfProfile struct {
	AccountView
	Propuestas []ProposalView `json:"propuestas"`
	VoteLists
}

// PublicProfile is what another viewer sees. VoteLists is nil unless the
// owner allows it, which drops both lists from the JSON.
type PublicProfile struct {
	ID                   int64          `json:"id"`
	NombreMostrado       string         `json:"nombreMostrado"`
	PerfilPrivado        bool           `json:"perfilPrivado"`
	MostrarNombrePublico bool           `json:"mostrarNombrePublico"`
	MostrarVotosPublicos bool           `json:"mostrarVotosPublicos"`
	CreatedAt            time.Time      `json:"createdAt"`
	Propuestas           []ProposalView `json:"propuestas"`
	*VoteLists
}

// ViewAccount strips secrets from an account.
func ViewAccount(a entity.Account) AccountView {
	return AccountView{
		ID:                   a.ID,
		DNI:                  a.DNI,
		Email:                a.Email,
		EmailVerificado:      a.EmailVerified,
		PerfilPrivado:        a.Privacy.ProfilePrivate,
		MostrarNombrePublico: a.Privacy.ShowPublicName,
		MostrarVotosPublicos: a.Privacy.ShowPublicVotes,
		NombreMostrado:       a.DisplayName,
		UltimaLat:            a.Lat,
		UltimaLng:            a.Lng,
		CreatedAt:            a.CreatedAt,
		UpdatedAt:            a.UpdatedAt,
	}
}

// ProjectSelf builds the owner's view: the full account without secrets, owned
// proposals, and votes partitioned by sign. proposals maps ids to the proposals
// still present; votes on anything else are dropped.
func ProjectSelf(a entity.Account, owned []ProposalView, votes []entity.Vote, proposals map[int64]entity.Proposal) SelfProfile {
	if owned == nil {
		owned = []ProposalView{}
	}
	return SelfProfile{
		AccountView: ViewAccount(a),
		Propuestas:  owned,
		VoteLists:   partitionVotes(votes, proposals),
	}
}

// ProjectForViewer builds the view for anyone other than the owner. The name is
// anonymized unless showPublicName; owned proposals are always included; votes
// only when the profile is public and votes are shown.
func ProjectForViewer(a entity.Account, owned []ProposalView, votes []entity.Vote, proposals map[int64]entity.Proposal) PublicProfile {
	if owned == nil {
		owned = []ProposalView{}
	}
	p := PublicProfile{
		ID:                   a.ID,
		NombreMostrado:       AuthorLabel(&a),
		PerfilPrivado:        a.Privacy.ProfilePrivate,
		MostrarNombrePublico: a.Privacy.ShowPublicName,
		MostrarVotosPublicos: a.Privacy.ShowPublicVotes,
		CreatedAt:            a.CreatedAt,
		Propuestas:           owned,
	}
	if a.Privacy.VotesVisible() {
		lists := partitionVotes(votes, proposals)
		p.VoteLists = &lists
	}
	return p
}

// AuthorLabel is the name shown next to an author's content. A nil author is unknown.
func AuthorLabel(author *entity.Account) string {
	if author == nil {
		return UnknownAuthorLabel
	}
	if author.Privacy.ShowPublicName && author.DisplayName != "" {
		return author.DisplayName
	}
	return AnonymousLabel
}

func partitionVotes(votes []entity.Vote, proposals map[int64]entity.Proposal) VoteLists {
	out := VoteLists{VotosPositivos: []VoteView{}, VotosNegativos: []VoteView{}}
	sorted := append([]entity.Vote(nil), votes...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	for _, v := range sorted {
		p, ok := proposals[v.PropuestaID]
		if !ok {
			continue
		}
		view := VoteView{ID: v.ID, PropuestaID: v.PropuestaID, TituloPropuesta: p.Titulo, CreatedAt: v.CreatedAt}
		switch v.Valor {
		case entity.VoteFor:
			out.VotosPositivos = append(out.VotosPositivos, view)
		case entity.VoteAgainst:
			out.VotosNegativos = append(out.VotosNegativos, view)
		}
	}
	return out
}
