package nocodb

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/participa-vecinal/participa/internal/domain/entity"
	"github.com/participa-vecinal/participa/internal/domain/repository"
)

// New exposes the NocoDB tables as the domain repositories.
func New(c *Client, t Tables) repository.Store {
	return repository.Store{
		Roll:          &rollRepository{c: c, table: t.Padron},
		Accounts:      &accountRepository{c: c, table: t.Usuarios},
		Proposals:     &proposalRepository{c: c, table: t.Propuestas, votes: t.Votos},
		Votes:         &voteRepository{c: c, table: t.Votos},
		Reports:       &reportRepository{c: c, table: t.Reportes},
		Notifications: &notificationRepository{c: c, table: t.Notificaciones},
	}
}

func (c *Client) first(ctx context.Context, table string, where Where) (Record, error) {
	recs, err := c.List(ctx, table, where, 1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, repository.ErrNotFound
	}
	return recs[0], nil
}

type rollRepository struct {
	c     *Client
	table string
}

func (r *rollRepository) FindByDNI(ctx context.Context, dni string) (*entity.RollEntry, error) {
	rec, err := r.c.first(ctx, r.table, Eq("dni", dni))
	if err != nil {
		return nil, err
	}
	e := toRollEntry(rec)
	return &e, nil
}

type accountRepository struct {
	c     *Client
	table string
}

func (r *accountRepository) Create(ctx context.Context, a *entity.Account) error {
	// The table has no unique index of its own.
	if _, err := r.FindByDNIOrEmail(ctx, a.DNI, a.Email); err == nil {
		return repository.ErrDuplicate
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	fields := accountFields(a)
	fields["createdAt"] = formatTime(now)
	id, err := r.c.Create(ctx, r.table, fields)
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*entity.Account, error) {
	rec, err := r.c.first(ctx, r.table, Eq("Id", id))
	if err != nil {
		return nil, err
	}
	a := toAccount(rec)
	return &a, nil
}

func (r *accountRepository) FindByDNIOrEmail(ctx context.Context, dni, email string) (*entity.Account, error) {
	var w Where
	if dni != "" {
		w = w.Or(Eq("dni", dni))
	}
	if email != "" {
		w = w.Or(Eq("email", strings.ToLower(email)))
	}
	if w.IsZero() {
		return nil, repository.ErrNotFound
	}
	rec, err := r.c.first(ctx, r.table, w)
	if err != nil {
		return nil, err
	}
	a := toAccount(rec)
	return &a, nil
}

func (r *accountRepository) Update(ctx context.Context, a *entity.Account) error {
	a.UpdatedAt = time.Now().UTC()
	return r.c.Update(ctx, r.table, a.ID, accountFields(a))
}

// ConsumeVerificationToken is a read followed by a write. Callers serialize it per token.
func (r *accountRepository) ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (*entity.Account, error) {
	if token == "" {
		return nil, repository.ErrNotFound
	}
	rec, err := r.c.first(ctx, r.table, Eq("verificationToken", token))
	if err != nil {
		return nil, err
	}
	a := toAccount(rec)
	if a.VerificationToken != token || a.VerificationExpiresAt == nil || !a.VerificationExpiresAt.After(now) {
		return nil, repository.ErrNotFound
	}
	a.EmailVerified = true
	a.VerificationToken = ""
	a.VerificationExpiresAt = nil
	if err := r.Update(ctx, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

type proposalRepository struct {
	c     *Client
	table string
	votes string
}

func (r *proposalRepository) Create(ctx context.Context, p *entity.Proposal) error {
	now := time.Now().UTC()
	id, err := r.c.Create(ctx, r.table, map[string]any{
		"titulo":      p.Titulo,
		"descripcion": p.Descripcion,
		"autorId":     p.AutorID,
		"localidad":   p.Localidad,
		"createdAt":   formatTime(now),
		"updatedAt":   formatTime(now),
	})
	if err != nil {
		return err
	}
	p.ID, p.CreatedAt, p.UpdatedAt = id, now, now
	return nil
}

func (r *proposalRepository) GetByID(ctx context.Context, id int64) (*entity.Proposal, error) {
	rec, err := r.c.first(ctx, r.table, Eq("Id", id))
	if err != nil {
		return nil, err
	}
	p := toProposal(rec)
	return &p, nil
}

func (r *proposalRepository) List(ctx context.Context) ([]entity.Proposal, error) {
	return r.list(ctx, Where{})
}

func (r *proposalRepository) ListByAuthor(ctx context.Context, authorID int64) ([]entity.Proposal, error) {
	return r.list(ctx, Eq("autorId", authorID))
}

func (r *proposalRepository) list(ctx context.Context, w Where) ([]entity.Proposal, error) {
	recs, err := r.c.List(ctx, r.table, w, 0)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Proposal, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toProposal(rec))
	}
	return out, nil
}

func (r *proposalRepository) Update(ctx context.Context, p *entity.Proposal) error {
	p.UpdatedAt = time.Now().UTC()
	return r.c.Update(ctx, r.table, p.ID, map[string]any{
		"titulo":      p.Titulo,
		"descripcion": p.Descripcion,
		"updatedAt":   formatTime(p.UpdatedAt),
	})
}

func (r *proposalRepository) Delete(ctx context.Context, id int64) error {
	votes, err := r.c.List(ctx, r.votes, Eq("propuestaId", id), 0)
	if err != nil {
		return err
	}
	for _, v := range votes {
		if err := r.c.Delete(ctx, r.votes, v.ID()); err != nil {
			return err
		}
	}
	return r.c.Delete(ctx, r.table, id)
}

type voteRepository struct {
	c     *Client
	table string
}

func pairWhere(userID, proposalID int64) Where {
	return Eq("usuarioId", userID).And(Eq("propuestaId", proposalID))
}

func (r *voteRepository) Find(ctx context.Context, userID, proposalID int64) (*entity.Vote, error) {
	rec, err := r.c.first(ctx, r.table, pairWhere(userID, proposalID))
	if err != nil {
		return nil, err
	}
	v := toVote(rec)
	return &v, nil
}

func (r *voteRepository) Create(ctx context.Context, v *entity.Vote) error {
	n, err := r.c.Count(ctx, r.table, pairWhere(v.UsuarioID, v.PropuestaID))
	if err != nil {
		return err
	}
	if n > 0 {
		return repository.ErrDuplicate
	}
	now := time.Now().UTC()
	id, err := r.c.Create(ctx, r.table, map[string]any{
		"usuarioId":   v.UsuarioID,
		"propuestaId": v.PropuestaID,
		"valor":       int(v.Valor),
		"createdAt":   formatTime(now),
	})
	if err != nil {
		return err
	}
	v.ID, v.CreatedAt = id, now
	return nil
}

func (r *voteRepository) UpdateValue(ctx context.Context, id int64, valor entity.VoteValue) error {
	return r.c.Update(ctx, r.table, id, map[string]any{"valor": int(valor)})
}

func (r *voteRepository) Delete(ctx context.Context, id int64) error {
	return r.c.Delete(ctx, r.table, id)
}

func (r *voteRepository) ListByProposal(ctx context.Context, proposalID int64) ([]entity.Vote, error) {
	return r.list(ctx, Eq("propuestaId", proposalID))
}

func (r *voteRepository) ListByUser(ctx context.Context, userID int64) ([]entity.Vote, error) {
	return r.list(ctx, Eq("usuarioId", userID))
}

func (r *voteRepository) list(ctx context.Context, w Where) ([]entity.Vote, error) {
	recs, err := r.c.List(ctx, r.table, w, 0)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Vote, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toVote(rec))
	}
	return out, nil
}

type reportRepository struct {
	c     *Client
	table string
}

func (r *reportRepository) Create(ctx context.Context, rep *entity.Report) error {
	now := time.Now().UTC()
	fields := map[string]any{
		"usuarioId":   rep.UsuarioID,
		"propuestaId": rep.PropuestaID,
		"createdAt":   formatTime(now),
	}
	if rep.Motivo != "" {
		fields["motivo"] = rep.Motivo
	}
	id, err := r.c.Create(ctx, r.table, fields)
	if err != nil {
		return err
	}
	rep.ID, rep.CreatedAt = id, now
	return nil
}

func (r *reportRepository) CountByProposal(ctx context.Context, proposalID int64) (int, error) {
	return r.c.Count(ctx, r.table, Eq("propuestaId", proposalID))
}

type notificationRepository struct {
	c     *Client
	table string
}

func (r *notificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	now := time.Now().UTC()
	fields := map[string]any{
		"usuarioId": n.UsuarioID,
		"tipo":      string(n.Tipo),
		"mensaje":   n.Mensaje,
		"leida":     false,
		"createdAt": formatTime(now),
	}
	if n.PropuestaID != nil {
		fields["propuestaId"] = *n.PropuestaID
	}
	id, err := r.c.Create(ctx, r.table, fields)
	if err != nil {
		return err
	}
	n.ID, n.CreatedAt, n.Leida = id, now, false
	return nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id int64) (*entity.Notification, error) {
	rec, err := r.c.first(ctx, r.table, Eq("Id", id))
	if err != nil {
		return nil, err
	}
	n := toNotification(rec)
	return &n, nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, userID int64, onlyUnread bool) ([]entity.Notification, error) {
	recs, err := r.c.List(ctx, r.table, Eq("usuarioId", userID), 0)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Notification, 0, len(recs))
	for _, rec := range recs {
		n := toNotification(rec)
		// unread rows may hold null instead of false, so filter here
		if onlyUnread && n.Leida {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id int64) error {
	return r.c.Update(ctx, r.table, id, map[string]any{"leida": true})
}
