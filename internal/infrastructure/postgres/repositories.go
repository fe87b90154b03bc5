package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/participa-vecinal/participa/internal/domain/entity"
	"github.com/participa-vecinal/participa/internal/domain/repository"
)

const uniqueViolation = "23505"

// New returns the six repositories backed by pool.
func New(pool *pgxpool.Pool) repository.Store {
	return repository.Store{
		Roll:          &RollRepository{pool: pool},
		Accounts:      &AccountRepository{pool: pool},
		Proposals:     &ProposalRepository{pool: pool},
		Votes:         &VoteRepository{pool: pool},
		Reports:       &ReportRepository{pool: pool},
		Notifications: &NotificationRepository{pool: pool},
	}
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return repository.ErrDuplicate
	}
	return err
}

func affected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type RollRepository struct {
	pool *pgxpool.Pool
}

func NewRollRepository(pool *pgxpool.Pool) *RollRepository { return &RollRepository{pool: pool} }

func (r *RollRepository) FindByDNI(ctx context.Context, dni string) (*entity.RollEntry, error) {
	e := &entity.RollEntry{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, dni, nombre, apellido, localidad
		FROM padron
		WHERE dni = $1
	`, dni).Scan(&e.ID, &e.DNI, &e.Nombre, &e.Apellido, &e.Localidad)
	if err != nil {
		return nil, mapErr(err)
	}
	return e, nil
}

// Upsert inserts or refreshes a roll entry by dni. Used by the seed command.
func (r *RollRepository) Upsert(ctx context.Context, e *entity.RollEntry) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO padron (dni, nombre, apellido, localidad)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (dni) DO UPDATE
		SET nombre = EXCLUDED.nombre, apellido = EXCLUDED.apellido, localidad = EXCLUDED.localidad
		RETURNING id
	`, e.DNI, e.Nombre, e.Apellido, e.Localidad).Scan(&e.ID)
}

type AccountRepository struct {
	pool *pgxpool.Pool
}

const accountColumns = `id, dni, email, password_hash, email_verificado, perfil_privado,
	mostrar_nombre_publico, mostrar_votos_publicos, nombre_mostrado, ultima_lat, ultima_lng,
	verification_token, verification_expires, created_at, updated_at`

func scanAccount(row pgx.Row) (*entity.Account, error) {
	a := &entity.Account{}
	var token *string
	err := row.Scan(&a.ID, &a.DNI, &a.Email, &a.PasswordHash, &a.EmailVerified,
		&a.Privacy.ProfilePrivate, &a.Privacy.ShowPublicName, &a.Privacy.ShowPublicVotes,
		&a.DisplayName, &a.Lat, &a.Lng, &token, &a.VerificationExpiresAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	if token != nil {
		a.VerificationToken = *token
	}
	return a, nil
}

func (r *AccountRepository) Create(ctx context.Context, a *entity.Account) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO usuarios (dni, email, password_hash, email_verificado, perfil_privado,
			mostrar_nombre_publico, mostrar_votos_publicos, nombre_mostrado, ultima_lat, ultima_lng,
			verification_token, verification_expires)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`, a.DNI, a.Email, a.PasswordHash, a.EmailVerified, a.Privacy.ProfilePrivate,
		a.Privacy.ShowPublicName, a.Privacy.ShowPublicVotes, a.DisplayName, a.Lat, a.Lng,
		nullString(a.VerificationToken), a.VerificationExpiresAt)
	return mapErr(row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt))
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*entity.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM usuarios WHERE id = $1`, id))
}

func (r *AccountRepository) FindByDNIOrEmail(ctx context.Context, dni, email string) (*entity.Account, error) {
	if dni == "" && email == "" {
		return nil, repository.ErrNotFound
	}
	return scanAccount(r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM usuarios
		WHERE ($1 <> '' AND dni = $1) OR ($2 <> '' AND LOWER(email) = LOWER($2))
		ORDER BY id
		LIMIT 1
	`, dni, strings.TrimSpace(email)))
}

func (r *AccountRepository) Update(ctx context.Context, a *entity.Account) error {
	a.UpdatedAt = time.Now().UTC()
	return affected(r.pool.Exec(ctx, `
		UPDATE usuarios
		SET email = $1, password_hash = $2, email_verificado = $3, perfil_privado = $4,
			mostrar_nombre_publico = $5, mostrar_votos_publicos = $6, nombre_mostrado = $7,
			ultima_lat = $8, ultima_lng = $9, verification_token = $10, verification_expires = $11,
			updated_at = $12
		WHERE id = $13
	`, a.Email, a.PasswordHash, a.EmailVerified, a.Privacy.ProfilePrivate, a.Privacy.ShowPublicName,
		a.Privacy.ShowPublicVotes, a.DisplayName, a.Lat, a.Lng, nullString(a.VerificationToken),
		a.VerificationExpiresAt, a.UpdatedAt, a.ID))
}

// ConsumeVerificationToken verifies and clears the token in a single statement.
func (r *AccountRepository) ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (*entity.Account, error) {
	if token == "" {
		return nil, repository.ErrNotFound
	}
	return scanAccount(r.pool.QueryRow(ctx, `
		UPDATE usuarios
		SET email_verificado = TRUE, verification_token = NULL, verification_expires = NULL, updated_at = $2
		WHERE verification_token = $1 AND verification_expires > $2
		RETURNING `+accountColumns, token, now))
}

type ProposalRepository struct {
	pool *pgxpool.Pool
}

const proposalColumns = `id, titulo, descripcion, autor_id, localidad, created_at, updated_at`

func scanProposal(row pgx.Row) (entity.Proposal, error) {
	var p entity.Proposal
	err := row.Scan(&p.ID, &p.Titulo, &p.Descripcion, &p.AutorID, &p.Localidad, &p.CreatedAt, &p.UpdatedAt)
	return p, mapErr(err)
}

func (r *ProposalRepository) Create(ctx context.Context, p *entity.Proposal) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO propuestas (titulo, descripcion, autor_id, localidad)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, p.Titulo, p.Descripcion, p.AutorID, p.Localidad)
	return mapErr(row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt))
}

func (r *ProposalRepository) GetByID(ctx context.Context, id int64) (*entity.Proposal, error) {
	p, err := scanProposal(r.pool.QueryRow(ctx, `SELECT `+proposalColumns+` FROM propuestas WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProposalRepository) List(ctx context.Context) ([]entity.Proposal, error) {
	return r.query(ctx, `SELECT `+proposalColumns+` FROM propuestas ORDER BY id`)
}

func (r *ProposalRepository) ListByAuthor(ctx context.Context, authorID int64) ([]entity.Proposal, error) {
	return r.query(ctx, `SELECT `+proposalColumns+` FROM propuestas WHERE autor_id = $1 ORDER BY id`, authorID)
}

func (r *ProposalRepository) query(ctx context.Context, sql string, args ...any) ([]entity.Proposal, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]entity.Proposal, 0)
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProposalRepository) Update(ctx context.Context, p *entity.Proposal) error {
	p.UpdatedAt = time.Now().UTC()
	return affected(r.pool.Exec(ctx, `
		UPDATE propuestas SET titulo = $1, descripcion = $2, updated_at = $3 WHERE id = $4
	`, p.Titulo, p.Descripcion, p.UpdatedAt, p.ID))
}

// Delete relies on ON DELETE CASCADE to drop the proposal's votes and reports.
func (r *ProposalRepository) Delete(ctx context.Context, id int64) error {
	return affected(r.pool.Exec(ctx, `DELETE FROM propuestas WHERE id = $1`, id))
}

type VoteRepository struct {
	pool *pgxpool.Pool
}

const voteColumns = `id, usuario_id, propuesta_id, valor, created_at`

func scanVote(row pgx.Row) (entity.Vote, error) {
	var v entity.Vote
	var valor int16
	err := row.Scan(&v.ID, &v.UsuarioID, &v.PropuestaID, &valor, &v.CreatedAt)
	v.Valor = entity.VoteValue(valor)
	return v, mapErr(err)
}

func (r *VoteRepository) Find(ctx context.Context, userID, proposalID int64) (*entity.Vote, error) {
	v, err := scanVote(r.pool.QueryRow(ctx,
		`SELECT `+voteColumns+` FROM votos WHERE usuario_id = $1 AND propuesta_id = $2`, userID, proposalID))
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VoteRepository) Create(ctx context.Context, v *entity.Vote) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO votos (usuario_id, propuesta_id, valor)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, v.UsuarioID, v.PropuestaID, int16(v.Valor))
	return mapErr(row.Scan(&v.ID, &v.CreatedAt))
}

func (r *VoteRepository) UpdateValue(ctx context.Context, id int64, valor entity.VoteValue) error {
	return affected(r.pool.Exec(ctx, `UPDATE votos SET valor = $1 WHERE id = $2`, int16(valor), id))
}

func (r *VoteRepository) Delete(ctx context.Context, id int64) error {
	return affected(r.pool.Exec(ctx, `DELETE FROM votos WHERE id = $1`, id))
}

func (r *VoteRepository) ListByProposal(ctx context.Context, proposalID int64) ([]entity.Vote, error) {
	return r.query(ctx, `SELECT `+voteColumns+` FROM votos WHERE propuesta_id = $1 ORDER BY id`, proposalID)
}

func (r *VoteRepository) ListByUser(ctx context.Context, userID int64) ([]entity.Vote, error) {
	return r.query(ctx, `SELECT `+voteColumns+` FROM votos WHERE usuario_id = $1 ORDER BY id`, userID)
}

func (r *VoteRepository) query(ctx context.Context, sql string, args ...any) ([]entity.Vote, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]entity.Vote, 0)
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type ReportRepository struct {
	pool *pgxpool.Pool
}

func (r *ReportRepository) Create(ctx context.Context, rep *entity.Report) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO reportes (usuario_id, propuesta_id, motivo)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, rep.UsuarioID, rep.PropuestaID, nullString(rep.Motivo))
	return mapErr(row.Scan(&rep.ID, &rep.CreatedAt))
}

func (r *ReportRepository) CountByProposal(ctx context.Context, proposalID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reportes WHERE propuesta_id = $1`, proposalID).Scan(&n)
	return n, mapErr(err)
}

type NotificationRepository struct {
	pool *pgxpool.Pool
}

const notificationColumns = `id, usuario_id, propuesta_id, tipo, mensaje, leida, created_at`

func scanNotification(row pgx.Row) (entity.Notification, error) {
	var n entity.Notification
	var tipo string
	err := row.Scan(&n.ID, &n.UsuarioID, &n.PropuestaID, &tipo, &n.Mensaje, &n.Leida, &n.CreatedAt)
	n.Tipo = entity.NotificationType(tipo)
	return n, mapErr(err)
}

func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO notificaciones (usuario_id, propuesta_id, tipo, mensaje)
		VALUES ($1, $2, $3, $4)
		RETURNING id, leida, created_at
	`, n.UsuarioID, n.PropuestaID, string(n.Tipo), n.Mensaje)
	return mapErr(row.Scan(&n.ID, &n.Leida, &n.CreatedAt))
}

func (r *NotificationRepository) GetByID(ctx context.Context, id int64) (*entity.Notification, error) {
	n, err := scanNotification(r.pool.QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM notificaciones WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepository) ListByRecipient(ctx context.Context, userID int64, onlyUnread bool) ([]entity.Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notificaciones
		WHERE usuario_id = $1 AND (NOT $2 OR leida = FALSE)
		ORDER BY created_at DESC, id DESC
	`, userID, onlyUnread)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]entity.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id int64) error {
	return affected(r.pool.Exec(ctx, `UPDATE notificaciones SET leida = TRUE WHERE id = $1`, id))
}

var (
	_ repository.RollRepository         = (*RollRepository)(nil)
	_ repository.AccountRepository      = (*AccountRepository)(nil)
	_ repository.ProposalRepository     = (*ProposalRepository)(nil)
	_ repository.VoteRepository         = (*VoteRepository)(nil)
	_ repository.ReportRepository       = (*ReportRepository)(nil)
	_ repository.NotificationRepository = (*NotificationRepository)(nil)
)
