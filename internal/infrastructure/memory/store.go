// Package memory implements every repository on mutex-guarded maps.
// It enforces the same uniqueness rules as the SQL schema.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/participa-vecinal/participa/internal/domain/entity"
	"github.com/participa-vecinal/participa/internal/domain/repository"
)

type pairKey struct {
	user     int64
	proposal int64
}

// Store holds all collections in memory.
type Store struct {
	mu sync.RWMutex

	nextID        int64
	roll          map[string]entity.RollEntry
	accounts      map[int64]entity.Account
	proposals     map[int64]entity.Proposal
	votes         map[int64]entity.Vote
	votesByPair   map[pairKey]int64
	reports       map[int64]entity.Report
	notifications map[int64]entity.Notification
}

func New() *Store {
	return &Store{
		roll:          make(map[string]entity.RollEntry),
		accounts:      make(map[int64]entity.Account),
		proposals:     make(map[int64]entity.Proposal),
		votes:         make(map[int64]entity.Vote),
		votesByPair:   make(map[pairKey]int64),
		reports:       make(map[int64]entity.Report),
		notifications: make(map[int64]entity.Notification),
	}
}

// Repositories exposes the store as the six repository interfaces.
func (s *Store) Repositories() repository.Store {
	return repository.Store{
		Roll:          rollRepo{s},
		Accounts:      accountRepo{s},
		Proposals:     proposalRepo{s},
		Votes:         voteRepo{s},
		Reports:       reportRepo{s},
		Notifications: notificationRepo{s},
	}
}

// SeedRoll adds electoral roll entries. The roll is otherwise read-only.
func (s *Store) SeedRoll(entries ...entity.RollEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.nextID++
		e.ID = s.nextID
		s.roll[e.DNI] = e
	}
}

// VoteCount returns the number of stored votes for a pair.
func (s *Store) VoteCount(userID, proposalID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, v := range s.votes {
		if v.UsuarioID == userID && v.PropuestaID == proposalID {
			n++
		}
	}
	return n
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

type rollRepo struct{ s *Store }

func (r rollRepo) FindByDNI(_ context.Context, dni string) (*entity.RollEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.roll[dni]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

type accountRepo struct{ s *Store }

func (r accountRepo) Create(_ context.Context, a *entity.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.accounts {
		if existing.DNI == a.DNI || strings.EqualFold(existing.Email, a.Email) {
			return repository.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	a.ID = r.s.id()
	a.CreatedAt = now
	a.UpdatedAt = now
	r.s.accounts[a.ID] = *a
	return nil
}

func (r accountRepo) GetByID(_ context.Context, id int64) (*entity.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r accountRepo) FindByDNIOrEmail(_ context.Context, dni, email string) (*entity.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, id := range sortedKeys(r.s.accounts) {
		a := r.s.accounts[id]
		if (dni != "" && a.DNI == dni) || (email != "" && strings.EqualFold(a.Email, email)) {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r accountRepo) Update(_ context.Context, a *entity.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.accounts[a.ID]; !ok {
		return repository.ErrNotFound
	}
	a.UpdatedAt = time.Now().UTC()
	r.s.accounts[a.ID] = *a
	return nil
}

func (r accountRepo) ConsumeVerificationToken(_ context.Context, token string, now time.Time) (*entity.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if token == "" {
		return nil, repository.ErrNotFound
	}
	for id, a := range r.s.accounts {
		if a.VerificationToken != token || a.VerificationExpiresAt == nil || !a.VerificationExpiresAt.After(now) {
			continue
		}
		a.EmailVerified = true
		a.VerificationToken = ""
		a.VerificationExpiresAt = nil
		a.UpdatedAt = now
		r.s.accounts[id] = a
		return &a, nil
	}
	return nil, repository.ErrNotFound
}

type proposalRepo struct{ s *Store }

func (r proposalRepo) Create(_ context.Context, p *entity.Proposal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	p.ID = r.s.id()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.s.proposals[p.ID] = *p
	return nil
}

func (r proposalRepo) GetByID(_ context.Context, id int64) (*entity.Proposal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.proposals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r proposalRepo) List(_ context.Context) ([]entity.Proposal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]entity.Proposal, 0, len(r.s.proposals))
	for _, id := range sortedKeys(r.s.proposals) {
		out = append(out, r.s.proposals[id])
	}
	return out, nil
}

func (r proposalRepo) ListByAuthor(ctx context.Context, authorID int64) ([]entity.Proposal, error) {
	all, _ := r.List(ctx)
	out := make([]entity.Proposal, 0)
	for _, p := range all {
		if p.AutorID == authorID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r proposalRepo) Update(_ context.Context, p *entity.Proposal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.proposals[p.ID]; !ok {
		return repository.ErrNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	r.s.proposals[p.ID] = *p
	return nil
}

func (r proposalRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.proposals[id]; !ok {
		return repository.ErrNotFound
	}
	for vid, v := range r.s.votes {
		if v.PropuestaID == id {
			delete(r.s.votes, vid)
			delete(r.s.votesByPair, pairKey{v.UsuarioID, v.PropuestaID})
		}
	}
	delete(r.s.proposals, id)
	return nil
}

type voteRepo struct{ s *Store }

func (r voteRepo) Find(_ context.Context, userID, proposalID int64) (*entity.Vote, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.votesByPair[pairKey{userID, proposalID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	v := r.s.votes[id]
	return &v, nil
}

func (r voteRepo) Create(_ context.Context, v *entity.Vote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := pairKey{v.UsuarioID, v.PropuestaID}
	if _, exists := r.s.votesByPair[key]; exists {
		return repository.ErrDuplicate
	}
	v.ID = r.s.id()
	v.CreatedAt = time.Now().UTC()
	r.s.votes[v.ID] = *v
	r.s.votesByPair[key] = v.ID
	return nil
}

func (r voteRepo) UpdateValue(_ context.Context, id int64, valor entity.VoteValue) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.votes[id]
	if !ok {
		return repository.ErrNotFound
	}
	v.Valor = valor
	r.s.votes[id] = v
	return nil
}

func (r voteRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.votes[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(r.s.votes, id)
	delete(r.s.votesByPair, pairKey{v.UsuarioID, v.PropuestaID})
	return nil
}

func (r voteRepo) ListByProposal(_ context.Context, proposalID int64) ([]entity.Vote, error) {
	return r.filter(func(v entity.Vote) bool { return v.PropuestaID == proposalID }), nil
}

func (r voteRepo) ListByUser(_ context.Context, userID int64) ([]entity.Vote, error) {
	return r.filter(func(v entity.Vote) bool { return v.UsuarioID == userID }), nil
}

func (r voteRepo) filter(keep func(entity.Vote) bool) []entity.Vote {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]entity.Vote, 0)
	for _, id := range sortedKeys(r.s.votes) {
		if v := r.s.votes[id]; keep(v) {
			out = append(out, v)
		}
	}
	return out
}

type reportRepo struct{ s *Store }

func (r reportRepo) Create(_ context.Context, rep *entity.Report) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rep.ID = r.s.id()
	rep.CreatedAt = time.Now().UTC()
	r.s.reports[rep.ID] = *rep
	return nil
}

func (r reportRepo) CountByProposal(_ context.Context, proposalID int64) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, rep := range r.s.reports {
		if rep.PropuestaID == proposalID {
			n++
		}
	}
	return n, nil
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(_ context.Context, n *entity.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n.ID = r.s.id()
	n.CreatedAt = time.Now().UTC()
	r.s.notifications[n.ID] = *n
	return nil
}

func (r notificationRepo) GetByID(_ context.Context, id int64) (*entity.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n, ok := r.s.notifications[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &n, nil
}

func (r notificationRepo) ListByRecipient(_ context.Context, userID int64, onlyUnread bool) ([]entity.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]entity.Notification, 0)
	for _, id := range sortedKeys(r.s.notifications) {
		n := r.s.notifications[id]
		if n.UsuarioID != userID || (onlyUnread && n.Leida) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (r notificationRepo) MarkRead(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok {
		return repository.ErrNotFound
	}
	n.Leida = true
	r.s.notifications[id] = n
	return nil
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
