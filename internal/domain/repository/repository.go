package repository

import (
	"context"
	"errors"
	"time"

	"github.com/participa-vecinal/participa/internal/domain/entity"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write would violate a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// RollRepository reads the electoral roll.
type RollRepository interface {
	FindByDNI(ctx context.Context, dni string) (*entity.RollEntry, error)
}

// AccountRepository defines persistence for registered accounts.
type AccountRepository interface {
	Create(ctx context.Context, a *entity.Account) error
	GetByID(ctx context.Context, id int64) (*entity.Account, error)
	// FindByDNIOrEmail returns the first account matching dni or email. Empty arguments are ignored.
	FindByDNIOrEmail(ctx context.Context, dni, email string) (*entity.Account, error)
	Update(ctx context.Context, a *entity.Account) error
	// ConsumeVerificationToken marks the account owning an unexpired token as verified and clears
	// the token in one step. Returns ErrNotFound when no unexpired account holds the token.
	ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (*entity.Account, error)
}

type ProposalRepository interface {
	Create(ctx context.Context, p *entity.Proposal) error
	GetByID(ctx context.Context, id int64) (*entity.Proposal, error)
	List(ctx context.Context) ([]entity.Proposal, error)
	ListByAuthor(ctx context.Context, authorID int64) ([]entity.Proposal, error)
	Update(ctx context.Context, p *entity.Proposal) error
	// Delete removes the proposal together with its votes.
	Delete(ctx context.Context, id int64) error
}

type VoteRepository interface {
	Find(ctx context.Context, userID, proposalID int64) (*entity.Vote, error)
	// Create returns ErrDuplicate when a vote already exists for the (user, proposal) pair.
	Create(ctx context.Context, v *entity.Vote) error
	UpdateValue(ctx context.Context, id int64, valor entity.VoteValue) error
	Delete(ctx context.Context, id int64) error
	ListByProposal(ctx context.Context, proposalID int64) ([]entity.Vote, error)
	ListByUser(ctx context.Context, userID int64) ([]entity.Vote, error)
}

type ReportRepository interface {
	Create(ctx context.Context, r *entity.Report) error
	CountByProposal(ctx context.Context, proposalID int64) (int, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	GetByID(ctx context.Context, id int64) (*entity.Notification, error)
	ListByRecipient(ctx context.Context, userID int64, onlyUnread bool) ([]entity.Notification, error)
	MarkRead(ctx context.Context, id int64) error
}

// Store groups the six collections behind one backend.
type Store struct {
	Roll          RollRepository
	Accounts      AccountRepository
	Proposals     ProposalRepository
	Votes         VoteRepository
	Reports       ReportRepository
	Notifications NotificationRepository
}
