package entity

import (
	"time"
)

// Account is a registered participant.
// PasswordHash is a bcrypt hash and never leaves the process.
// VerificationToken and VerificationExpiresAt are set only while the email is unverified.
type Account struct {
	ID                    int64
	DNI                   string
	Email                 string
	PasswordHash          string
	EmailVerified         bool
	Privacy               PrivacySettings
	DisplayName           string
	Lat                   *float64
	Lng                   *float64
	VerificationToken     string
	VerificationExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// PrivacySettings controls what other viewers see of an account.
type PrivacySettings struct {
	ProfilePrivate  bool `json:"profilePrivate"`
	ShowPublicName  bool `json:"showPublicName"`
	ShowPublicVotes bool `json:"showPublicVotes"`
}

// VotesVisible reports whether vote history may be shown to non-self viewers.
// Both flags must agree.
func (p PrivacySettings) VotesVisible() bool {
	return !p.ProfilePrivate && p.ShowPublicVotes
}
