package application

import (
	"time"

	"github.com/participa-vecinal/participa/internal/domain/entity"
	"github.com/participa-vecinal/participa/internal/infrastructure/lock"
	"github.com/participa-vecinal/participa/pkg/apperror"
	"github.com/participa-vecinal/participa/pkg/helpers"
)

// Credentials bundles password hashing, session signing, the registration
// geofence and the lock used to serialize read-then-write sequences.
type Credentials struct {
	Hasher          helpers.PasswordHasher
	JWT             *helpers.JWTManager
	Geofence        helpers.Geofence
	Locker          lock.Locker
	VerificationTTL time.Duration
}

// IssueSession signs a session token for a verified account.
func (c *Credentials) IssueSession(a *entity.Account) (string, time.Time, error) {
	return c.JWT.Generate(helpers.Claims{
		UsuarioID:       a.ID,
		DNI:             a.DNI,
		ProfilePrivate:  a.Privacy.ProfilePrivate,
		ShowPublicName:  a.Privacy.ShowPublicName,
		ShowPublicVotes: a.Privacy.ShowPublicVotes,
	})
}

// VerifySession checks signature and expiry only. It does not consult the store.
func (c *Credentials) VerifySession(token string) (*helpers.Claims, error) {
	if token == "" {
		return nil, apperror.ErrUnauthorized
	}
	claims, err := c.JWT.Parse(token)
	if err != nil || claims.UsuarioID <= 0 {
		return nil, apperror.ErrUnauthorized
	}
	return claims, nil
}

func (c *Credentials) verificationToken() (string, time.Time, error) {
	ttl := c.VerificationTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return helpers.NewVerificationToken(ttl)
}
