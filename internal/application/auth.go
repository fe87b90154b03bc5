package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/participa-vecinal/participa/internal/domain/entity"
	"github.com/participa-vecinal/participa/internal/domain/repository"
	"github.com/participa-vecinal/participa/pkg/apperror"
	"github.com/participa-vecinal/participa/pkg/metrics"
)

type AuthService struct {
	Store   repository.Store
	Creds   *Credentials
	Logger  *logrus.Logger
	Metrics *metrics.Metrics
}

// Session is a signed token ready to be set as the session cookie.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// Login accepts a dni or an email. Unknown accounts and wrong passwords are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, dniOrEmail, password string) (*entity.Account, *Session, error) {
	ident := strings.TrimSpace(dniOrEmail)
	var dni, email string
	if strings.Contains(ident, "@") {
		email = strings.ToLower(ident)
	} else {
		dni = entity.NormalizeDNI(ident)
	}
	if dni == "" && email == "" {
		s.Metrics.IncLogin("invalid_credentials")
		return nil, nil, apperror.ErrInvalidCredentials
	}

	acc, err := s.Store.Accounts.FindByDNIOrEmail(ctx, dni, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.Metrics.IncLogin("invalid_credentials")
			return nil, nil, apperror.ErrInvalidCredentials
		}
		return nil, nil, apperror.Upstream("account lookup", err)
	}
	if !s.Creds.Hasher.Verify(password, acc.PasswordHash) {
		s.Metrics.IncLogin("invalid_credentials")
		return nil, nil, apperror.ErrInvalidCredentials
	}
	if !acc.EmailVerified {
		s.Metrics.IncLogin("unverified")
		return nil, nil, apperror.ErrEmailNotVerified
	}

	token, exp, err := s.Creds.IssueSession(acc)
	if err != nil {
		return nil, nil, apperror.Upstream("issue session", err)
	}
	s.Metrics.IncLogin("ok")
	return acc, &Session{Token: token, ExpiresAt: exp}, nil
}

// VerifyEmail consumes a verification token. A token verifies at most one
// account exactly once.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*entity.Account, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		s.Metrics.IncEmailVerification("invalid")
		return nil, apperror.ErrTokenInvalidOrExpired
	}

	release, err := s.Creds.Locker.Lock(ctx, "verify:"+token)
	if err != nil {
		return nil, apperror.Upstream("lock verification token", err)
	}
	defer release()

	acc, err := s.Store.Accounts.ConsumeVerificationToken(ctx, token, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.Metrics.IncEmailVerification("invalid")
			return nil, apperror.ErrTokenInvalidOrExpired
		}
		return nil, apperror.Upstream("consume verification token", err)
	}
	s.Metrics.IncEmailVerification("verified")
	s.Logger.WithField("usuario_id", acc.ID).Info("email verified")
	return acc, nil
}
