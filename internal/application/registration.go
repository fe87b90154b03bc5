package application

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/participa-vecinal/participa/internal/domain/entity"
	"github.com/participa-vecinal/participa/internal/domain/repository"
	"github.com/participa-vecinal/participa/internal/infrastructure/notifier"
	"github.com/participa-vecinal/participa/pkg/apperror"
	"github.com/participa-vecinal/participa/pkg/metrics"
)

// VerificationSender delivers the verification link. It never reports failure.
type VerificationSender interface {
	SendVerification(ctx context.Context, v notifier.Verification)
}

// RegistrationMessage tells a new user what to do next.
const RegistrationMessage = "Te enviamos un email con un enlace para verificar tu cuenta. Revisá tu correo."

type RegisterInput struct {
	DNI      string
	Email    string
	Password string
	Privacy  entity.PrivacySettings
	Lat      float64
	Lng      float64
	IP       string
}

type RegistrationResult struct {
	Account AccountView
	Message string
}

type RegistrationService struct {
	Store           repository.Store
	Creds           *Credentials
	Sender          VerificationSender
	VerificationURL func(token string) string
	Logger          *logrus.Logger
	Metrics         *metrics.Metrics
}

// Register admits a resident through the ordered gates: dni normalization,
// geofence, roll lookup, duplicate check, then persistence of an unverified
// account and a best-effort verification dispatch.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (*RegistrationResult, error) {
	defer s.Metrics.ObserveOperation("register", time.Now())

	dni := entity.NormalizeDNI(in.DNI)
	if dni == "" {
		s.Metrics.IncRegistration("invalid")
		return nil, apperror.Validation("invalid_dni", "invalid dni", map[string]string{"dni": "must contain digits"})
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if math.IsNaN(in.Lat) || math.IsNaN(in.Lng) || !s.Creds.Geofence.Allows(in.Lat, in.Lng) {
		s.Metrics.IncRegistration("location_rejected")
		return nil, apperror.ErrLocationNotAllowed
	}

	roll, err := s.Store.Roll.FindByDNI(ctx, dni)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.Metrics.IncRegistration("not_in_roll")
		}
		return nil, notFoundOr("roll lookup", err, apperror.ErrRollEntryNotFound)
	}

	// dni before email, always, so two registrations never wait on each other crosswise
	for _, key := range []string{"register:dni:" + dni, "register:email:" + email} {
		release, err := s.Creds.Locker.Lock(ctx, key)
		if err != nil {
			return nil, apperror.Upstream("lock registration", err)
		}
		defer release()
	}

	existing, err := s.Store.Accounts.FindByDNIOrEmail(ctx, dni, email)
	switch {
	case err == nil && existing != nil:
		s.Metrics.IncRegistration("duplicate")
		return nil, apperror.ErrAccountAlreadyExists
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return nil, apperror.Upstream("account lookup", err)
	}

	hash, err := s.Creds.Hasher.Hash(in.Password)
	if err != nil {
		return nil, apperror.Upstream("hash password", err)
	}
	token, expires, err := s.Creds.verificationToken()
	if err != nil {
		return nil, apperror.Upstream("verification token", err)
	}
	lat, lng := in.Lat, in.Lng
	acc := &entity.Account{
		DNI:                   dni,
		Email:                 email,
		PasswordHash:          hash,
		Privacy:               in.Privacy,
		DisplayName:           roll.DisplayName(),
		Lat:                   &lat,
		Lng:                   &lng,
		VerificationToken:     token,
		VerificationExpiresAt: &expires,
	}
	if err := s.Store.Accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.Metrics.IncRegistration("duplicate")
			return nil, apperror.ErrAccountAlreadyExists
		}
		return nil, apperror.Upstream("create account", err)
	}
	s.Metrics.IncRegistration("created")
	s.Logger.WithFields(logrus.Fields{"usuario_id": acc.ID, "localidad": roll.Localidad}).Info("account registered")

	if s.Sender != nil {
		s.Sender.SendVerification(ctx, notifier.Verification{
			Email:     acc.Email,
			Nombre:    acc.DisplayName,
			URL:       s.VerificationURL(token),
			ExpiresAt: expires,
			IP:        in.IP,
		})
	}

	return &RegistrationResult{Account: ViewAccount(*acc), Message: RegistrationMessage}, nil
}
