package container

import (
	"github.com/sirupsen/logrus"

	"github.com/participa-vecinal/participa/config"
	"github.com/participa-vecinal/participa/internal/application"
	"github.com/participa-vecinal/participa/internal/domain/repository"
	"github.com/participa-vecinal/participa/internal/infrastructure/lock"
	"github.com/participa-vecinal/participa/pkg/helpers"
	"github.com/participa-vecinal/participa/pkg/metrics"
)

// Infra is what the binary connects before any service exists: the record
// store, the lock, the verification channel and the optional search index.
type Infra struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Metrics *metrics.Metrics
	Store   repository.Store
	Locker  lock.Locker
	Sender  application.VerificationSender
	Index   application.ProposalIndex
}

// Container shares constructed components with the router modules.
type Container struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Metrics *metrics.Metrics

	Creds   *application.Credentials
	Cookies *helpers.Manager

	Registration *application.RegistrationService
	Auth         *application.AuthService
	Proposals    *application.ProposalService
	Voting       *application.VotingService
	Moderation   *application.ModerationService
	Profiles     *application.ProfileService
}

// New wires the application services on top of the given infrastructure.
func New(in Infra) *Container {
	cfg := in.Config
	locker := in.Locker
	if locker == nil {
		locker = lock.NewLocal()
	}

	creds := &application.Credentials{
		Hasher: helpers.NewPasswordHasher(cfg.BcryptCost),
		JWT:    helpers.NewJWTManager(cfg.JWTSecret, cfg.SessionTTL),
		Geofence: helpers.Geofence{
			CenterLat: cfg.GeoCenterLat,
			CenterLng: cfg.GeoCenterLng,
			RadiusKm:  cfg.GeoRadiusKm,
			Enforce:   cfg.GeoEnforce,
		},
		Locker:          locker,
		VerificationTTL: cfg.VerificationTTL,
	}

	proposals := &application.ProposalService{Store: in.Store, Index: in.Index, Logger: in.Logger, Metrics: in.Metrics}
	c := &Container{
		Config:  cfg,
		Logger:  in.Logger,
		Metrics: in.Metrics,
		Creds:   creds,
		Cookies: helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure),
		Registration: &application.RegistrationService{
			Store:           in.Store,
			Creds:           creds,
			Sender:          in.Sender,
			VerificationURL: cfg.VerificationURL,
			Logger:          in.Logger,
			Metrics:         in.Metrics,
		},
		Auth:       &application.AuthService{Store: in.Store, Creds: creds, Logger: in.Logger, Metrics: in.Metrics},
		Proposals:  proposals,
		Voting:     &application.VotingService{Store: in.Store, Locker: locker, Logger: in.Logger, Metrics: in.Metrics},
		Moderation: &application.ModerationService{Store: in.Store, Logger: in.Logger, Metrics: in.Metrics},
		Profiles:   &application.ProfileService{Store: in.Store, Proposals: proposals, Logger: in.Logger},
	}

	helpers.LogInfo(in.Logger, "container ready", logrus.Fields{
		"store":         cfg.StoreBackend,
		"geo_enforce":   cfg.GeoEnforce,
		"search":        in.Index != nil && in.Index.Enabled(),
		"notifications": cfg.NotifyChannel,
	})
	return c
}
