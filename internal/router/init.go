package router

import (
	"github.com/participa-vecinal/participa/internal/container"
	handlers "github.com/participa-vecinal/participa/internal/interface/http"
	"github.com/participa-vecinal/participa/internal/router/modules"
)

type moduleHandlers struct {
	Auth          *handlers.AuthHandler
	Users         *handlers.UserHandler
	Proposals     *handlers.ProposalHandler
	Notifications *handlers.NotificationHandler
}

func buildHandlers(c *container.Container) moduleHandlers {
	return moduleHandlers{
		Auth:          handlers.NewAuthHandler(c.Registration, c.Auth, c.Cookies, c.Logger),
		Users:         handlers.NewUserHandler(c.Profiles, c.Creds, c.Cookies, c.Logger),
		Proposals:     handlers.NewProposalHandler(c.Proposals, c.Voting, c.Moderation, c.Logger),
		Notifications: handlers.NewNotificationHandler(c.Moderation, c.Logger),
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry, c *container.Container) {
	h := buildHandlers(c)
	r.Add(modules.NewAuthModule(h.Auth, c.Creds))
	r.Add(modules.NewUserModule(h.Users, c.Creds))
	r.Add(modules.NewProposalModule(h.Proposals, c.Creds))
	r.Add(modules.NewNotificationModule(h.Notifications, c.Creds))
	if c.Config.MetricsEnabled && c.Metrics != nil {
		r.Add(modules.NewMetricsModule(c.Metrics))
	}
}
