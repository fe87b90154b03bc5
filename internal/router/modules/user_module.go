package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/participa-vecinal/participa/internal/interface/http"
	"github.com/participa-vecinal/participa/internal/interface/middleware"
)

// UserModule wires profile routes.
// Protected: GET /api/users/me, PATCH /api/users/me
// Optional session: GET /api/users/:id
type UserModule struct {
	Handler  *handlers.UserHandler
	Sessions middleware.SessionVerifier
}

func NewUserModule(h *handlers.UserHandler, sessions middleware.SessionVerifier) *UserModule {
	return &UserModule{Handler: h, Sessions: sessions}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/users")
	g.GET("/:id", middleware.OptionalAuth(m.Sessions), m.Handler.Get)

	auth := g.Group("")
	auth.Use(middleware.Auth(m.Sessions))
	{
		auth.GET("/me", m.Handler.Me)
		auth.PATCH("/me", m.Handler.UpdateMe)
	}
}
