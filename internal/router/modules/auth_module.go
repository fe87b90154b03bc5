package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/participa-vecinal/participa/internal/interface/http"
	"github.com/participa-vecinal/participa/internal/interface/middleware"
)

// AuthModule wires registration, login and email verification.
// Public: POST /api/auth/register, POST /api/auth/login, POST /api/auth/logout,
// GET /api/auth/verify-email
// Protected: GET /api/auth/me
type AuthModule struct {
	Handler  *handlers.AuthHandler
	Sessions middleware.SessionVerifier
}

func NewAuthModule(h *handlers.AuthHandler, sessions middleware.SessionVerifier) *AuthModule {
	return &AuthModule{Handler: h, Sessions: sessions}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/auth")
	g.POST("/register", m.Handler.Register)
	g.POST("/login", m.Handler.Login)
	g.POST("/logout", m.Handler.Logout)
	g.GET("/verify-email", m.Handler.VerifyEmail)
	g.POST("/verify-email", m.Handler.VerifyEmail)

	g.GET("/me", middleware.Auth(m.Sessions), m.Handler.Me)
}
