package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/participa-vecinal/participa/internal/interface/http"
	"github.com/participa-vecinal/participa/internal/interface/middleware"
)

type NotificationModule struct {
	Handler  *handlers.NotificationHandler
	Sessions middleware.SessionVerifier
}

func NewNotificationModule(h *handlers.NotificationHandler, sessions middleware.SessionVerifier) *NotificationModule {
	return &NotificationModule{Handler: h, Sessions: sessions}
}

func (m *NotificationModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/notifications")
	g.Use(middleware.Auth(m.Sessions))
	g.GET("", m.Handler.List)
	g.POST("/:id/read", m.Handler.MarkRead)
}
