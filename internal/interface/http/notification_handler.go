package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/participa-vecinal/participa/internal/application"
	"github.com/participa-vecinal/participa/internal/interface/middleware"
	"github.com/participa-vecinal/participa/pkg/response"
)

type NotificationHandler struct {
	Moderation *application.ModerationService
	Logger     *logrus.Logger
}

func NewNotificationHandler(m *application.ModerationService, logger *logrus.Logger) *NotificationHandler {
	return &NotificationHandler{Moderation: m, Logger: logger}
}

// List GET /api/notifications?onlyUnread=true (soloNoLeidas is accepted too)
func (h *NotificationHandler) List(c *gin.Context) {
	onlyUnread := queryBool(c, "onlyUnread") || queryBool(c, "soloNoLeidas")
	list, err := h.Moderation.ListNotifications(c.Request.Context(), middleware.UserID(c), onlyUnread)
	if err != nil {
		logFailure(c, h.Logger, err)
		response.FromError(c, err)
		return
	}
	unread := 0
	for _, n := range list {
		if !n.Leida {
			unread++
		}
	}
	response.Success(c, http.StatusOK, list, "notificaciones", map[string]any{"total": len(list), "unread": unread})
}

// MarkRead POST /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	n, err := h.Moderation.MarkRead(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		logFailure(c, h.Logger, err)
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, n, "Notificación leída", nil)
}

func queryBool(c *gin.Context, key string) bool {
	b, err := strconv.ParseBool(c.Query(key))
	return err == nil && b
}
