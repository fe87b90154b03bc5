package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/participa-vecinal/participa/internal/interface/middleware"
	"github.com/participa-vecinal/participa/pkg/apperror"
)

// logFailure logs upstream failures with their cause. Caller errors are not logged.
func logFailure(c *gin.Context, logger *logrus.Logger, err error) {
	if logger == nil || apperror.KindOf(err) != apperror.KindUpstream {
		return
	}
	logger.WithError(err).WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"method":     c.Request.Method,
		"path":       c.FullPath(),
		"usuario_id": middleware.UserID(c),
	}).Error("request failed")
}
