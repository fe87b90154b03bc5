package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/participa-vecinal/participa/internal/domain/entity"
	"github.com/participa-vecinal/participa/internal/domain/repository"
	"github.com/participa-vecinal/participa/pkg/metrics"
)

const (
	msgVotePositive = "Tu propuesta recibió un voto a favor"
	msgVoteNegative = "Tu propuesta recibió un voto en contra"
	msgReport       = "Tu propuesta recibió un reporte"
)

const notifyTimeout = 5 * time.Second

// raiseNotification stores a notification for the author of p. Failures are
// logged and counted, never returned.
func raiseNotification(ctx context.Context, repo repository.NotificationRepository, logger *logrus.Logger, m *metrics.Metrics, p *entity.Proposal, tipo entity.NotificationType, msg string) {
	c, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	pid := p.ID
	n := &entity.Notification{
		UsuarioID:   p.AutorID,
		PropuestaID: &pid,
		Tipo:        tipo,
		Mensaje:     msg,
	}
	if err := repo.Create(c, n); err != nil {
		m.IncDispatchFailure("notification")
		logger.WithError(err).WithFields(logrus.Fields{
			"propuesta_id": p.ID,
			"usuario_id":   p.AutorID,
			"tipo":         tipo,
		}).Error("create notification failed")
	}
}
