package application

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/participa-vecinal/participa/internal/domain/entity"
	"github.com/participa-vecinal/participa/internal/domain/repository"
	"github.com/participa-vecinal/participa/pkg/apperror"
	"github.com/participa-vecinal/participa/pkg/metrics"
)

// ReportView is a filed report as returned to the reporter.
type ReportView struct {
	ID          int64     `json:"id"`
	UsuarioID   int64     `json:"usuarioId"`
	PropuestaID int64     `json:"propuestaId"`
	Motivo      string    `json:"motivo,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NotificationView is a notification as returned to its recipient.
type NotificationView struct {
	ID          int64                   `json:"id"`
	UsuarioID   int64                   `json:"usuarioId"`
	PropuestaID *int64                  `json:"propuestaId"`
	Tipo        entity.NotificationType `json:"tipo"`
	Mensaje     string                  `json:"mensaje"`
	Leida       bool                    `json:"leida"`
	CreatedAt   time.Time               `json:"createdAt"`
}

type ModerationService struct {
	Store   repository.Store
	Logger  *logrus.Logger
	Metrics *metrics.Metrics
}

// FileReport records a report and notifies the author. Repeated reports by the
// same user are accepted.
func (s *ModerationService) FileReport(ctx context.Context, reporterID, proposalID int64, motivo string) (*ReportView, error) {
	prop, err := s.Store.Proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, notFoundOr("get proposal", err, apperror.ErrProposalNotFound)
	}
	r := &entity.Report{UsuarioID: reporterID, PropuestaID: proposalID, Motivo: cleanText(motivo)}
	if err := s.Store.Reports.Create(ctx, r); err != nil {
		return nil, apperror.Upstream("create report", err)
	}
	s.Metrics.IncReport()
	s.Logger.WithFields(logrus.Fields{"propuesta_id": proposalID, "usuario_id": reporterID}).Info("proposal reported")

	raiseNotification(ctx, s.Store.Notifications, s.Logger, s.Metrics, prop, entity.NotificationReport, msgReport)

	return &ReportView{ID: r.ID, UsuarioID: r.UsuarioID, PropuestaID: r.PropuestaID, Motivo: r.Motivo, CreatedAt: r.CreatedAt}, nil
}

// ListNotifications returns the user's notifications, newest first.
func (s *ModerationService) ListNotifications(ctx context.Context, userID int64, onlyUnread bool) ([]NotificationView, error) {
	list, err := s.Store.Notifications.ListByRecipient(ctx, userID, onlyUnread)
	if err != nil {
		return nil, apperror.Upstream("list notifications", err)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
	out := make([]NotificationView, 0, len(list))
	for _, n := range list {
		out = append(out, notificationView(n))
	}
	return out, nil
}

// MarkRead flags a notification as read. Only the recipient may do it and
// repeating it is a no-op.
func (s *ModerationService) MarkRead(ctx context.Context, notificationID, userID int64) (*NotificationView, error) {
	n, err := s.Store.Notifications.GetByID(ctx, notificationID)
	if err != nil {
		return nil, notFoundOr("get notification", err, apperror.ErrNotificationNotFound)
	}
	if n.UsuarioID != userID {
		return nil, apperror.ErrNotNotificationOwner
	}
	if !n.Leida {
		if err := s.Store.Notifications.MarkRead(ctx, n.ID); err != nil {
			return nil, notFoundOr("mark notification read", err, apperror.ErrNotificationNotFound)
		}
		n.Leida = true
	}
	v := notificationView(*n)
	return &v, nil
}

func notificationView(n entity.Notification) NotificationView {
	return NotificationView{
		ID:          n.ID,
		UsuarioID:   n.UsuarioID,
		PropuestaID: n.PropuestaID,
		Tipo:        n.Tipo,
		Mensaje:     n.Mensaje,
		Leida:       n.Leida,
		CreatedAt:   n.CreatedAt,
	}
}
