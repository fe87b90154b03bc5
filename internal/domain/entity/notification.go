package entity

import "time"

type NotificationType string

const (
	NotificationVotePositive NotificationType = "vote_positive"
	NotificationVoteNegative NotificationType = "vote_negative"
	NotificationReport       NotificationType = "report"
)

type Notification struct {
	ID          int64
	UsuarioID   int64
	PropuestaID *int64
	Tipo        NotificationType
	Mensaje     string
	Leida       bool
	CreatedAt   time.Time
}
