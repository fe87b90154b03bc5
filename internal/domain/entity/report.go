package entity

import "time"

type Report struct {
	ID          int64
	UsuarioID   int64
	PropuestaID int64
	Motivo      string
	CreatedAt   time.Time
}
