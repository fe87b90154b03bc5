package entity

import "time"

type Proposal struct {
	ID          int64
	Titulo      string
	Descripcion string
	AutorID     int64
	Localidad   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
