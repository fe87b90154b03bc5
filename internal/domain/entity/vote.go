package entity

import "time"

// VoteValue is the direction of a vote. A withdrawn vote has no row.
type VoteValue int8

const (
	VoteAgainst VoteValue = -1
	VoteFor     VoteValue = 1
)

func (v VoteValue) Valid() bool { return v == VoteFor || v == VoteAgainst }

type Vote struct {
	ID          int64
	UsuarioID   int64
	PropuestaID int64
	Valor       VoteValue
	CreatedAt   time.Time
}

// Tally is the read-time partition of a proposal's votes by sign.
type Tally struct {
	Positivos int `json:"positivos"`
	Negativos int `json:"negativos"`
}

// TallyVotes partitions votes by sign.
func TallyVotes(votes []Vote) Tally {
	var t Tally
	for _, v := range votes {
		switch v.Valor {
		case VoteFor:
			t.Positivos++
		case VoteAgainst:
			t.Negativos++
		}
	}
	return t
}
