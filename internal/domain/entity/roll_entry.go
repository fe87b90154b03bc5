package entity

import "strings"

// RollEntry is an electoral roll record. Read-only for this system.
type RollEntry struct {
	ID        int64
	DNI       string
	Nombre    string
	Apellido  string
	Localidad string
}

// DisplayName derives the public name stored on a new account.
func (r RollEntry) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(r.Nombre) + " " + strings.TrimSpace(r.Apellido))
}

// NormalizeDNI keeps only the digits of a national id.
func NormalizeDNI(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
