package nocodb

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/participa-vecinal/participa/internal/domain/entity"
)

// Record is the untyped wire form of a row. Values arrive as json.Number, string, bool or nil,
// and the same field may use a different type from one row to the next.
type Record map[string]any

func (r Record) lookup(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// ID reads the record identity, accepting the Id/id/ID aliases.
func (r Record) ID() int64 { return r.Int64("Id", "id", "ID") }

func (r Record) Int64(keys ...string) int64 {
	v, ok := r.lookup(keys...)
	if !ok {
		return 0
	}
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return int64(f)
		}
	case float64:
		return int64(x)
	case int64:
		return x
	case int:
		return int64(x)
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return i
		}
	case map[string]any:
		// linked-record fields come back as nested objects
		return Record(x).ID()
	}
	return 0
}

func (r Record) String(keys ...string) string {
	v, ok := r.lookup(keys...)
	if !ok {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}

func (r Record) Bool(keys ...string) bool {
	v, ok := r.lookup(keys...)
	if !ok {
		return false
	}
	switch x := v.(type) {
	case bool:
		return x
	case json.Number:
		return x.String() != "0"
	case float64:
		return x != 0
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return err == nil && b
	}
	return false
}

func (r Record) Float(keys ...string) *float64 {
	v, ok := r.lookup(keys...)
	if !ok {
		return nil
	}
	var f float64
	var err error
	switch x := v.(type) {
	case json.Number:
		f, err = x.Float64()
	case float64:
		f = x
	case string:
		if strings.TrimSpace(x) == "" {
			return nil
		}
		f, err = strconv.ParseFloat(strings.TrimSpace(x), 64)
	default:
		return nil
	}
	if err != nil {
		return nil
	}
	return &f
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

func (r Record) Time(keys ...string) *time.Time {
	s := strings.TrimSpace(r.String(keys...))
	if s == "" {
		return nil
	}
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

// Normalization: every read goes through one of the to* functions before business logic sees it.

func toRollEntry(r Record) entity.RollEntry {
	return entity.RollEntry{
		ID:        r.ID(),
		DNI:       entity.NormalizeDNI(r.String("dni")),
		Nombre:    r.String("nombre"),
		Apellido:  r.String("apellido"),
		Localidad: r.String("localidad"),
	}
}

func toAccount(r Record) entity.Account {
	return entity.Account{
		ID:            r.ID(),
		DNI:           entity.NormalizeDNI(r.String("dni")),
		Email:         r.String("email"),
		PasswordHash:  r.String("passwordHash"),
		EmailVerified: r.Bool("emailVerificado", "emailVerified"),
		Privacy: entity.PrivacySettings{
			ProfilePrivate:  r.Bool("perfilPrivado", "profilePrivate"),
			ShowPublicName:  r.Bool("mostrarNombrePublico", "showPublicName"),
			ShowPublicVotes: r.Bool("mostrarVotosPublicos", "showPublicVotes"),
		},
		DisplayName:           r.String("nombreMostrado", "displayName"),
		Lat:                   r.Float("ultimaLat", "lat"),
		Lng:                   r.Float("ultimaLng", "lng"),
		VerificationToken:     r.String("verificationToken"),
		VerificationExpiresAt: r.Time("verificationExpires", "verificationExpiresAt"),
		CreatedAt:             timeOrZero(r.Time("createdAt", "CreatedAt")),
		UpdatedAt:             timeOrZero(r.Time("updatedAt", "UpdatedAt")),
	}
}

func accountFields(a *entity.Account) map[string]any {
	f := map[string]any{
		"dni":                  a.DNI,
		"email":                a.Email,
		"passwordHash":         a.PasswordHash,
		"emailVerificado":      a.EmailVerified,
		"perfilPrivado":        a.Privacy.ProfilePrivate,
		"mostrarNombrePublico": a.Privacy.ShowPublicName,
		"mostrarVotosPublicos": a.Privacy.ShowPublicVotes,
		"nombreMostrado":       a.DisplayName,
		"ultimaLat":            a.Lat,
		"ultimaLng":            a.Lng,
		"verificationToken":    nil,
		"verificationExpires":  nil,
		"updatedAt":            formatTime(a.UpdatedAt),
	}
	if a.VerificationToken != "" {
		f["verificationToken"] = a.VerificationToken
	}
	if a.VerificationExpiresAt != nil {
		f["verificationExpires"] = formatTime(*a.VerificationExpiresAt)
	}
	return f
}

func toProposal(r Record) entity.Proposal {
	return entity.Proposal{
		ID:          r.ID(),
		Titulo:      r.String("titulo"),
		Descripcion: r.String("descripcion"),
		AutorID:     r.Int64("autorId"),
		Localidad:   r.String("localidad"),
		CreatedAt:   timeOrZero(r.Time("createdAt", "CreatedAt")),
		UpdatedAt:   timeOrZero(r.Time("updatedAt", "UpdatedAt")),
	}
}

func toVote(r Record) entity.Vote {
	return entity.Vote{
		ID:          r.ID(),
		UsuarioID:   r.Int64("usuarioId"),
		PropuestaID: r.Int64("propuestaId"),
		Valor:       entity.VoteValue(r.Int64("valor")),
		CreatedAt:   timeOrZero(r.Time("createdAt", "CreatedAt")),
	}
}

var notificationTypeAliases = map[string]entity.NotificationType{
	"voto_positivo": entity.NotificationVotePositive,
	"voto_negativo": entity.NotificationVoteNegative,
	"reporte":       entity.NotificationReport,
}

func toNotification(r Record) entity.Notification {
	n := entity.Notification{
		ID:        r.ID(),
		UsuarioID: r.Int64("usuarioId"),
		Tipo:      entity.NotificationType(r.String("tipo")),
		Mensaje:   r.String("mensaje"),
		Leida:     r.Bool("leida"),
		CreatedAt: timeOrZero(r.Time("createdAt", "CreatedAt")),
	}
	if alias, ok := notificationTypeAliases[string(n.Tipo)]; ok {
		n.Tipo = alias
	}
	if pid := r.Int64("propuestaId"); pid != 0 {
		n.PropuestaID = &pid
	}
	return n
}
