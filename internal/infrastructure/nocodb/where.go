package nocodb

import (
	"fmt"
	"strings"
)

// Where is a NocoDB filter expression such as (dni,eq,123)~or(email,eq,a@x.com).
type Where struct {
	expr string
}

// Eq matches records whose field equals value.
func Eq(field string, value any) Where {
	return Where{expr: fmt.Sprintf("(%s,eq,%s)", field, sanitizeValue(value))}
}

func (w Where) And(o Where) Where { return w.join("~and", o) }
func (w Where) Or(o Where) Where  { return w.join("~or", o) }

func (w Where) IsZero() bool    { return w.expr == "" }
func (w Where) String() string { return w.expr }

func (w Where) join(op string, o Where) Where {
	switch {
	case w.IsZero():
		return o
	case o.IsZero():
		return w
	}
	return Where{expr: w.expr + op + o.expr}
}

// The filter grammar has no escaping, so separators are dropped from values.
func sanitizeValue(v any) string {
	s := fmt.Sprint(v)
	return strings.NewReplacer(",", "", "(", "", ")", "", "~", "").Replace(s)
}
