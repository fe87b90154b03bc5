package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Aliases shared by the request DTOs.
var aliases = map[string]string{
	"pwd":  "min=6",
	"dni":  "min=6,max=12",
	"vote": "oneof=-1 0 1",
}

// Init configures the validator behind gin binding: errors are keyed by JSON
// field name and the aliases above are registered. Safe to call more than once.
func Init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(jsonName)
	for alias, tags := range aliases {
		v.RegisterAlias(alias, tags)
	}
}

func jsonName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// ToDetails converts binding errors into the field map carried by a validation error.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) {
		if ute.Field != "" {
			return map[string]string{ute.Field: "has the wrong type"}
		}
		return map[string]string{"payload": "invalid json"}
	}
	var se *json.SyntaxError
	if errors.As(err, &se) || errors.Is(err, io.ErrUnexpectedEOF) {
		return map[string]string{"payload": "invalid json"}
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"payload": "invalid payload"}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = message(fe)
	}
	return out
}

var fixedMessages = map[string]string{
	"required":  "is required",
	"email":     "must be a valid email",
	"numeric":   "must be numeric",
	"latitude":  "must be a valid latitude",
	"longitude": "must be a valid longitude",
	"pwd":       "must be at least 6 characters long",
	"dni":       "must be a valid dni",
	"vote":      "must be one of: 1, -1, 0",
}

func message(fe validator.FieldError) string {
	if msg, ok := fixedMessages[fe.Tag()]; ok {
		return msg
	}
	param := fe.Param()
	unit := " characters long"
	if isNumberKind(fe.Kind()) {
		unit = ""
	}
	switch fe.Tag() {
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	case "len":
		return "must be exactly " + param + unit
	case "min":
		return "must be at least " + param + unit
	case "max":
		return "must be at most " + param + unit
	case "gt":
		return "must be greater than " + param
	}
	if param != "" {
		return fmt.Sprintf("failed %s=%s", fe.Tag(), param)
	}
	return "failed " + fe.Tag()
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
