package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	DNI      string `json:"dni" binding:"required,dni"`
	Password string `json:"password" binding:"required,pwd"`
	Valor    *int   `json:"valor" binding:"required,vote"`
	Titulo   string `json:"titulo" binding:"max=5"`
}

func TestToDetailsUsesJSONNamesAndAliases(t *testing.T) {
	Init()
	two := 2
	err := binding.Validator.ValidateStruct(&sample{DNI: "123", Password: "abc", Valor: &two, Titulo: "demasiado"})
	details := ToDetails(err)
	assert.Equal(t, "must be a valid dni", details["dni"])
	assert.Equal(t, "must be at least 6 characters long", details["password"])
	assert.Equal(t, "must be one of: 1, -1, 0", details["valor"])
	assert.Equal(t, "must be at most 5 characters long", details["titulo"])
}

func TestToDetailsMalformedJSON(t *testing.T) {
	var s sample
	err := binding.JSON.BindBody([]byte(`{"dni":`), &s)
	assert.Equal(t, map[string]string{"payload": "invalid json"}, ToDetails(err))

	err = binding.JSON.BindBody([]byte(`{"dni": 5}`), &s)
	assert.Equal(t, "has the wrong type", ToDetails(err)["dni"])

	assert.Equal(t, map[string]string{"payload": "invalid payload"}, ToDetails(errors.New(strings.Repeat("x", 3))))
	assert.Nil(t, ToDetails(nil))
}
