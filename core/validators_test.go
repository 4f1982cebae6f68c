package core

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitValidators(t *testing.T) {
	validate := validator.New()
	translator := NewTranslator()
	InitValidators(validate, translator)

	type data struct {
		Name  string `json:"name" validate:"required"`
		Note  string `json:"note" validate:"notblank"`
		Title string `json:"-" validate:"max=3"`
	}

	err := validate.Struct(data{Note: " \t", Title: "abc"})
	require.Error(t, err)

	errs, ok := err.(validator.ValidationErrors)
	require.True(t, ok)
	assert.Equal(t, map[string]string{
		"name": "this field is required",
		"note": "this field cannot be blank",
	}, TranslateErrors(errs, translator))
}
