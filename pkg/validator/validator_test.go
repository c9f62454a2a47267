package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type startRequest struct {
	QuestionSet string `validate:"omitempty,oneof=ad landing combined complete"`
	Resume      string `validate:"omitempty,oneof=always never"`
	Personas    []int  `validate:"required,min=1"`
}

func TestValidate(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(startRequest{Personas: []int{1}}))

	err := v.Validate(startRequest{QuestionSet: "poster", Resume: "maybe"})
	require.Error(t, err)

	fields := FieldErrors(err)
	assert.Equal(t, "required", fields["personas"])
	assert.Equal(t, "oneof=ad landing combined complete", fields["questionset"])
	assert.Equal(t, "oneof=always never", fields["resume"])

	assert.Nil(t, FieldErrors(errors.New("plain")))
}
