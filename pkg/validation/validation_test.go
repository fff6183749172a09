package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type enrollPayload struct {
	StudentID string `json:"studentId" validate:"required"`
	Grade     int    `json:"gradeLevel" validate:"min=7,max=10"`
}

func TestFieldsUsesJSONNames(t *testing.T) {
	err := New().Struct(enrollPayload{Grade: 12})
	require.Error(t, err)

	fields := Fields(err)
	assert.Equal(t, "studentId is a required field", fields["studentId"])
	assert.Equal(t, "gradeLevel must be 10 or less", fields["gradeLevel"])
}

func TestFieldsIgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, Fields(errors.New("boom")))
	assert.Nil(t, Fields(nil))
}
