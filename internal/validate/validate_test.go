package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=student recruiter"`
	Website  string `json:"website" validate:"omitempty,url"`
	Hidden   string `json:"-" validate:"max=3"`
}

func TestStructValid(t *testing.T) {
	v := New()
	assert.NoError(t, v.Struct(signup{Email: "a@x.com", Password: "secret123"}))
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	v := New()
	err := v.Struct(signup{Email: "nope", Password: "123", Role: "admin", Website: "::"})
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Must be a valid email address", verr.Errors["email"])
	assert.Equal(t, "Must be at least 6 characters long", verr.Errors["password"])
	assert.Equal(t, "Must be one of: student, recruiter", verr.Errors["role"])
	assert.Equal(t, "Must be a valid URL", verr.Errors["website"])
	assert.Contains(t, err.Error(), "email: Must be a valid email address")
}

func TestStructRequired(t *testing.T) {
	err := New().Struct(signup{})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "This field is required", verr.Errors["email"])
	assert.Equal(t, "This field is required", verr.Errors["password"])
	assert.NotContains(t, verr.Errors, "role")
}
