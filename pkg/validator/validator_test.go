package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Age      int    `json:"age" validate:"omitempty,min=1"`
}

func TestValidateStructPasses(t *testing.T) {
	err := ValidateStruct(samplePayload{
		Username: "frida",
		Email:    "frida@example.com",
	})
	require.NoError(t, err)
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	err := ValidateStruct(samplePayload{Username: "ab"})
	require.Error(t, err)

	failures, ok := err.(ValidationErrors)
	require.True(t, ok)
	require.Len(t, failures, 2)

	fields := map[string]string{}
	for _, failure := range failures {
		fields[failure.Field] = failure.Tag
	}
	require.Equal(t, "min", fields["username"])
	require.Equal(t, "required", fields["email"])
}

func TestValidationErrorsMessage(t *testing.T) {
	errs := ValidationErrors{
		{Field: "username", Tag: "min", Param: "3"},
		{Field: "email", Tag: "required"},
	}
	message := errs.Error()
	require.Contains(t, message, "username failed on min=3")
	require.Contains(t, message, "email failed on required")

	require.Equal(t, "validation failed", ValidationErrors{}.Error())
}
