package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorError(t *testing.T) {
	err := New("TEST_CODE", "something broke", http.StatusTeapot)
	require.Equal(t, "something broke", err.Error())

	wrapped := err.WithInternal(errors.New("root cause"))
	require.Equal(t, "something broke: root cause", wrapped.Error())
	require.ErrorIs(t, wrapped, wrapped)
	require.Equal(t, "root cause", wrapped.Unwrap().Error())
}

func TestFromError(t *testing.T) {
	require.Nil(t, FromError(nil))

	appErr := FromError(ErrNotFound)
	require.Equal(t, "NOT_FOUND", appErr.Code)
	require.Equal(t, http.StatusNotFound, appErr.StatusCode)

	generic := FromError(errors.New("boom"))
	require.Equal(t, ErrInternalServer.Code, generic.Code)
	require.Equal(t, http.StatusInternalServerError, generic.StatusCode)
	require.EqualError(t, generic.Unwrap(), "boom")
}

func TestWrapKeepsOriginal(t *testing.T) {
	cause := errors.New("disk on fire")
	wrapped := Wrap(cause, "storage failure")

	require.Equal(t, http.StatusInternalServerError, wrapped.StatusCode)
	require.ErrorIs(t, wrapped, cause)
}

func TestConstructors(t *testing.T) {
	bad := NewBadRequest("name is required")
	require.Equal(t, ErrBadRequest.Code, bad.Code)
	require.Equal(t, http.StatusBadRequest, bad.StatusCode)
	require.Equal(t, "name is required", bad.Message)

	invalid := NewInvalidOperation("cannot accept own invite")
	require.Equal(t, "INVALID_OPERATION", invalid.Code)
	require.Equal(t, http.StatusBadRequest, invalid.StatusCode)
}
