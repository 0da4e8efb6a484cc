package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystem_KeepsUnderlyingMessageVerbatim(t *testing.T) {
	cause := stderrors.New("product lot abc update returned no result")

	err := System(cause)
	assert.Equal(t, "product lot abc update returned no result", err.Message)
	assert.Equal(t, "SYSTEM_ERROR", err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.StatusCode)
	assert.True(t, stderrors.Is(err, cause))
}

func TestCapacityExceeded(t *testing.T) {
	err := CapacityExceeded("Cold Room B")

	assert.True(t, Is(err, ErrCapacityExceeded))
	assert.Equal(t, http.StatusConflict, err.StatusCode)
	assert.Contains(t, err.Message, "Cold Room B")
}

func TestValidation_CarriesDetails(t *testing.T) {
	err := Validation(map[string]string{"expired_date": "must be after the manufactured date"})

	assert.True(t, Is(err, ErrValidation))
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "must be after the manufactured date", err.Details["expired_date"])
}

func TestAs_UnwrapsAppError(t *testing.T) {
	var appErr *AppError
	err := NotFound("product lot 42")

	require.True(t, As(err, &appErr))
	assert.Equal(t, "NOT_FOUND", appErr.Code)
	assert.Contains(t, appErr.Message, "product lot 42")
}
