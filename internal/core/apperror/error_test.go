package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_UnwrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("next number: %w", NewSequenceExhausted("sales", 3, cause))

	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, CodeSequenceExhausted))
	assert.Equal(t, http.StatusServiceUnavailable, GetHTTPStatus(err))

	appErr, ok := AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, 3, appErr.Details["attempts"])
	assert.Contains(t, appErr.Error(), "connection refused")
}

func TestGetHTTPStatus_PlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("boom")))
	assert.False(t, IsNotFound(errors.New("boom")))
}

func TestWithDetail_InitializesMap(t *testing.T) {
	err := NewValidation("key is required").WithDetail("field", "key")

	assert.Equal(t, "key", err.Details["field"])
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
}

func TestNewSequenceRegression(t *testing.T) {
	err := NewSequenceRegression("service_order", 40, 10)

	assert.Equal(t, CodeSequenceRegression, err.Code)
	assert.Equal(t, int64(40), err.Details["current"])
	assert.Equal(t, int64(10), err.Details["requested"])
}
