package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeletionFailed_PassesCauseMessage(t *testing.T) {
	cause := errors.New("update log_rows: connection reset")
	err := NewDeletionFailed(cause)

	assert.Equal(t, CodeDeletionFailed, err.Code)
	assert.Equal(t, "update log_rows: connection reset", err.Message)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)
	assert.ErrorIs(t, err, cause)
}

func TestGetHTTPStatus_WrappedAppError(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", NewDeletionBlocked("blocked"))

	assert.Equal(t, http.StatusBadRequest, GetHTTPStatus(wrapped))
	assert.True(t, HasCode(wrapped, CodeDeletionBlocked))
	assert.False(t, HasCode(wrapped, CodeValidation))
}

func TestGetHTTPStatus_PlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("boom")))
}

func TestAppError_ErrorString(t *testing.T) {
	assert.Equal(t, "FORBIDDEN: company mismatch", NewForbidden("company mismatch").Error())

	err := NewInternal(errors.New("dial tcp"))
	assert.Equal(t, "INTERNAL_ERROR: Internal server error: dial tcp", err.Error())
}

func TestAppError_WithDetail(t *testing.T) {
	err := NewDeletionBlocked("blocked").
		WithDetail("errors", []string{"a"}).
		WithDetail("issues", 1)

	assert.Equal(t, map[string]any{"errors": []string{"a"}, "issues": 1}, err.Details)
}
