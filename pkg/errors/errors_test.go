package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"not found", NotFound("client", nil), http.StatusNotFound},
		{"bad request", BadRequest("invalid phone", nil), http.StatusBadRequest},
		{"unauthorized", Unauthorized(""), http.StatusUnauthorized},
		{"forbidden", Forbidden("pharmacy only"), http.StatusForbidden},
		{"conflict", Conflict("duplicate", nil), http.StatusConflict},
		{"locked", Locked("account is locked"), http.StatusLocked},
		{"timeout", Timeout("upstream timeout", nil), http.StatusGatewayTimeout},
		{"internal", Internal(fmt.Errorf("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}

func TestAsUnwrapsWrappedErrors(t *testing.T) {
	base := NotFound("medication", nil)
	wrapped := fmt.Errorf("failed to update medication: %w", base)

	appErr, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "medication not found", appErr.Message)
	assert.True(t, Is(wrapped, ErrNotFound))
	assert.False(t, Is(wrapped, ErrConflict))
	assert.False(t, Is(fmt.Errorf("plain"), ErrNotFound))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := BadRequest("invalid schedule", fmt.Errorf("25:00 is not a clock time"))
	assert.Equal(t, "invalid schedule: 25:00 is not a clock time", err.Error())
	assert.Equal(t, "unauthorized", Unauthorized("").Error())
}
