package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorIsMatchesByCode(t *testing.T) {
	detailed := ErrAccountNotFound.WithDetails("id=42")
	wrapped := fmt.Errorf("loading: %w", detailed)

	assert.True(t, stderrors.Is(wrapped, ErrAccountNotFound))
	assert.False(t, stderrors.Is(wrapped, ErrTransactionNotFound))
	assert.True(t, IsNotFound(wrapped))
	assert.Empty(t, ErrAccountNotFound.Details, "sentinel must not be mutated by WithDetails")
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err    *AppError
		status int
	}{
		{ErrAccountNotFound, http.StatusNotFound},
		{ErrTransactionNotFound, http.StatusNotFound},
		{ErrInvalidAmount, http.StatusBadRequest},
		{ErrInvalidAccountID, http.StatusBadRequest},
		{ErrForbidden, http.StatusForbidden},
		{ErrConflict, http.StatusConflict},
		{ErrStoreUnavailable, http.StatusServiceUnavailable},
		{NewAppError(InternalError, "boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.HTTPStatus(), tc.err.Code)
	}
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	appErr := FromError(fmt.Errorf("wrap: %w", ErrConflict))
	assert.Equal(t, Conflict, appErr.Code)
	assert.True(t, IsConflict(appErr))

	appErr = FromError(stderrors.New("disk on fire"))
	assert.Equal(t, InternalError, appErr.Code)
	assert.Equal(t, "disk on fire", appErr.Details)
}
