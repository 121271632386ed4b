package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("document: %w", ErrNotFound), http.StatusNotFound},
		{ErrForbidden, http.StatusForbidden},
		{ErrInactive, http.StatusForbidden},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrTextTooShort, http.StatusUnprocessableEntity},
		{ErrUnsupportedType, http.StatusUnsupportedMediaType},
		{ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{ErrEmailTaken, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Status(tc.err), "%v", tc.err)
	}
}

func TestMessage(t *testing.T) {
	t.Run("should hide internal errors", func(t *testing.T) {
		assert.Equal(t, "internal server error", Message(errors.New("pq: connection refused")))
	})

	t.Run("should pass through client errors", func(t *testing.T) {
		assert.Equal(t, "bad scenario: invalid input", Message(fmt.Errorf("bad scenario: %w", ErrInvalidInput)))
	})
}
