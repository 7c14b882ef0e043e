package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	specific := ErrInsufficientStock.WithMessage("only %d left", 2)

	assert.True(t, errors.Is(specific, ErrInsufficientStock))
	assert.False(t, errors.Is(specific, ErrConcurrencyConflict))
	assert.Equal(t, "only 2 left", specific.Error())
	assert.Equal(t, "Insufficient stock available", ErrInsufficientStock.Message, "sentinel must not be mutated")
}

func TestDomainError_WrapAndUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewPersistenceError("save order", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, err.Retryable())
	assert.Contains(t, err.Error(), "failed to save order")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestIsKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind ErrorKind
		want bool
	}{
		{"validation", NewValidationError("city", "city is required"), KindValidation, true},
		{"not found", NewNotFoundError("order", 42), KindNotFound, true},
		{"wrapped conflict", fmt.Errorf("advance: %w", ErrInvalidState), KindConflict, true},
		{"configuration", NewConfigurationError("NO_FALLBACK_ZONE", "missing"), KindConfiguration, true},
		{"plain error", errors.New("boom"), KindPersistence, false},
		{"kind mismatch", ErrTimeout, KindConflict, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsKind(tt.err, tt.kind))
		})
	}
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2, 3}, 7, 1, 3)
	assert.Equal(t, 3, p.TotalPages)

	page, size := NormalizePage(0, 500)
	assert.Equal(t, 1, page)
	assert.Equal(t, 100, size)
}
