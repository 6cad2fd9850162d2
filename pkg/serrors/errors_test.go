package serrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("%w: reason is required", ErrValidation)
	require.Equal(t, "VALIDATION_ERROR", CodeOf(wrapped))
	require.True(t, errors.Is(wrapped, ErrValidation))

	require.Equal(t, "", CodeOf(errors.New("plain")))
	require.Equal(t, "", CodeOf(nil))
}

func TestNewFieldRequiredError(t *testing.T) {
	t.Parallel()

	err := NewFieldRequiredError("reason")
	require.True(t, errors.Is(err, ErrValidation))
	require.Contains(t, err.Error(), "reason is required")
}
