package util

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeviceError(t *testing.T) {
	err := NewDeviceError("r1", "base-config", fmt.Errorf("push: %w", ErrCommit))

	assert.Contains(t, err.Error(), "r1")
	assert.Contains(t, err.Error(), "base-config")
	assert.True(t, errors.Is(err, ErrCommit))

	var de *DeviceError
	wrapped := fmt.Errorf("run aborted: %w", err)
	assert.True(t, errors.As(wrapped, &de))
	assert.Equal(t, "r1", de.Device)
}

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("field is required")
		assert.Equal(t, "validation failed: field is required", err.Error())
		assert.True(t, errors.Is(err, ErrValidationFailed))
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("a", "b")
		assert.True(t, strings.HasPrefix(err.Error(), "validation failed:\n"))
		assert.Contains(t, err.Error(), "  - a")
		assert.Contains(t, err.Error(), "  - b")
	})
}

func TestValidationBuilder(t *testing.T) {
	var v ValidationBuilder
	assert.NoError(t, v.Build())

	v.Add(true, "never recorded")
	assert.False(t, v.HasErrors())

	v.Add(false, "mgmt is required").AddErrorf("os %q unknown", "foo")
	assert.True(t, v.HasErrors())

	err := v.Build()
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"mgmt is required", `os "foo" unknown`}, ve.Errors)
}
