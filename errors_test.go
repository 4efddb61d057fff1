package mindflow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientError(t *testing.T) {
	cause := errors.New("bad key")
	err := NewClientError("credential rejected", cause)

	assert.Equal(t, "credential rejected: bad key", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsClientError(err))
}

func TestClientErrorWithoutCause(t *testing.T) {
	err := NewClientError("text must not be empty", nil)
	assert.Equal(t, "text must not be empty", err.Error())
	assert.True(t, IsClientError(err))
}

func TestIsClientErrorWrapped(t *testing.T) {
	err := fmt.Errorf("handler: %w", NewClientError("bad input", nil))
	assert.True(t, IsClientError(err))
}

func TestIsClientErrorPlainError(t *testing.T) {
	assert.False(t, IsClientError(errors.New("store down")))
	assert.False(t, IsClientError(nil))
}
