package storage

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrNotFound(t *testing.T) {
	err := ErrNotFound{Resource: "dataset", ID: "123"}

	assert.Equal(t, "dataset not found: 123", err.Error())
	assert.True(t, IsNotFound(err))
}

func TestIsNotFoundWrapped(t *testing.T) {
	err := fmt.Errorf("failed to load: %w", ErrNotFound{Resource: "dataset", ID: "abc"})

	assert.True(t, IsNotFound(err))
}

func TestIsNotFoundFalse(t *testing.T) {
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsNotFound(assert.AnError))
	assert.False(t, IsNotFound(ErrEmptyID))
}
