package pkg

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrorsAreDistinct(t *testing.T) {
	all := []error{
		ErrOverrun, ErrCancelled, ErrProtocol, ErrNoDevice, ErrNotConfigured,
		ErrDisconnected, ErrInvalidEndpoint, ErrBufferTooSmall,
		ErrDescriptorTooShort, ErrDescriptorTypeMismatch, ErrAlreadyRunning,
		ErrNotRunning, ErrInvalidParameter,
	}
	for i, a := range all {
		for j, b := range all {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
			}
		}
	}
}

func TestWrappedSentinel(t *testing.T) {
	err := fmt.Errorf("read ep1_out: %w", ErrDisconnected)
	assert.ErrorIs(t, err, ErrDisconnected)

	joined := errors.Join(ErrProtocol, ErrBufferTooSmall)
	assert.ErrorIs(t, joined, ErrProtocol)
	assert.ErrorIs(t, joined, ErrBufferTooSmall)
}
