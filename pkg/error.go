package pkg

import "errors"

// Channel errors.
var (
	// ErrOverrun indicates a commit larger than the region previously granted.
	ErrOverrun = errors.New("buffer overrun")

	// ErrCancelled indicates an operation aborted by cancellation or shutdown.
	ErrCancelled = errors.New("operation cancelled")

	// ErrProtocol indicates a malformed frame on the link.
	ErrProtocol = errors.New("protocol error")

	// ErrNoDevice indicates no device is present on the bus.
	ErrNoDevice = errors.New("device not present")

	// ErrNotConfigured indicates the link or HAL has not been initialized.
	ErrNotConfigured = errors.New("not configured")

	// ErrDisconnected indicates the peer dropped the link.
	ErrDisconnected = errors.New("link disconnected")

	// ErrInvalidEndpoint indicates an invalid endpoint address.
	ErrInvalidEndpoint = errors.New("invalid endpoint")

	// ErrBufferTooSmall indicates the provided buffer is too small.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrDescriptorTooShort indicates the descriptor data is too short.
	ErrDescriptorTooShort = errors.New("descriptor too short")

	// ErrDescriptorTypeMismatch indicates the descriptor type does not match expected.
	ErrDescriptorTypeMismatch = errors.New("descriptor type mismatch")

	// ErrAlreadyRunning indicates the driver or HAL is already running.
	ErrAlreadyRunning = errors.New("already running")

	// ErrNotRunning indicates the driver or HAL is not running.
	ErrNotRunning = errors.New("not running")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")
)
