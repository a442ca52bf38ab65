package device

import (
	"errors"
	"fmt"
	"time"

	"github.com/ardnew/softbulk/device/bulk"
	"github.com/ardnew/softbulk/device/hal"
	"github.com/ardnew/softbulk/pkg"
)

// Default endpoint addresses.
const (
	DefaultInAddress  = 0x81
	DefaultOutAddress = 0x01
)

// DefaultRetryDelay is the pause after a failed link operation.
const DefaultRetryDelay = 100 * time.Millisecond

// Config configures a Driver.
type Config struct {
	Identity   bulk.Identity
	BufferSize int           // Ring capacity per direction
	PacketSize int           // Largest IN packet the driver sends
	InAddress  uint8         // Device-to-host endpoint
	OutAddress uint8         // Host-to-device endpoint
	RetryDelay time.Duration // Pause after link errors; also the inbound retry interval
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		Identity:   DefaultIdentity(),
		BufferSize: bulk.DefaultBufferSize,
		PacketSize: bulk.DefaultPacketSize,
		InAddress:  DefaultInAddress,
		OutAddress: DefaultOutAddress,
		RetryDelay: DefaultRetryDelay,
	}
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error
	if c.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("buffer size %d: %w", c.BufferSize, pkg.ErrInvalidParameter))
	}
	if c.PacketSize <= 0 || c.PacketSize > hal.MaxPacketSize {
		errs = append(errs, fmt.Errorf("packet size %d: %w", c.PacketSize, pkg.ErrInvalidParameter))
	}
	if c.InAddress&hal.EndpointDirIn == 0 || c.InAddress&hal.EndpointNumber == 0 || c.InAddress&0x70 != 0 {
		errs = append(errs, fmt.Errorf("IN address 0x%02x: %w", c.InAddress, pkg.ErrInvalidEndpoint))
	}
	if c.OutAddress&hal.EndpointDirIn != 0 || c.OutAddress&hal.EndpointNumber == 0 || c.OutAddress&0x70 != 0 {
		errs = append(errs, fmt.Errorf("OUT address 0x%02x: %w", c.OutAddress, pkg.ErrInvalidEndpoint))
	}
	if c.RetryDelay <= 0 {
		errs = append(errs, fmt.Errorf("retry delay %v: %w", c.RetryDelay, pkg.ErrInvalidParameter))
	}
	return errors.Join(errs...)
}

// endpoints returns the descriptor view of the endpoint configuration.
func (c *Config) endpoints() Endpoints {
	return Endpoints{
		In:            c.InAddress,
		Out:           c.OutAddress,
		MaxPacketSize: uint16(c.PacketSize),
	}
}
