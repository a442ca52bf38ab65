package hal

import (
	"context"
)

// Speed represents the link connection speed.
type Speed uint8

// Speed constants.
const (
	SpeedUnknown Speed = iota // Not connected or unknown
	SpeedLow                  // Low Speed (1.5 Mbit/s)
	SpeedFull                 // Full Speed (12 Mbit/s)
	SpeedHigh                 // High Speed (480 Mbit/s)
)

// String returns a human-readable speed name.
func (s Speed) String() string {
	switch s {
	case SpeedLow:
		return "Low Speed"
	case SpeedFull:
		return "Full Speed"
	case SpeedHigh:
		return "High Speed"
	default:
		return "Unknown"
	}
}

// BusEvent is a lifecycle notification from the host side of a link.
type BusEvent uint8

// Bus events.
const (
	BusNone       BusEvent = iota
	BusConnect             // Host configured the device
	BusDisconnect          // Host released the device or the link dropped
	BusSuspend             // Host suspended the bus
	BusResume              // Host resumed the bus
)

// String returns a human-readable event name.
func (e BusEvent) String() string {
	switch e {
	case BusConnect:
		return "connect"
	case BusDisconnect:
		return "disconnect"
	case BusSuspend:
		return "suspend"
	case BusResume:
		return "resume"
	default:
		return "none"
	}
}

// Endpoint address helpers.
const (
	EndpointDirIn  = 0x80 // Direction bit for device-to-host endpoints
	EndpointNumber = 0x0F // Endpoint number mask
)

// DeviceHAL is the device side of a packet link.
//
// Read and Write move exactly one packet of at most MaxPacketSize bytes.
// Implementations must allow Read, Write and WaitBusEvent to be called
// concurrently from different goroutines.
type DeviceHAL interface {
	// Init prepares the link. The context can be used to cancel
	// initialization.
	Init(ctx context.Context) error

	// Start makes the device visible to hosts.
	Start() error

	// Stop detaches from the link and unblocks every pending call.
	Stop() error

	// MaxPacketSize returns the largest packet the link carries.
	MaxPacketSize() int

	// WaitBusEvent blocks until the host raises a bus event or the context
	// is cancelled.
	WaitBusEvent(ctx context.Context) (BusEvent, error)

	// Read receives one packet from an OUT endpoint into buf.
	// Blocks until a packet arrives or the context is cancelled.
	Read(ctx context.Context, address uint8, buf []byte) (int, error)

	// Write sends one packet to an IN endpoint.
	// Blocks until the packet is handed to the link or the context is
	// cancelled.
	Write(ctx context.Context, address uint8, data []byte) (int, error)

	// IsConnected returns true while a host holds the device configured.
	IsConnected() bool

	// GetSpeed returns the negotiated connection speed.
	GetSpeed() Speed
}

// DescriptorPublisher is implemented by links that can present the device's
// descriptor chain to hosts before any bus event.
type DescriptorPublisher interface {
	PublishDescriptor(data []byte) error
}

// HostHAL is the host side of a packet link.
type HostHAL interface {
	// Open attaches to a device, blocking until one is available or the
	// context is cancelled.
	Open(ctx context.Context) error

	// Close detaches from the device.
	Close() error

	// Signal raises a bus event on the device.
	Signal(ctx context.Context, ev BusEvent) error

	// Write sends one packet to an OUT endpoint.
	Write(ctx context.Context, address uint8, data []byte) (int, error)

	// Read receives one packet from an IN endpoint into buf.
	Read(ctx context.Context, address uint8, buf []byte) (int, error)

	// Descriptor returns the descriptor chain published by the device.
	Descriptor(ctx context.Context) ([]byte, error)
}
