package bulk

import (
	"fmt"

	"github.com/ardnew/softbulk/pkg/ring"
)

// Event identifies a channel notification delivered by the transport.
type Event uint32

// Channel events. Values outside this set are ignored by the dispatcher.
const (
	EventConnected    Event = iota + 1 // Host configured the device
	EventDisconnected                  // Host went away
	EventRxAvailable                   // Inbound data ready; value = byte count
	EventTxComplete                    // Outbound packet sent; value = byte count
	EventSuspend                       // Bus suspended
	EventResume                        // Bus resumed
)

// String returns a human-readable event name.
func (e Event) String() string {
	switch e {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventRxAvailable:
		return "rx-available"
	case EventTxComplete:
		return "tx-complete"
	case EventSuspend:
		return "suspend"
	case EventResume:
		return "resume"
	default:
		return fmt.Sprintf("event(%d)", uint32(e))
	}
}

// Direction selects one side of the full-duplex channel.
type Direction uint8

// Channel directions.
const (
	DirectionRx Direction = iota // Inbound: host to device
	DirectionTx                  // Outbound: device to host
)

// String returns "rx" or "tx".
func (d Direction) String() string {
	if d == DirectionTx {
		return "tx"
	}
	return "rx"
}

// Handler receives channel events.
//
// For EventRxAvailable, value is the number of inbound bytes and data lends
// them in place; the return value is the number of bytes consumed. For
// EventTxComplete, value is the number of bytes sent. Other events carry an
// empty span and their return value is ignored.
//
// Handlers run in the event context and must not block.
type Handler interface {
	HandleEvent(dir Direction, ev Event, value uint32, data ring.Span) uint32
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(dir Direction, ev Event, value uint32, data ring.Span) uint32

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(dir Direction, ev Event, value uint32, data ring.Span) uint32 {
	return f(dir, ev, value, data)
}

// Link is the transport capability behind one direction of a channel.
type Link interface {
	// Transfer moves up to len(p) bytes between p and the transport and
	// returns the number moved. An inbound link fills p with pending packet
	// bytes; an outbound link takes bytes from p for transmission.
	Transfer(p []byte) int

	// Available returns the number of bytes the transport can move right now:
	// pending inbound bytes, or outbound bytes it would accept.
	Available() int
}
