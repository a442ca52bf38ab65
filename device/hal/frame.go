package hal

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ardnew/softbulk/pkg"
)

// MaxPacketSize is the largest frame payload any link carries.
const MaxPacketSize = 512

// FrameHeaderSize is the size of a frame header: type, address and a
// little-endian 16-bit payload length.
const FrameHeaderSize = 4

// Frame types.
const (
	FrameData       = 0x02 // Endpoint packet; Address selects the endpoint
	FrameBus        = 0x10 // Bus event; payload is one BusEvent byte
	FrameDescriptor = 0x11 // Descriptor chain published by the device
)

// Frame is one unit on a stream or message link.
type Frame struct {
	Type    uint8
	Address uint8
	Payload []byte
}

// DataFrame returns a data frame for an endpoint.
func DataFrame(address uint8, payload []byte) Frame {
	return Frame{Type: FrameData, Address: address, Payload: payload}
}

// BusFrame returns a bus event frame.
func BusFrame(ev BusEvent) Frame {
	return Frame{Type: FrameBus, Payload: []byte{byte(ev)}}
}

// Event returns the bus event carried by a FrameBus frame, or BusNone.
func (f Frame) Event() BusEvent {
	if f.Type != FrameBus || len(f.Payload) < 1 {
		return BusNone
	}
	return BusEvent(f.Payload[0])
}

// Size returns the encoded size of the frame.
func (f Frame) Size() int {
	return FrameHeaderSize + len(f.Payload)
}

// MarshalTo encodes the frame into buf and returns the number of bytes
// written.
func (f Frame) MarshalTo(buf []byte) (int, error) {
	if len(f.Payload) > MaxPacketSize {
		return 0, fmt.Errorf("frame payload %d bytes: %w", len(f.Payload), pkg.ErrInvalidParameter)
	}
	if len(buf) < f.Size() {
		return 0, pkg.ErrBufferTooSmall
	}
	buf[0] = f.Type
	buf[1] = f.Address
	binary.LittleEndian.PutUint16(buf[2:4], uint16(len(f.Payload)))
	copy(buf[FrameHeaderSize:], f.Payload)
	return f.Size(), nil
}

// Append appends the encoded frame to dst.
func (f Frame) Append(dst []byte) ([]byte, error) {
	start := len(dst)
	dst = append(dst, make([]byte, f.Size())...)
	if _, err := f.MarshalTo(dst[start:]); err != nil {
		return dst[:start], err
	}
	return dst, nil
}

// ParseFrame decodes a frame from a complete message. The payload aliases b.
func ParseFrame(b []byte) (Frame, error) {
	if len(b) < FrameHeaderSize {
		return Frame{}, fmt.Errorf("frame header %d bytes: %w", len(b), pkg.ErrProtocol)
	}
	n := int(binary.LittleEndian.Uint16(b[2:4]))
	if n > MaxPacketSize || len(b) != FrameHeaderSize+n {
		return Frame{}, fmt.Errorf("frame length %d in %d byte message: %w", n, len(b), pkg.ErrProtocol)
	}
	return Frame{Type: b[0], Address: b[1], Payload: b[FrameHeaderSize:]}, nil
}

// WriteFrame encodes f and writes it to w in a single call.
func WriteFrame(w io.Writer, f Frame) error {
	var buf [FrameHeaderSize + MaxPacketSize]byte
	n, err := f.MarshalTo(buf[:])
	if err != nil {
		return err
	}
	_, err = w.Write(buf[:n])
	return err
}

// ReadFrame reads one frame from r. The payload is stored in buf, which
// must hold at least MaxPacketSize bytes to accept any frame.
func ReadFrame(r io.Reader, buf []byte) (Frame, error) {
	var hdr [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	n := int(binary.LittleEndian.Uint16(hdr[2:4]))
	if n > MaxPacketSize {
		return Frame{}, fmt.Errorf("frame length %d: %w", n, pkg.ErrProtocol)
	}
	if n > len(buf) {
		return Frame{}, pkg.ErrBufferTooSmall
	}
	if _, err := io.ReadFull(r, buf[:n]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Frame{}, err
	}
	return Frame{Type: hdr[0], Address: hdr[1], Payload: buf[:n]}, nil
}
