package framed

import (
	"context"
	"sync"

	"github.com/ardnew/softbulk/device/hal"
	"github.com/ardnew/softbulk/pkg"
)

// Host implements hal.HostHAL over a dialed frame connection.
type Host struct {
	dial Dialer

	mutex      sync.RWMutex
	conn       Conn
	descriptor chan []byte
	desc       []byte
	in         [hal.EndpointNumber + 1]chan []byte
	done       chan struct{} // Closed when the receive goroutine exits
	stop       chan struct{} // Closed by Close
	err        error
}

// NewHost returns a host HAL that connects with dial.
func NewHost(dial Dialer) *Host {
	return &Host{dial: dial}
}

// Open dials the device and starts demultiplexing IN packets.
func (h *Host) Open(ctx context.Context) error {
	conn, err := h.dial(ctx)
	if err != nil {
		return err
	}

	h.mutex.Lock()
	h.conn = conn
	h.desc = nil
	h.err = nil
	h.descriptor = make(chan []byte, 1)
	h.done = make(chan struct{})
	h.stop = make(chan struct{})
	for i := range h.in {
		h.in[i] = make(chan []byte, queueDepth)
	}
	done, stop := h.done, h.stop
	h.mutex.Unlock()

	go h.receive(conn, done, stop)
	pkg.LogInfo(pkg.ComponentHAL, "connected to device")
	return nil
}

// receive routes frames from conn until it fails.
func (h *Host) receive(conn Conn, done, stop chan struct{}) {
	defer close(done)

	var buf [hal.MaxPacketSize]byte
	for {
		f, err := conn.ReadFrame(buf[:])
		if err != nil {
			h.mutex.Lock()
			h.err = err
			h.mutex.Unlock()
			return
		}

		switch f.Type {
		case hal.FrameDescriptor:
			select {
			case h.descriptor <- append([]byte(nil), f.Payload...):
			default:
			}

		case hal.FrameData:
			num := f.Address & hal.EndpointNumber
			if f.Address&hal.EndpointDirIn == 0 {
				continue
			}
			h.mutex.RLock()
			q := h.in[num]
			h.mutex.RUnlock()
			select {
			case q <- append([]byte(nil), f.Payload...):
			case <-stop:
				return
			}
		}
	}
}

// Close disconnects from the device.
func (h *Host) Close() error {
	h.mutex.Lock()
	conn := h.conn
	h.conn = nil
	if conn != nil {
		close(h.stop)
	}
	h.mutex.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (h *Host) current() (Conn, error) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if h.conn == nil {
		return nil, pkg.ErrNoDevice
	}
	return h.conn, nil
}

// Signal implements hal.HostHAL.
func (h *Host) Signal(ctx context.Context, ev hal.BusEvent) error {
	conn, err := h.current()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return conn.WriteFrame(hal.BusFrame(ev))
}

// Write implements hal.HostHAL.
func (h *Host) Write(ctx context.Context, address uint8, data []byte) (int, error) {
	if address&hal.EndpointDirIn != 0 || address&hal.EndpointNumber == 0 {
		return 0, pkg.ErrInvalidEndpoint
	}
	conn, err := h.current()
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := conn.WriteFrame(hal.DataFrame(address, data)); err != nil {
		return 0, err
	}
	return len(data), nil
}

// Read implements hal.HostHAL.
func (h *Host) Read(ctx context.Context, address uint8, buf []byte) (int, error) {
	num := address & hal.EndpointNumber
	if address&hal.EndpointDirIn == 0 || num == 0 {
		return 0, pkg.ErrInvalidEndpoint
	}

	h.mutex.RLock()
	q, done := h.in[num], h.done
	h.mutex.RUnlock()

	if done == nil {
		return 0, pkg.ErrNoDevice
	}

	select {
	case pkt := <-q:
		if len(pkt) > len(buf) {
			return 0, pkg.ErrBufferTooSmall
		}
		return copy(buf, pkt), nil
	case <-done:
		return 0, h.closedErr()
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Descriptor implements hal.HostHAL. It waits for the descriptor frame the
// device sends on accept.
func (h *Host) Descriptor(ctx context.Context) ([]byte, error) {
	h.mutex.RLock()
	desc, ch, done := h.desc, h.descriptor, h.done
	h.mutex.RUnlock()

	if desc != nil {
		return desc, nil
	}
	if ch == nil {
		return nil, pkg.ErrNoDevice
	}

	select {
	case desc = <-ch:
		h.mutex.Lock()
		h.desc = desc
		h.mutex.Unlock()
		return desc, nil
	case <-done:
		return nil, h.closedErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Host) closedErr() error {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if h.err != nil {
		return h.err
	}
	return pkg.ErrDisconnected
}

// Ensure Host implements hal.HostHAL.
var _ hal.HostHAL = (*Host)(nil)
