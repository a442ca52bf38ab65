package framed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ardnew/softbulk/device/hal"
	"github.com/ardnew/softbulk/pkg"
)

// queueDepth is the number of packets buffered per OUT endpoint before the
// connection reader stops pulling from the peer.
const queueDepth = 4

// acceptRetryDelay paces Accept after a failure.
const acceptRetryDelay = 100 * time.Millisecond

// Device implements hal.DeviceHAL over connections from an Acceptor. It
// serves one host connection at a time; a second host is turned away until
// the first leaves. A dropped connection is reported as BusDisconnect.
type Device struct {
	acceptor Acceptor
	speed    hal.Speed

	mutex      sync.RWMutex
	conn       Conn
	descriptor []byte
	started    bool

	connected atomic.Bool
	events    chan hal.BusEvent
	out       [hal.EndpointNumber + 1]chan []byte

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDevice returns a device HAL serving connections from acceptor.
func NewDevice(acceptor Acceptor) *Device {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Device{
		acceptor: acceptor,
		speed:    hal.SpeedHigh,
		events:   make(chan hal.BusEvent, 8),
		ctx:      ctx,
		cancel:   cancel,
	}
	for i := range d.out {
		d.out[i] = make(chan []byte, queueDepth)
	}
	return d
}

// Init implements hal.DeviceHAL.
func (d *Device) Init(ctx context.Context) error {
	return ctx.Err()
}

// PublishDescriptor sets the descriptor frame sent to each host on accept.
func (d *Device) PublishDescriptor(data []byte) error {
	if len(data) > hal.MaxPacketSize {
		return pkg.ErrInvalidParameter
	}
	d.mutex.Lock()
	d.descriptor = append([]byte(nil), data...)
	d.mutex.Unlock()
	return nil
}

// Start begins accepting host connections.
func (d *Device) Start() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.started {
		return pkg.ErrAlreadyRunning
	}
	d.started = true

	d.wg.Add(1)
	go d.acceptLoop()

	pkg.LogInfo(pkg.ComponentHAL, "framed device HAL listening", "addr", d.acceptor.Addr())
	return nil
}

// Stop closes the acceptor and the active connection.
func (d *Device) Stop() error {
	d.cancel()
	err := d.acceptor.Close()

	d.mutex.Lock()
	if d.conn != nil {
		d.conn.Close()
	}
	d.mutex.Unlock()

	d.wg.Wait()
	d.connected.Store(false)
	pkg.LogInfo(pkg.ComponentHAL, "framed device HAL stopped")
	return err
}

// Addr returns the acceptor's listen address.
func (d *Device) Addr() string {
	return d.acceptor.Addr()
}

// acceptLoop admits one connection at a time.
func (d *Device) acceptLoop() {
	defer d.wg.Done()

	for {
		conn, err := d.acceptor.Accept(d.ctx)
		if err != nil {
			if d.ctx.Err() != nil {
				return
			}
			pkg.LogWarn(pkg.ComponentHAL, "accept failed", "error", err)
			select {
			case <-time.After(acceptRetryDelay):
			case <-d.ctx.Done():
				return
			}
			continue
		}

		d.mutex.Lock()
		if d.ctx.Err() != nil {
			d.mutex.Unlock()
			conn.Close()
			return
		}
		if d.conn != nil {
			d.mutex.Unlock()
			pkg.LogWarn(pkg.ComponentHAL, "rejecting second host")
			conn.Close()
			continue
		}
		d.conn = conn
		desc := d.descriptor
		d.mutex.Unlock()

		d.drain()

		if desc != nil {
			if err := conn.WriteFrame(hal.Frame{Type: hal.FrameDescriptor, Payload: desc}); err != nil {
				pkg.LogWarn(pkg.ComponentHAL, "descriptor send failed", "error", err)
			}
		}

		d.wg.Add(1)
		go d.serve(conn)
	}
}

// serve demultiplexes frames from conn until it fails.
func (d *Device) serve(conn Conn) {
	defer d.wg.Done()
	pkg.LogInfo(pkg.ComponentHAL, "host attached")

	var buf [hal.MaxPacketSize]byte
	for {
		f, err := conn.ReadFrame(buf[:])
		if err != nil {
			pkg.LogDebug(pkg.ComponentHAL, "connection closed", "error", err)
			break
		}

		switch f.Type {
		case hal.FrameBus:
			ev := f.Event()
			if ev == hal.BusNone {
				continue
			}
			d.raise(ev)

		case hal.FrameData:
			num := f.Address & hal.EndpointNumber
			if f.Address&hal.EndpointDirIn != 0 || num == 0 {
				pkg.LogWarn(pkg.ComponentHAL, "data frame for invalid endpoint", "address", f.Address)
				continue
			}
			pkt := append([]byte(nil), f.Payload...)
			select {
			case d.out[num] <- pkt:
			case <-d.ctx.Done():
				return
			}

		default:
			pkg.LogWarn(pkg.ComponentHAL, "unknown frame type", "type", f.Type)
		}
	}

	conn.Close()
	d.mutex.Lock()
	d.conn = nil
	d.mutex.Unlock()

	if d.connected.Load() {
		d.raise(hal.BusDisconnect)
	}
	pkg.LogInfo(pkg.ComponentHAL, "host detached")
}

// drain discards packets left over from a previous host.
func (d *Device) drain() {
	for _, q := range d.out {
		for len(q) > 0 {
			<-q
		}
	}
}

// raise records and queues a bus event.
func (d *Device) raise(ev hal.BusEvent) {
	switch ev {
	case hal.BusConnect:
		d.connected.Store(true)
	case hal.BusDisconnect:
		d.connected.Store(false)
	}
	select {
	case d.events <- ev:
	case <-d.ctx.Done():
	}
}

// MaxPacketSize implements hal.DeviceHAL.
func (d *Device) MaxPacketSize() int {
	return hal.MaxPacketSize
}

// WaitBusEvent implements hal.DeviceHAL.
func (d *Device) WaitBusEvent(ctx context.Context) (hal.BusEvent, error) {
	select {
	case ev := <-d.events:
		return ev, nil
	case <-ctx.Done():
		return hal.BusNone, ctx.Err()
	case <-d.ctx.Done():
		return hal.BusNone, pkg.ErrCancelled
	}
}

// Read implements hal.DeviceHAL.
func (d *Device) Read(ctx context.Context, address uint8, buf []byte) (int, error) {
	num := address & hal.EndpointNumber
	if num == 0 || address&hal.EndpointDirIn != 0 {
		return 0, pkg.ErrInvalidEndpoint
	}
	select {
	case pkt := <-d.out[num]:
		if len(pkt) > len(buf) {
			return 0, pkg.ErrBufferTooSmall
		}
		return copy(buf, pkt), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-d.ctx.Done():
		return 0, pkg.ErrCancelled
	}
}

// Write implements hal.DeviceHAL.
func (d *Device) Write(ctx context.Context, address uint8, data []byte) (int, error) {
	if address&hal.EndpointDirIn == 0 || address&hal.EndpointNumber == 0 {
		return 0, pkg.ErrInvalidEndpoint
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	d.mutex.RLock()
	conn := d.conn
	d.mutex.RUnlock()

	if conn == nil {
		return 0, pkg.ErrDisconnected
	}
	if err := conn.WriteFrame(hal.DataFrame(address, data)); err != nil {
		return 0, errors.Join(pkg.ErrDisconnected, err)
	}
	return len(data), nil
}

// IsConnected implements hal.DeviceHAL.
func (d *Device) IsConnected() bool {
	return d.connected.Load()
}

// GetSpeed implements hal.DeviceHAL.
func (d *Device) GetSpeed() hal.Speed {
	return d.speed
}

// Compile-time interface checks
var (
	_ hal.DeviceHAL           = (*Device)(nil)
	_ hal.DescriptorPublisher = (*Device)(nil)
)
