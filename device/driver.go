package device

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ardnew/softbulk/device/bulk"
	"github.com/ardnew/softbulk/device/hal"
	"github.com/ardnew/softbulk/pkg"
)

// inboxDepth bounds events queued for the event goroutine.
const inboxDepth = 16

type eventKind uint8

const (
	eventBus    eventKind = iota // Bus event from the host
	eventPacket                  // OUT packet read into rxLink.buf
	eventRetry                   // Re-offer an unconsumed OUT packet
	eventSent                    // IN packet write finished
	eventCall                    // Run a function in the event context
)

type event struct {
	kind eventKind
	bus  hal.BusEvent
	n    int
	fn   func(*bulk.Channel)
	done chan struct{}
}

// Driver runs a bulk Channel over a link HAL.
//
// Link I/O happens on three goroutines: a bus event reader, an OUT packet
// reader and an IN packet writer. They only post events. A fourth goroutine,
// the event context, owns the channel and handles every event in order, so
// channel state is never touched concurrently.
type Driver struct {
	cfg     Config
	hal     hal.DeviceHAL
	channel *bulk.Channel
	rx      *rxLink
	tx      *txLink

	inbox      chan event
	outgoing   chan []byte
	drained    chan struct{}
	configured chan struct{} // Wakes the reader after a connect
	held       bool          // Reader is waiting for drained
	retry      *time.Timer   // Pending redelivery, owned by the event loop

	// State
	running bool
	mutex   sync.RWMutex

	// Context for cancellation
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDriver creates a driver for h. The channel is built immediately so a
// processor can be installed before Start.
func NewDriver(cfg Config, h hal.DeviceHAL) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	packetSize := min(cfg.PacketSize, h.MaxPacketSize())

	d := &Driver{
		cfg:      cfg,
		hal:      h,
		inbox:    make(chan event, inboxDepth),
		outgoing: make(chan []byte, 1),
		drained:  make(chan struct{}, 1),

		configured: make(chan struct{}, 1),
	}
	d.rx = &rxLink{buf: make([]byte, h.MaxPacketSize())}
	d.tx = &txLink{pkt: make([]byte, packetSize), out: d.outgoing}
	d.channel = bulk.NewChannel(bulk.ChannelConfig{
		Identity:   cfg.Identity,
		BufferSize: cfg.BufferSize,
		PacketSize: packetSize,
		RxLink:     d.rx,
		TxLink:     d.tx,
	})
	return d, nil
}

// Channel returns the driven channel. Outside the event context only its
// Counters, Configured and Identity methods may be used; see Do.
func (d *Driver) Channel() *bulk.Channel {
	return d.channel
}

// Config returns the driver configuration.
func (d *Driver) Config() Config {
	return d.cfg
}

// Start initializes the HAL, publishes the descriptor chain and starts the
// driver goroutines.
func (d *Driver) Start(ctx context.Context) error {
	d.mutex.Lock()
	if d.running {
		d.mutex.Unlock()
		return pkg.ErrAlreadyRunning
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.mutex.Unlock()

	if err := d.hal.Init(d.ctx); err != nil {
		d.cancel()
		return err
	}

	if p, ok := d.hal.(hal.DescriptorPublisher); ok {
		if err := p.PublishDescriptor(MarshalIdentity(d.cfg.Identity, d.cfg.endpoints())); err != nil {
			d.cancel()
			return err
		}
	}

	if err := d.hal.Start(); err != nil {
		d.cancel()
		return err
	}

	d.mutex.Lock()
	d.running = true
	d.mutex.Unlock()

	d.wg.Add(4)
	go d.eventLoop()
	go d.busLoop()
	go d.readLoop()
	go d.writeLoop()

	pkg.LogInfo(pkg.ComponentDriver, "driver started",
		"buffer", d.cfg.BufferSize,
		"packet", len(d.tx.pkt),
		"in", d.cfg.InAddress,
		"out", d.cfg.OutAddress)
	return nil
}

// Stop stops the driver goroutines and the HAL.
func (d *Driver) Stop() error {
	d.mutex.Lock()
	if !d.running {
		d.mutex.Unlock()
		return nil
	}

	d.running = false
	if d.cancel != nil {
		d.cancel()
	}
	d.mutex.Unlock()

	err := d.hal.Stop()
	d.wg.Wait()

	if d.retry != nil {
		d.retry.Stop()
		d.retry = nil
	}

	pkg.LogInfo(pkg.ComponentDriver, "driver stopped")
	return err
}

// IsRunning returns true if the driver is running.
func (d *Driver) IsRunning() bool {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.running
}

// Do runs fn in the event context and waits for it to return.
func (d *Driver) Do(ctx context.Context, fn func(*bulk.Channel)) error {
	if !d.IsRunning() {
		return pkg.ErrNotRunning
	}
	done := make(chan struct{})
	select {
	case d.inbox <- event{kind: eventCall, fn: fn, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	case <-d.ctx.Done():
		return pkg.ErrNotRunning
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.ctx.Done():
		return pkg.ErrNotRunning
	}
}

// post queues ev for the event context.
func (d *Driver) post(ev event) bool {
	select {
	case d.inbox <- ev:
		return true
	case <-d.ctx.Done():
		return false
	}
}

// pause waits for RetryDelay and reports whether the driver is still
// running.
func (d *Driver) pause() bool {
	select {
	case <-time.After(d.cfg.RetryDelay):
		return true
	case <-d.ctx.Done():
		return false
	}
}

// stopped reports whether err means the driver is shutting down.
func (d *Driver) stopped(err error) bool {
	return d.ctx.Err() != nil || errors.Is(err, pkg.ErrCancelled)
}

// busLoop forwards bus events.
func (d *Driver) busLoop() {
	defer d.wg.Done()

	for {
		ev, err := d.hal.WaitBusEvent(d.ctx)
		if err != nil {
			if d.stopped(err) {
				return
			}
			pkg.LogWarn(pkg.ComponentDriver, "bus event wait failed", "error", err)
			if !d.pause() {
				return
			}
			continue
		}
		if !d.post(event{kind: eventBus, bus: ev}) {
			return
		}
	}
}

// readLoop reads OUT packets, one at a time, and only while the channel is
// configured. Packets the host sends ahead of the connect are left on the
// link until the connect flush is done. The packet buffer belongs to the
// event context from post until it signals drained.
func (d *Driver) readLoop() {
	defer d.wg.Done()

	for {
		for !d.channel.Configured() {
			select {
			case <-d.configured:
			case <-d.ctx.Done():
				return
			}
		}

		n, err := d.hal.Read(d.ctx, d.cfg.OutAddress, d.rx.buf)
		if err != nil {
			if d.stopped(err) {
				return
			}
			pkg.LogWarn(pkg.ComponentDriver, "OUT read failed", "error", err)
			if !d.pause() {
				return
			}
			continue
		}
		if !d.post(event{kind: eventPacket, n: n}) {
			return
		}
		select {
		case <-d.drained:
		case <-d.ctx.Done():
			return
		}
	}
}

// writeLoop sends IN packets handed over by txLink. A failed write drops
// the packet and completes it with zero bytes.
func (d *Driver) writeLoop() {
	defer d.wg.Done()

	for {
		var pkt []byte
		select {
		case pkt = <-d.outgoing:
		case <-d.ctx.Done():
			return
		}

		n, err := d.hal.Write(d.ctx, d.cfg.InAddress, pkt)
		if err != nil {
			if d.stopped(err) {
				return
			}
			pkg.LogWarn(pkg.ComponentDriver, "IN write failed, packet dropped",
				"error", err,
				"bytes", len(pkt))
			n = 0
		}
		if !d.post(event{kind: eventSent, n: n}) {
			return
		}
	}
}

// eventLoop is the event context.
func (d *Driver) eventLoop() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		case ev := <-d.inbox:
			d.handle(ev)
		}
	}
}

func (d *Driver) handle(ev event) {
	rx, tx := d.channel.Rx(), d.channel.Tx()

	switch ev.kind {
	case eventBus:
		switch ev.bus {
		case hal.BusConnect:
			d.dropPending()
			rx.HandleEvent(bulk.EventConnected, 0)
			select {
			case d.configured <- struct{}{}:
			default:
			}
		case hal.BusDisconnect:
			rx.HandleEvent(bulk.EventDisconnected, 0)
		case hal.BusSuspend:
			rx.HandleEvent(bulk.EventSuspend, 0)
		case hal.BusResume:
			rx.HandleEvent(bulk.EventResume, 0)
		}

	case eventPacket:
		d.held = true
		d.rx.pending = d.rx.buf[:ev.n]
		d.deliver()

	case eventRetry:
		d.retry = nil
		d.deliver()

	case eventSent:
		d.tx.busy = false
		tx.HandleEvent(bulk.EventTxComplete, uint32(ev.n))
		if rx.DataAvailable() > 0 {
			d.deliver()
		}

	case eventCall:
		ev.fn(d.channel)
		close(ev.done)
	}
}

// deliver offers the pending OUT packet and any unconsumed inbound bytes to
// the inbound buffer. Once the packet is fully taken the reader may fetch
// the next one. Anything still unconsumed is offered again after
// RetryDelay.
func (d *Driver) deliver() {
	rx := d.channel.Rx()
	if n := rx.DataAvailable(); n > 0 {
		rx.HandleEvent(bulk.EventRxAvailable, uint32(n))
	}
	if d.rx.Available() == 0 {
		d.ack()
	}
	if rx.DataAvailable() == 0 {
		return
	}
	if d.retry == nil {
		d.retry = time.AfterFunc(d.cfg.RetryDelay, func() {
			d.post(event{kind: eventRetry})
		})
	}
	if pkg.DebugEnabled() {
		pkg.LogDebug(pkg.ComponentDriver, "inbound data held",
			"buffered", rx.Len(),
			"pending", d.rx.Available())
	}
}

// dropPending discards a held OUT packet.
func (d *Driver) dropPending() {
	if d.rx.Available() == 0 {
		return
	}
	pkg.LogDebug(pkg.ComponentDriver, "dropping held packet", "bytes", d.rx.Available())
	d.rx.pending = nil
	d.ack()
}

// ack releases the packet buffer to the reader.
func (d *Driver) ack() {
	if !d.held {
		return
	}
	d.held = false
	select {
	case d.drained <- struct{}{}:
	default:
	}
}
