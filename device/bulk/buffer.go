package bulk

import (
	"github.com/ardnew/softbulk/pkg"
	"github.com/ardnew/softbulk/pkg/ring"
)

// BufferConfig describes one direction endpoint.
type BufferConfig struct {
	Direction  Direction
	Store      []byte  // Ring backing store; its length is the capacity
	Link       Link    // Transport primitives for this direction
	Handler    Handler // Application callback
	PacketSize int     // Transport packet unit; sizes the scratch workspace
}

// Buffer is the buffering and flow-control state for one direction of the
// channel. It presents the direction's ring to the transport through
// [Buffer.HandleEvent] and to the application through copy and direct
// access methods.
//
// The inbound ring doubles as the transport's staging memory: packet bytes
// are pulled into it and handed to the handler in place.
type Buffer struct {
	dir     Direction
	ring    *ring.Buffer
	link    Link
	handler Handler
	scratch []byte
}

// NewBuffer creates a direction endpoint. Call Init before any transfer.
func NewBuffer(cfg BufferConfig) *Buffer {
	return &Buffer{
		dir:     cfg.Direction,
		ring:    ring.New(cfg.Store),
		link:    cfg.Link,
		handler: cfg.Handler,
		scratch: make([]byte, cfg.PacketSize),
	}
}

// Init resets both cursors.
func (b *Buffer) Init() {
	b.ring.Reset()
}

// Flush discards all buffered content.
func (b *Buffer) Flush() {
	dropped := b.ring.Len()
	b.ring.Reset()
	if dropped > 0 && pkg.DebugEnabled() {
		pkg.LogDebug(pkg.ComponentBuffer, "flushed",
			"dir", b.dir.String(),
			"dropped", dropped)
	}
}

// Direction returns the buffer's direction.
func (b *Buffer) Direction() Direction {
	return b.dir
}

// Cap returns the ring capacity.
func (b *Buffer) Cap() int {
	return b.ring.Cap()
}

// Len returns the number of bytes held in the ring.
func (b *Buffer) Len() int {
	return b.ring.Len()
}

// Space returns the number of bytes the ring can accept. No link buffers
// ahead of the outbound ring: Transfer copies the packet out before it
// returns, so bytes in flight no longer occupy space. Inbound bytes still
// pending in the link are reported by DataAvailable and do not reduce Space.
func (b *Buffer) Space() int {
	return b.ring.Free()
}

// DataAvailable returns the bytes ready for the application. For the inbound
// direction this includes bytes still pending in the transport.
func (b *Buffer) DataAvailable() int {
	n := b.ring.Len()
	if b.dir == DirectionRx && b.link != nil {
		n += b.link.Available()
	}
	return n
}

// Info returns a snapshot of the ring's cursors.
func (b *Buffer) Info() ring.Info {
	return b.ring.Info()
}

// Write enqueues up to Space() bytes of p and returns the number accepted.
// On the outbound direction it then passes as much as the transport will
// take; the return value does not reflect what reached the wire.
func (b *Buffer) Write(p []byte) int {
	n := b.ring.Write(p)
	if n > 0 && b.dir == DirectionTx {
		b.Pump()
	}
	return n
}

// Read copies buffered bytes into p and returns the number copied.
func (b *Buffer) Read(p []byte) int {
	return b.ring.Read(p)
}

// DirectWrite lends the contiguous free region at the write cursor, at most
// n bytes long and never crossing the physical end of the ring.
func (b *Buffer) DirectWrite(n int) ring.Region {
	return b.ring.WriteRegion(n)
}

// CommitWrite publishes n bytes written into the last DirectWrite region.
func (b *Buffer) CommitWrite(n int) int {
	return b.ring.CommitWrite(n)
}

// DirectRead lends the contiguous readable region at the read cursor, at most
// n bytes long and never crossing the physical end of the ring.
func (b *Buffer) DirectRead(n int) ring.Region {
	return b.ring.ReadRegion(n)
}

// Span lends up to n readable bytes, which may wrap.
func (b *Buffer) Span(n int) ring.Span {
	return b.ring.ReadSpan(n)
}

// CommitRead releases n bytes of the last DirectRead region or Span.
func (b *Buffer) CommitRead(n int) int {
	return b.ring.CommitRead(n)
}

// Pump moves as many bytes between the ring and the transport as the link
// currently allows and returns the number moved.
func (b *Buffer) Pump() int {
	if b.link == nil {
		return 0
	}
	if b.dir == DirectionRx {
		return b.pumpIn()
	}
	return b.pumpOut()
}

// pumpIn pulls pending transport bytes into free ring space.
func (b *Buffer) pumpIn() int {
	total := 0
	for {
		avail := b.link.Available()
		if avail == 0 || b.ring.IsFull() {
			return total
		}
		r := b.ring.WriteRegion(avail)
		n := b.link.Transfer(r.Data)
		b.ring.CommitWrite(n)
		total += n
		if n == 0 {
			return total
		}
	}
}

// pumpOut hands buffered bytes to the transport. A run that straddles the
// physical end is assembled in scratch so the transport sees one packet.
func (b *Buffer) pumpOut() int {
	total := 0
	for {
		want := b.link.Available()
		if want == 0 || b.ring.IsEmpty() {
			return total
		}
		if len(b.scratch) > 0 && want > len(b.scratch) {
			want = len(b.scratch)
		}
		s := b.ring.ReadSpan(want)
		var n int
		if s.Tail.Len() == 0 || len(b.scratch) == 0 {
			n = b.link.Transfer(s.Head.Data)
		} else {
			m := s.CopyTo(b.scratch)
			n = b.link.Transfer(b.scratch[:m])
		}
		b.ring.CommitRead(n)
		total += n
		if n == 0 {
			return total
		}
	}
}

// HandleEvent is the transport's entry point for this direction.
//
// EventRxAvailable pulls pending packet bytes into the inbound ring and
// offers everything buffered to the handler, advancing the read cursor by
// what it consumed. EventTxComplete is forwarded to the handler and the next
// packet is scheduled. Every other event is forwarded unchanged.
func (b *Buffer) HandleEvent(ev Event, value uint32) uint32 {
	switch {
	case ev == EventRxAvailable && b.dir == DirectionRx:
		return b.deliver()

	case ev == EventTxComplete && b.dir == DirectionTx:
		if b.handler != nil {
			b.handler.HandleEvent(b.dir, ev, value, ring.Span{})
		}
		b.Pump()
		return 0

	default:
		if b.handler == nil {
			return 0
		}
		return b.handler.HandleEvent(b.dir, ev, value, ring.Span{})
	}
}

// deliver runs the inbound half of HandleEvent.
func (b *Buffer) deliver() uint32 {
	var consumed uint32
	b.Pump()
	for {
		used := b.ring.Len()
		if used == 0 {
			return consumed
		}
		if b.handler == nil {
			// Nobody to hand it to.
			b.ring.Reset()
			b.Pump()
			continue
		}
		data := b.ring.ReadSpan(used)
		n := b.handler.HandleEvent(b.dir, EventRxAvailable, uint32(used), data)
		if int(n) > used {
			n = uint32(used)
		}
		b.ring.CommitRead(int(n))
		consumed += n
		moved := b.Pump()
		if n == 0 && moved == 0 {
			return consumed
		}
	}
}
