package bulk

import (
	"sync/atomic"

	"github.com/ardnew/softbulk/pkg"
	"github.com/ardnew/softbulk/pkg/ring"
)

// Default channel parameters.
const (
	DefaultBufferSize = 256
	DefaultPacketSize = 64
)

// Identity is the descriptive data the device presents to the host. It has
// no effect on the data path.
type Identity struct {
	VendorID     uint16
	ProductID    uint16
	DeviceBCD    uint16
	Manufacturer string
	Product      string
	Serial       string
	Interface    string
	Config       string
	SelfPowered  bool
	MaxPowerMA   uint16
}

// ChannelConfig configures a Channel.
type ChannelConfig struct {
	Identity   Identity
	BufferSize int  // Capacity of each direction's ring
	PacketSize int  // Transport packet unit
	RxLink     Link // Inbound transport primitives
	TxLink     Link // Outbound transport primitives
}

// Channel is one full-duplex bulk channel: an inbound and an outbound
// Buffer sharing a dispatcher, a processor and liveness counters.
//
// All methods except Configured, Counters and Identity must run in the
// event context.
type Channel struct {
	identity   Identity
	rx         *Buffer
	tx         *Buffer
	counters   Counters
	configured atomic.Bool
	processor  Processor
}

// NewChannel builds a channel with both rings initialized and the default
// case-inverting echo processor installed.
func NewChannel(cfg ChannelConfig) *Channel {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.PacketSize <= 0 {
		cfg.PacketSize = DefaultPacketSize
	}

	c := &Channel{identity: cfg.Identity}
	c.rx = NewBuffer(BufferConfig{
		Direction:  DirectionRx,
		Store:      make([]byte, cfg.BufferSize),
		Link:       cfg.RxLink,
		Handler:    c,
		PacketSize: cfg.PacketSize,
	})
	c.tx = NewBuffer(BufferConfig{
		Direction:  DirectionTx,
		Store:      make([]byte, cfg.BufferSize),
		Link:       cfg.TxLink,
		Handler:    c,
		PacketSize: cfg.PacketSize,
	})
	c.rx.Init()
	c.tx.Init()
	c.processor = NewEcho(c.tx, &c.counters, CaseInvert)
	return c
}

// SetProcessor replaces the inbound processor. A nil processor discards
// inbound data. Call before the transport starts delivering events.
func (c *Channel) SetProcessor(p Processor) {
	c.processor = p
}

// Rx returns the inbound direction.
func (c *Channel) Rx() *Buffer { return c.rx }

// Tx returns the outbound direction.
func (c *Channel) Tx() *Buffer { return c.tx }

// Counters returns the liveness counters.
func (c *Channel) Counters() *Counters { return &c.counters }

// Identity returns the channel's identity.
func (c *Channel) Identity() Identity { return c.identity }

// Configured reports whether the host has configured the channel.
func (c *Channel) Configured() bool {
	return c.configured.Load()
}

// HandleEvent dispatches a channel event. It is installed as the Handler of
// both directions.
//
// Connected marks the channel configured and flushes both rings.
// Disconnected clears the flag. RxAvailable is handed to the processor and
// returns the count it consumed. TxComplete adds value to the sent total.
// Anything else is ignored and returns 0.
func (c *Channel) HandleEvent(dir Direction, ev Event, value uint32, data ring.Span) uint32 {
	switch ev {
	case EventConnected:
		c.configured.Store(true)
		c.tx.Flush()
		c.rx.Flush()
		pkg.LogInfo(pkg.ComponentDispatch, "host connected")

	case EventDisconnected:
		c.configured.Store(false)
		pkg.LogInfo(pkg.ComponentDispatch, "host disconnected")

	case EventRxAvailable:
		if dir != DirectionRx {
			return 0
		}
		if c.processor == nil {
			return value
		}
		return c.processor.Process(data, value)

	case EventTxComplete:
		if dir != DirectionTx {
			return 0
		}
		c.counters.AddSent(uint64(value))
		if pkg.DebugEnabled() {
			pkg.LogDebug(pkg.ComponentDispatch, "tx complete", "bytes", value)
		}

	case EventSuspend, EventResume:
		if pkg.DebugEnabled() {
			pkg.LogDebug(pkg.ComponentDispatch, "bus state", "event", ev.String())
		}

	default:
		if pkg.DebugEnabled() {
			pkg.LogDebug(pkg.ComponentDispatch, "ignored event",
				"dir", dir.String(),
				"event", ev.String(),
				"value", value)
		}
	}
	return 0
}
