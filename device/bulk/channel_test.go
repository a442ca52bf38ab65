package bulk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/softbulk/pkg/ring"
)

const hello = "Hello, World! 12"

func TestEchoFillsOutbound(t *testing.T) {
	c, rx, _ := stalledChannel()
	require.Equal(t, 256, c.Tx().Space())

	consumed := receive(c, rx, []byte(hello))

	assert.Equal(t, uint32(16), consumed)
	assert.Equal(t, 16, c.Tx().Len())
	assert.Equal(t, uint64(16), c.Counters().Received())
	assert.Zero(t, c.Rx().Len())

	out := make([]byte, 16)
	require.Equal(t, 16, c.Tx().Read(out))
	assert.Equal(t, []byte("hELLO, wORLD! 12"), out)
}

func TestEchoDropsWhenOutboundNearlyFull(t *testing.T) {
	c, rx, _ := stalledChannel()
	filler := make([]byte, 252)
	require.Equal(t, 252, c.Tx().Write(filler))
	require.Equal(t, 4, c.Tx().Space())

	consumed := receive(c, rx, []byte(hello))

	assert.Equal(t, uint32(16), consumed)
	assert.Equal(t, 256, c.Tx().Len())
	assert.Equal(t, uint64(16), c.Counters().Received())
	assert.Zero(t, c.Rx().Len(), "inbound side must not stall")

	out := make([]byte, 256)
	require.Equal(t, 256, c.Tx().Read(out))
	assert.Equal(t, []byte("hELL"), out[252:])
}

func TestEchoWrapsOutbound(t *testing.T) {
	c, rx, _ := stalledChannel()

	// Park both outbound cursors 6 bytes before the physical end.
	scratch := make([]byte, 250)
	require.Equal(t, 250, c.Tx().Write(scratch))
	require.Equal(t, 250, c.Tx().Read(scratch))

	receive(c, rx, []byte(hello))

	info := c.Tx().Info()
	assert.Equal(t, 250, info.ReadIndex)
	assert.Equal(t, 10, info.WriteIndex)

	out := make([]byte, 16)
	require.Equal(t, 16, c.Tx().Read(out))
	assert.Equal(t, inverted(hello), out)
}

func TestEchoInboundWraps(t *testing.T) {
	c, rx, _ := stalledChannel()

	// Park the inbound cursors so the next packet straddles the end.
	var pos int
	c.SetProcessor(ProcessorFunc(func(_ ring.Span, n uint32) uint32 { return n }))
	for pos < 248 {
		receive(c, rx, make([]byte, 62))
		pos += 62
	}
	require.Equal(t, 248, c.Rx().Info().ReadIndex)

	c.SetProcessor(NewEcho(c.Tx(), c.Counters(), CaseInvert))
	receive(c, rx, []byte(hello))

	out := make([]byte, 16)
	require.Equal(t, 16, c.Tx().Read(out))
	assert.Equal(t, inverted(hello), out)
}

func TestEchoPassthrough(t *testing.T) {
	c, rx, _ := stalledChannel()
	c.SetProcessor(NewEcho(c.Tx(), c.Counters(), nil))

	receive(c, rx, []byte(hello))

	out := make([]byte, 16)
	require.Equal(t, 16, c.Tx().Read(out))
	assert.Equal(t, []byte(hello), out)
}

func TestDisconnectedTwice(t *testing.T) {
	c, _, _ := stalledChannel()
	c.Rx().HandleEvent(EventConnected, 0)
	require.True(t, c.Configured())

	c.Rx().HandleEvent(EventDisconnected, 0)
	assert.False(t, c.Configured())
	c.Rx().HandleEvent(EventDisconnected, 0)
	assert.False(t, c.Configured())
}

func TestConnectedFlushesBoth(t *testing.T) {
	c, rx, _ := stalledChannel()
	c.SetProcessor(ProcessorFunc(func(ring.Span, uint32) uint32 { return 0 }))
	receive(c, rx, []byte("pending"))
	c.Tx().Write([]byte("stale"))
	require.Equal(t, 7, c.Rx().Len())
	require.Equal(t, 5, c.Tx().Len())

	c.Rx().HandleEvent(EventConnected, 0)

	assert.True(t, c.Configured())
	assert.Zero(t, c.Rx().Len())
	assert.Zero(t, c.Tx().Len())
	assert.Equal(t, 256, c.Tx().Space())
}

func TestConnectedTwice(t *testing.T) {
	c, rx, _ := stalledChannel()
	c.Rx().HandleEvent(EventConnected, 0)
	require.True(t, c.Configured())

	receive(c, rx, []byte(hello))
	require.Equal(t, 16, c.Tx().Len())
	received, sent := c.Counters().Received(), c.Counters().Sent()
	require.Equal(t, uint64(16), received)

	c.Rx().HandleEvent(EventConnected, 0)

	assert.True(t, c.Configured())
	for _, b := range []*Buffer{c.Rx(), c.Tx()} {
		assert.Zero(t, b.Len(), b.Direction().String())
		assert.Equal(t, b.Cap(), b.Space(), b.Direction().String())
	}
	assert.Equal(t, received, c.Counters().Received())
	assert.Equal(t, sent, c.Counters().Sent())
}

func TestTxSpaceIgnoresLinkState(t *testing.T) {
	c, _, tx := stalledChannel()
	require.Equal(t, 10, c.Tx().Write(make([]byte, 10)))
	assert.Equal(t, c.Tx().Cap()-10, c.Tx().Space(), "held link")

	tx.hold = false
	c.Tx().Pump()
	require.True(t, tx.busy)
	assert.Zero(t, c.Tx().Len())
	assert.Equal(t, c.Tx().Cap(), c.Tx().Space(), "bytes in flight are not buffered")
}

func TestTxCompleteCountsAndPumps(t *testing.T) {
	c, _, tx := stalledChannel()
	tx.hold = false

	payload := make([]byte, 100)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.Equal(t, 100, c.Tx().Write(payload))
	require.Len(t, tx.packets, 1)
	assert.Len(t, tx.packets[0], 64)
	assert.Equal(t, 36, c.Tx().Len())

	c.Tx().HandleEvent(EventTxComplete, tx.complete())
	assert.Equal(t, uint64(64), c.Counters().Sent())
	require.Len(t, tx.packets, 2)
	assert.Zero(t, c.Tx().Len())

	c.Tx().HandleEvent(EventTxComplete, tx.complete())
	assert.Equal(t, uint64(100), c.Counters().Sent())
	assert.Equal(t, payload, tx.sent())
}

func TestPumpAssemblesWrappedPacket(t *testing.T) {
	tx := &packetLink{size: 8, hold: true}
	b := NewBuffer(BufferConfig{
		Direction:  DirectionTx,
		Store:      make([]byte, 16),
		Link:       tx,
		PacketSize: 8,
	})
	b.Init()

	skip := make([]byte, 12)
	b.Write(skip)
	b.Read(skip)
	require.Equal(t, 8, b.Write([]byte("abcdefgh")))

	tx.hold = false
	assert.Equal(t, 8, b.Pump())
	require.Len(t, tx.packets, 1)
	assert.Equal(t, []byte("abcdefgh"), tx.packets[0])
}

func TestUnconsumedInboundIsRetained(t *testing.T) {
	c, rx, _ := stalledChannel()
	var calls []uint32
	c.SetProcessor(ProcessorFunc(func(data ring.Span, n uint32) uint32 {
		calls = append(calls, n)
		if len(calls) == 1 {
			return 0
		}
		return n
	}))

	assert.Equal(t, uint32(0), receive(c, rx, []byte("first")))
	assert.Equal(t, 5, c.Rx().Len())

	assert.Equal(t, uint32(11), receive(c, rx, []byte("second")))
	assert.Equal(t, []uint32{5, 11}, calls)
	assert.Zero(t, c.Rx().Len())
}

func TestPartialConsumption(t *testing.T) {
	c, rx, _ := stalledChannel()
	var got []byte
	c.SetProcessor(ProcessorFunc(func(data ring.Span, n uint32) uint32 {
		take := min(n, 4)
		buf := make([]byte, take)
		data.Slice(0, int(take)).CopyTo(buf)
		got = append(got, buf...)
		return take
	}))

	assert.Equal(t, uint32(10), receive(c, rx, []byte("0123456789")))
	assert.Equal(t, []byte("0123456789"), got)
}

func TestNilProcessorDiscards(t *testing.T) {
	c, rx, _ := stalledChannel()
	c.SetProcessor(nil)

	assert.Equal(t, uint32(6), receive(c, rx, []byte("ignore")))
	assert.Zero(t, c.Rx().Len())
	assert.Zero(t, c.Tx().Len())
	assert.Zero(t, c.Counters().Received())
}

func TestIgnoredEvents(t *testing.T) {
	c, _, _ := stalledChannel()

	tests := []struct {
		dir Direction
		ev  Event
	}{
		{DirectionRx, Event(99)},
		{DirectionRx, EventSuspend},
		{DirectionTx, EventResume},
		{DirectionTx, EventRxAvailable},
		{DirectionRx, EventTxComplete},
	}
	for _, tt := range tests {
		t.Run(tt.dir.String()+"/"+tt.ev.String(), func(t *testing.T) {
			assert.Zero(t, c.HandleEvent(tt.dir, tt.ev, 7, ring.Span{}))
		})
	}
	assert.Zero(t, c.Counters().Sent())
	assert.Zero(t, c.Counters().Received())
}

func TestDataAvailableIncludesLink(t *testing.T) {
	c, rx, _ := stalledChannel()
	c.SetProcessor(ProcessorFunc(func(ring.Span, uint32) uint32 { return 0 }))
	receive(c, rx, []byte("abc"))
	rx.feed([]byte("de"))

	assert.Equal(t, 3, c.Rx().Len())
	assert.Equal(t, 5, c.Rx().DataAvailable())
	assert.Zero(t, c.Tx().DataAvailable())
}

func TestSamplesProcessor(t *testing.T) {
	c, rx, _ := stalledChannel()
	s := NewSamples(c.Tx(), c.Counters(), nil)
	c.SetProcessor(s)

	assert.Equal(t, uint32(5), receive(c, rx, []byte("start")))
	assert.Equal(t, 64, c.Tx().Len())
	assert.Equal(t, uint64(5), c.Counters().Received())

	out := make([]byte, 64)
	c.Tx().Read(out)
	assert.Equal(t, s.Block(), out)
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, out[4:8]) // 1.0
}

func TestSamplesTruncated(t *testing.T) {
	c, rx, _ := stalledChannel()
	c.SetProcessor(NewSamples(c.Tx(), c.Counters(), []float32{1, 2, 3}))
	c.Tx().Write(make([]byte, 250))

	receive(c, rx, []byte("x"))
	assert.Equal(t, 256, c.Tx().Len())
}

func TestCaseInvert(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"abc", "ABC"},
		{"XYZ", "xyz"},
		{"a1@[`{Z", "A1@[`{z"},
		{"\x00\xff", "\x00\xff"},
	}
	for _, tt := range tests {
		dst := make([]byte, len(tt.in))
		CaseInvert(dst, []byte(tt.in))
		assert.Equal(t, tt.want, string(dst), "input %q", tt.in)
	}
}

func TestEventString(t *testing.T) {
	assert.Equal(t, "rx-available", EventRxAvailable.String())
	assert.Equal(t, "event(42)", Event(42).String())
	assert.Equal(t, "tx", DirectionTx.String())
}
