package bulk

// sourceLink is an inbound link holding one pending packet.
type sourceLink struct {
	pending []byte
}

func (l *sourceLink) feed(p []byte) {
	l.pending = append(l.pending, p...)
}

func (l *sourceLink) Transfer(p []byte) int {
	n := copy(p, l.pending)
	l.pending = l.pending[n:]
	return n
}

func (l *sourceLink) Available() int {
	return len(l.pending)
}

// packetLink is an outbound link with a single packet in flight. While hold
// is set it accepts nothing.
type packetLink struct {
	size    int
	hold    bool
	busy    bool
	packets [][]byte
}

func (l *packetLink) Transfer(p []byte) int {
	if l.hold || l.busy || len(p) == 0 {
		return 0
	}
	n := min(len(p), l.size)
	l.packets = append(l.packets, append([]byte(nil), p[:n]...))
	l.busy = true
	return n
}

func (l *packetLink) Available() int {
	if l.hold || l.busy {
		return 0
	}
	return l.size
}

// complete finishes the in-flight packet and returns its length.
func (l *packetLink) complete() uint32 {
	l.busy = false
	if len(l.packets) == 0 {
		return 0
	}
	return uint32(len(l.packets[len(l.packets)-1]))
}

func (l *packetLink) sent() []byte {
	var out []byte
	for _, p := range l.packets {
		out = append(out, p...)
	}
	return out
}

// stalledChannel returns a 256-byte channel whose outbound link never
// accepts data, so outbound occupancy stays observable.
func stalledChannel() (*Channel, *sourceLink, *packetLink) {
	rx := &sourceLink{}
	tx := &packetLink{size: DefaultPacketSize, hold: true}
	c := NewChannel(ChannelConfig{
		BufferSize: 256,
		PacketSize: DefaultPacketSize,
		RxLink:     rx,
		TxLink:     tx,
	})
	return c, rx, tx
}

// receive feeds p to the inbound link and raises EventRxAvailable.
func receive(c *Channel, rx *sourceLink, p []byte) uint32 {
	rx.feed(p)
	return c.Rx().HandleEvent(EventRxAvailable, uint32(len(p)))
}

func inverted(s string) []byte {
	out := make([]byte, len(s))
	CaseInvert(out, []byte(s))
	return out
}
