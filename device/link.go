package device

// rxLink exposes the packet most recently read from the OUT endpoint to the
// inbound buffer. Only the event goroutine touches pending.
type rxLink struct {
	buf     []byte // Reader-owned until the packet is posted
	pending []byte // Unconsumed tail of the posted packet
}

func (l *rxLink) Transfer(p []byte) int {
	n := copy(p, l.pending)
	l.pending = l.pending[n:]
	return n
}

func (l *rxLink) Available() int {
	return len(l.pending)
}

// txLink hands at most one packet at a time to the IN writer.
type txLink struct {
	pkt  []byte
	busy bool
	out  chan<- []byte
}

func (l *txLink) Transfer(p []byte) int {
	if l.busy || len(p) == 0 {
		return 0
	}
	n := copy(l.pkt, p)
	l.busy = true
	l.out <- l.pkt[:n]
	return n
}

func (l *txLink) Available() int {
	if l.busy {
		return 0
	}
	return len(l.pkt)
}
