package bulk

import (
	"context"
	"sync/atomic"
	"time"
)

// Counters holds the channel's liveness totals. The event context
// increments them; any goroutine may read them.
type Counters struct {
	sent     atomic.Uint64
	received atomic.Uint64
}

// AddSent records n bytes reported sent by the transport.
func (c *Counters) AddSent(n uint64) {
	c.sent.Add(n)
}

// AddReceived records n bytes taken from the inbound direction.
func (c *Counters) AddReceived(n uint64) {
	c.received.Add(n)
}

// Sent returns the total bytes sent.
func (c *Counters) Sent() uint64 {
	return c.sent.Load()
}

// Received returns the total bytes received.
func (c *Counters) Received() uint64 {
	return c.received.Load()
}

// Snapshot returns both totals. The two loads are independent; a snapshot
// taken during traffic may pair values from different instants.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{Sent: c.sent.Load(), Received: c.received.Load()}
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Sent     uint64
	Received uint64
}

// Change flags which counters moved between two polls.
type Change uint8

// Change flags.
const (
	ChangeSent Change = 1 << iota
	ChangeReceived
)

// Has reports whether all flags in f are set.
func (c Change) Has(f Change) bool {
	return c&f == f
}

// String returns a short label for the set flags.
func (c Change) String() string {
	switch c {
	case 0:
		return "none"
	case ChangeSent:
		return "sent"
	case ChangeReceived:
		return "received"
	default:
		return "sent+received"
	}
}

// Monitor observes Counters from outside the event context and reports
// movement since its previous poll.
type Monitor struct {
	counters *Counters
	last     Snapshot
}

// NewMonitor returns a monitor whose baseline is zero, so the first poll
// after any traffic reports a change.
func NewMonitor(c *Counters) *Monitor {
	return &Monitor{counters: c}
}

// Poll samples the counters, updates the baseline and reports which moved.
func (m *Monitor) Poll() (Snapshot, Change) {
	cur := m.counters.Snapshot()
	var ch Change
	if cur.Sent != m.last.Sent {
		ch |= ChangeSent
	}
	if cur.Received != m.last.Received {
		ch |= ChangeReceived
	}
	m.last = cur
	return cur, ch
}

// Run polls every interval until ctx is done, calling fn whenever a counter
// moved. It returns ctx.Err().
func (m *Monitor) Run(ctx context.Context, interval time.Duration, fn func(Snapshot, Change)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s, ch := m.Poll(); ch != 0 && fn != nil {
				fn(s, ch)
			}
		}
	}
}
