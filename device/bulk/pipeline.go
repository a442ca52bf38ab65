package bulk

import (
	"github.com/ardnew/softbulk/pkg"
	"github.com/ardnew/softbulk/pkg/ring"
)

// Processor consumes inbound data in the event context.
//
// Process receives the notified byte count and the inbound bytes lent in
// place. It returns the number of bytes consumed; the caller advances the
// inbound read cursor by that amount.
type Processor interface {
	Process(data ring.Span, length uint32) uint32
}

// Transform writes a transformed copy of src into dst. len(dst) == len(src).
type Transform func(dst, src []byte)

// CaseInvert swaps the case of ASCII letters and copies every other byte.
func CaseInvert(dst, src []byte) {
	for i, c := range src {
		switch {
		case c >= 'a' && c <= 'z':
			dst[i] = c - 'a' + 'A'
		case c >= 'A' && c <= 'Z':
			dst[i] = c - 'A' + 'a'
		default:
			dst[i] = c
		}
	}
}

// Passthrough copies src unchanged.
func Passthrough(dst, src []byte) {
	copy(dst, src)
}

// Echo transforms inbound bytes straight into outbound ring space.
//
// Bytes that do not fit in the outbound free space are dropped, but the full
// notified length is always reported consumed and counted as received, so
// the inbound side never stalls behind a slow host.
type Echo struct {
	tx        *Buffer
	counters  *Counters
	transform Transform
}

// NewEcho returns an echo processor writing into tx. A nil transform copies
// bytes unchanged.
func NewEcho(tx *Buffer, counters *Counters, transform Transform) *Echo {
	if transform == nil {
		transform = Passthrough
	}
	return &Echo{tx: tx, counters: counters, transform: transform}
}

// Process implements Processor.
func (e *Echo) Process(data ring.Span, length uint32) uint32 {
	l := int(length)
	if l > data.Len() {
		l = data.Len()
	}
	n := min(e.tx.Space(), l)

	if e.counters != nil {
		e.counters.AddReceived(uint64(length))
	}

	written := 0
	for written < n {
		// At most two passes: up to the physical end, then from the start.
		r := e.tx.DirectWrite(n - written)
		if r.Len() == 0 {
			break
		}
		written += e.tx.CommitWrite(e.apply(r.Data, data.Slice(written, r.Len())))
	}
	if written > 0 {
		e.tx.Pump()
	}

	if written < l && pkg.DebugEnabled() {
		pkg.LogDebug(pkg.ComponentPipeline, "outbound full, bytes dropped",
			"received", l,
			"echoed", written)
	}
	return length
}

// apply transforms src into dst, which has room for src.Len() bytes.
func (e *Echo) apply(dst []byte, src ring.Span) int {
	n := 0
	for _, part := range [...]ring.Region{src.Head, src.Tail} {
		e.transform(dst[n:n+part.Len()], part.Data)
		n += part.Len()
	}
	return n
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(data ring.Span, length uint32) uint32

// Process calls f.
func (f ProcessorFunc) Process(data ring.Span, length uint32) uint32 {
	return f(data, length)
}
