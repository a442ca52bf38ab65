package bulk

import (
	"encoding/binary"
	"math"

	"github.com/ardnew/softbulk/pkg"
	"github.com/ardnew/softbulk/pkg/ring"
)

// DefaultSamples is the block emitted by a Samples processor built with no
// values: the floats 0 through 15.
var DefaultSamples = func() []float32 {
	s := make([]float32, 16)
	for i := range s {
		s[i] = float32(i)
	}
	return s
}()

// Samples answers every inbound notification with a fixed block of
// little-endian float32 values, truncated to the outbound free space. The
// inbound bytes themselves are discarded.
type Samples struct {
	tx       *Buffer
	counters *Counters
	block    []byte
}

// NewSamples returns a Samples processor writing into tx.
func NewSamples(tx *Buffer, counters *Counters, values []float32) *Samples {
	if len(values) == 0 {
		values = DefaultSamples
	}
	block := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(block[4*i:], math.Float32bits(v))
	}
	return &Samples{tx: tx, counters: counters, block: block}
}

// Block returns the encoded sample block.
func (s *Samples) Block() []byte {
	return s.block
}

// Process implements Processor.
func (s *Samples) Process(_ ring.Span, length uint32) uint32 {
	if s.counters != nil {
		s.counters.AddReceived(uint64(length))
	}
	n := s.tx.Write(s.block)
	if n < len(s.block) && pkg.DebugEnabled() {
		pkg.LogDebug(pkg.ComponentPipeline, "sample block truncated",
			"size", len(s.block),
			"written", n)
	}
	return length
}
