// Package bulk implements a buffered full-duplex bulk data channel.
//
// A [Channel] pairs two [Buffer] endpoints, one per [Direction], each backed
// by a [ring.Buffer]. The transport reports activity by calling
// [Buffer.HandleEvent]; the buffer moves bytes between its ring and the
// transport's [Link] and forwards the event to the channel's dispatcher,
// which routes inbound data to a [Processor].
//
// # Event Context
//
// Buffer and Channel methods are not safe for concurrent use. They must all
// run on a single goroutine, the event context, which the transport driver
// owns. Only [Counters] and [Channel.Configured] may be read from elsewhere.
//
// # Processors
//
// [Echo] writes a transformed copy of inbound bytes into outbound ring space
// in place, without an intermediate buffer. [Samples] answers each inbound
// notification with a fixed block of float32 values.
//
// [ring.Buffer]: github.com/ardnew/softbulk/pkg/ring.Buffer
package bulk
