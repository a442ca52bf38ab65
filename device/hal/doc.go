// Package hal defines the link abstraction beneath the bulk channel.
//
// A [DeviceHAL] carries endpoint packets and bus events between a device
// process and a host. The device driver reads OUT packets, writes IN packets
// and waits for bus events; it never sees how they travel. A [HostHAL] is
// the matching host side, used by tools and tests.
//
// # Frames
//
// Links that multiplex everything over one stream or message channel use
// the [Frame] encoding:
//
//	+------+---------+--------+--------+-----------------+
//	| type | address | len_lo | len_hi | payload (<=512) |
//	+------+---------+--------+--------+-----------------+
//
// Types are [FrameData] (address is the endpoint), [FrameBus] (payload is
// one [BusEvent] byte) and [FrameDescriptor] (the device's descriptor chain,
// sent by the device when a host attaches).
//
// # Implementations
//
//   - hal/fifo: named pipes in a shared bus directory
//   - hal/framed: any frame connection; the base for the two below
//   - hal/ws: WebSocket, one binary message per frame
//   - hal/quic: QUIC, one bidirectional stream per session
package hal
