// Package quic carries link frames over a QUIC stream.
//
// Each host session is one QUIC connection with one bidirectional stream,
// opened by the host. Frames are delimited by their header. Without a TLS
// configuration the device generates a self-signed certificate and the
// host skips verification.
package quic
