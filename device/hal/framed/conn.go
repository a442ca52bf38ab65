package framed

import (
	"context"
	"io"
	"sync"

	"github.com/ardnew/softbulk/device/hal"
)

// Conn is a bidirectional frame connection to one peer.
type Conn interface {
	// ReadFrame blocks for the next frame. The payload is stored in buf.
	ReadFrame(buf []byte) (hal.Frame, error)

	// WriteFrame sends one frame. Safe for concurrent use.
	WriteFrame(f hal.Frame) error

	// Close tears down the connection and unblocks ReadFrame.
	Close() error
}

// Acceptor yields incoming host connections.
type Acceptor interface {
	Accept(ctx context.Context) (Conn, error)
	Close() error
	Addr() string
}

// Dialer opens a connection to a device.
type Dialer func(ctx context.Context) (Conn, error)

// StreamConn carries frames over a byte stream using the header for
// delimiting.
type StreamConn struct {
	rw io.ReadWriteCloser
	mu sync.Mutex
}

// NewStreamConn wraps rw.
func NewStreamConn(rw io.ReadWriteCloser) *StreamConn {
	return &StreamConn{rw: rw}
}

// ReadFrame implements Conn.
func (c *StreamConn) ReadFrame(buf []byte) (hal.Frame, error) {
	return hal.ReadFrame(c.rw, buf)
}

// WriteFrame implements Conn.
func (c *StreamConn) WriteFrame(f hal.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return hal.WriteFrame(c.rw, f)
}

// Close implements Conn.
func (c *StreamConn) Close() error {
	return c.rw.Close()
}
