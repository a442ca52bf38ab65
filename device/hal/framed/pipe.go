package framed

import (
	"context"
	"net"
	"sync"

	"github.com/ardnew/softbulk/pkg"
)

// Pipe is an in-process Acceptor whose Dial method connects to it over
// net.Pipe. It links a device and a host in one process without sockets.
type Pipe struct {
	conns     chan Conn
	closeCh   chan struct{}
	closeOnce sync.Once
}

// NewPipe returns an open Pipe.
func NewPipe() *Pipe {
	return &Pipe{
		conns:   make(chan Conn),
		closeCh: make(chan struct{}),
	}
}

// Accept implements Acceptor.
func (p *Pipe) Accept(ctx context.Context) (Conn, error) {
	select {
	case c := <-p.conns:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.closeCh:
		return nil, pkg.ErrCancelled
	}
}

// Dial connects a new host end to the pipe. It satisfies Dialer.
func (p *Pipe) Dial(ctx context.Context) (Conn, error) {
	device, host := net.Pipe()
	select {
	case p.conns <- NewStreamConn(device):
		return NewStreamConn(host), nil
	case <-ctx.Done():
		device.Close()
		host.Close()
		return nil, ctx.Err()
	case <-p.closeCh:
		device.Close()
		host.Close()
		return nil, pkg.ErrNoDevice
	}
}

// Close implements Acceptor.
func (p *Pipe) Close() error {
	p.closeOnce.Do(func() { close(p.closeCh) })
	return nil
}

// Addr implements Acceptor.
func (p *Pipe) Addr() string {
	return "pipe"
}
