package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ardnew/softbulk/device/hal"
	"github.com/ardnew/softbulk/device/hal/framed"
	"github.com/ardnew/softbulk/pkg"
)

// DefaultPath is the HTTP path the device upgrades.
const DefaultPath = "/bulk"

// pingInterval keeps idle connections alive through proxies.
const pingInterval = 20 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  hal.FrameHeaderSize + hal.MaxPacketSize,
	WriteBufferSize: hal.FrameHeaderSize + hal.MaxPacketSize,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

// Listener accepts WebSocket connections on an HTTP path. It implements
// framed.Acceptor.
type Listener struct {
	ln    net.Listener
	srv   *http.Server
	conns chan *websocket.Conn

	closeCh   chan struct{}
	closeOnce sync.Once
}

// Listen starts serving WebSocket upgrades on addr at path.
func Listen(addr, path string) (*Listener, error) {
	if path == "" {
		path = DefaultPath
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	l := &Listener{
		ln:      ln,
		conns:   make(chan *websocket.Conn),
		closeCh: make(chan struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, l.upgrade)
	l.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			pkg.LogWarn(pkg.ComponentHAL, "websocket server stopped", "error", err)
		}
	}()
	return l, nil
}

// upgrade hands each upgraded connection to Accept.
func (l *Listener) upgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		pkg.LogWarn(pkg.ComponentHAL, "websocket upgrade failed", "error", err)
		return
	}
	select {
	case l.conns <- conn:
	case <-l.closeCh:
		conn.Close()
	case <-r.Context().Done():
		conn.Close()
	}
}

// Accept implements framed.Acceptor.
func (l *Listener) Accept(ctx context.Context) (framed.Conn, error) {
	select {
	case c := <-l.conns:
		return newConn(c), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.closeCh:
		return nil, pkg.ErrCancelled
	}
}

// Close implements framed.Acceptor.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closeCh)
		err = l.srv.Close()
	})
	return err
}

// Addr implements framed.Acceptor.
func (l *Listener) Addr() string {
	return l.ln.Addr().String()
}

// Conn carries one frame per binary WebSocket message.
type Conn struct {
	ws   *websocket.Conn
	wmu  sync.Mutex
	done chan struct{}
	once sync.Once
}

func newConn(c *websocket.Conn) *Conn {
	conn := &Conn{ws: c, done: make(chan struct{})}
	go conn.keepalive()
	return conn
}

// keepalive pings the peer until the connection closes.
func (c *Conn) keepalive() {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ping.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

// ReadFrame implements framed.Conn. Text messages are skipped.
func (c *Conn) ReadFrame(buf []byte) (hal.Frame, error) {
	for {
		mt, msg, err := c.ws.ReadMessage()
		if err != nil {
			return hal.Frame{}, err
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		f, err := hal.ParseFrame(msg)
		if err != nil {
			return hal.Frame{}, err
		}
		if len(f.Payload) > len(buf) {
			return hal.Frame{}, pkg.ErrBufferTooSmall
		}
		f.Payload = buf[:copy(buf, f.Payload)]
		return f, nil
	}
}

// WriteFrame implements framed.Conn.
func (c *Conn) WriteFrame(f hal.Frame) error {
	msg, err := f.Append(make([]byte, 0, f.Size()))
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.ws.WriteMessage(websocket.BinaryMessage, msg)
}

// Close implements framed.Conn.
func (c *Conn) Close() error {
	c.once.Do(func() { close(c.done) })
	return c.ws.Close()
}

// Dial connects to a device at url, e.g. "ws://127.0.0.1:8080/bulk".
func Dial(ctx context.Context, url string) (*Conn, error) {
	c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return newConn(c), nil
}

// NewDevice listens on addr and returns a device HAL serving WebSocket
// hosts.
func NewDevice(addr, path string) (*framed.Device, error) {
	l, err := Listen(addr, path)
	if err != nil {
		return nil, err
	}
	return framed.NewDevice(l), nil
}

// NewHost returns a host HAL that dials url.
func NewHost(url string) *framed.Host {
	return framed.NewHost(func(ctx context.Context) (framed.Conn, error) {
		return Dial(ctx, url)
	})
}
