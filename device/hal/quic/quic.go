package quic

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"math/big"
	"time"

	quicgo "github.com/quic-go/quic-go"

	"github.com/ardnew/softbulk/device/hal"
	"github.com/ardnew/softbulk/device/hal/framed"
	"github.com/ardnew/softbulk/pkg"
)

// ALPN is the application protocol negotiated on every connection.
const ALPN = "softbulk"

// Listener accepts QUIC connections and their first bidirectional stream.
// It implements framed.Acceptor.
type Listener struct {
	ln *quicgo.Listener
}

// Listen starts a QUIC listener on addr. A nil tlsConfig selects a
// self-signed certificate.
func Listen(addr string, tlsConfig *tls.Config) (*Listener, error) {
	if tlsConfig == nil {
		var err error
		tlsConfig, err = generateTLSConfig()
		if err != nil {
			return nil, fmt.Errorf("generate TLS config: %w", err)
		}
	}
	ln, err := quicgo.ListenAddr(addr, tlsConfig, &quicgo.Config{KeepAlivePeriod: 10 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return &Listener{ln: ln}, nil
}

// Accept implements framed.Acceptor. The host opens the stream and writes
// first, so the stream is visible as soon as the host attaches.
func (l *Listener) Accept(ctx context.Context) (framed.Conn, error) {
	for {
		conn, err := l.ln.Accept(ctx)
		if err != nil {
			return nil, err
		}
		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			conn.CloseWithError(0, "no stream")
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			pkg.LogWarn(pkg.ComponentHAL, "quic stream accept failed", "error", err)
			continue
		}
		return newConn(conn, stream), nil
	}
}

// Close implements framed.Acceptor.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// Addr implements framed.Acceptor.
func (l *Listener) Addr() string {
	return l.ln.Addr().String()
}

// Conn carries frames over one bidirectional QUIC stream.
type Conn struct {
	*framed.StreamConn
	conn *quicgo.Conn
}

func newConn(conn *quicgo.Conn, stream *quicgo.Stream) *Conn {
	return &Conn{StreamConn: framed.NewStreamConn(stream), conn: conn}
}

// Close closes the stream and the connection.
func (c *Conn) Close() error {
	c.StreamConn.Close()
	return c.conn.CloseWithError(0, "closed")
}

// Dial connects to a device at addr and opens the frame stream. A nil
// tlsConfig accepts any certificate.
func Dial(ctx context.Context, addr string, tlsConfig *tls.Config) (*Conn, error) {
	if tlsConfig == nil {
		tlsConfig = &tls.Config{
			NextProtos:         []string{ALPN},
			InsecureSkipVerify: true, // For self-signed certs
		}
	}
	conn, err := quicgo.DialAddr(ctx, addr, tlsConfig, &quicgo.Config{KeepAlivePeriod: 10 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(0, "failed to open stream")
		return nil, fmt.Errorf("open stream: %w", err)
	}
	c := newConn(conn, stream)

	// The device only sees the stream once it carries data.
	if err := c.WriteFrame(hal.BusFrame(hal.BusNone)); err != nil {
		c.Close()
		return nil, fmt.Errorf("announce stream: %w", err)
	}
	return c, nil
}

// NewDevice listens on addr and returns a device HAL serving QUIC hosts.
func NewDevice(addr string, tlsConfig *tls.Config) (*framed.Device, error) {
	l, err := Listen(addr, tlsConfig)
	if err != nil {
		return nil, err
	}
	return framed.NewDevice(l), nil
}

// NewHost returns a host HAL that dials addr.
func NewHost(addr string, tlsConfig *tls.Config) *framed.Host {
	return framed.NewHost(func(ctx context.Context) (framed.Conn, error) {
		return Dial(ctx, addr, tlsConfig)
	})
}

// generateTLSConfig generates a self-signed certificate for QUIC.
func generateTLSConfig() (*tls.Config, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{ALPN},
	}, nil
}
