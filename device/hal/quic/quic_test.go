package quic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/softbulk/device/hal"
)

func TestRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dev, err := NewDevice("127.0.0.1:0", nil)
	require.NoError(t, err)
	require.NoError(t, dev.PublishDescriptor([]byte{0x12, 0x01}))
	require.NoError(t, dev.Start())
	defer dev.Stop()

	host := NewHost(dev.Addr(), nil)
	require.NoError(t, host.Open(ctx))
	defer host.Close()

	desc, err := host.Descriptor(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x12, 0x01}, desc)

	require.NoError(t, host.Signal(ctx, hal.BusConnect))
	ev, err := dev.WaitBusEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, hal.BusConnect, ev)

	_, err = host.Write(ctx, 0x01, []byte("abc"))
	require.NoError(t, err)
	buf := make([]byte, hal.MaxPacketSize)
	n, err := dev.Read(ctx, 0x01, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), buf[:n])

	_, err = dev.Write(ctx, 0x81, []byte("ABC"))
	require.NoError(t, err)
	n, err = host.Read(ctx, 0x81, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("ABC"), buf[:n])
}

func TestGeneratedTLSConfig(t *testing.T) {
	cfg, err := generateTLSConfig()
	require.NoError(t, err)
	assert.Len(t, cfg.Certificates, 1)
	assert.Equal(t, []string{ALPN}, cfg.NextProtos)
}
