package device

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/softbulk/pkg"
)

func TestDeviceDescriptorLayout(t *testing.T) {
	got := chain(nil).device(0x1CBE, 0x0003, 0x0100)
	assert.Equal(t, chain{
		18, DescriptorTypeDevice, 0x00, 0x02, 0, 0, 0, 64,
		0xBE, 0x1C, 0x03, 0x00, 0x00, 0x01,
		stringManufacturer, stringProduct, stringSerial, 1,
	}, got)
}

func TestConfigDescriptorLayout(t *testing.T) {
	got := chain(nil).config(true, 500)
	assert.Equal(t, chain{
		9, DescriptorTypeConfiguration, 32, 0, 1, 1, stringConfig,
		ConfigAttrBusPowered | ConfigAttrSelfPowered, 250,
	}, got)

	// Power saturates at the 8-bit field.
	assert.Equal(t, uint8(0xFF), chain(nil).config(false, 1000)[8])
	assert.Equal(t, uint8(ConfigAttrBusPowered), chain(nil).config(false, 100)[7])
}

func TestEndpointDescriptorLayout(t *testing.T) {
	assert.Equal(t, chain{7, DescriptorTypeEndpoint, 0x81, EndpointAttrBulk, 0x00, 0x02, 0},
		chain(nil).endpoint(0x81, 512))
}

func TestNextDescriptor(t *testing.T) {
	data := chain(nil).iface().endpoint(0x01, 64)

	d, rest, err := next(data)
	require.NoError(t, err)
	assert.Equal(t, uint8(DescriptorTypeInterface), d.kind())
	assert.Len(t, d, interfaceLen)

	d, rest, err = next(rest)
	require.NoError(t, err)
	assert.Equal(t, uint16(64), d.u16(4))
	assert.Empty(t, rest)
}

func TestNextDescriptorErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, pkg.ErrDescriptorTooShort},
		{"zero length", []byte{0, DescriptorTypeDevice}, pkg.ErrDescriptorTooShort},
		{"past end", []byte{9, DescriptorTypeInterface, 0}, pkg.ErrDescriptorTooShort},
		{"short device", []byte{4, DescriptorTypeDevice, 0, 0}, pkg.ErrDescriptorTooShort},
		{"short endpoint", []byte{6, DescriptorTypeEndpoint, 0x81, 2, 64, 0}, pkg.ErrDescriptorTooShort},
		{"unknown type", []byte{3, 0x21, 0}, pkg.ErrDescriptorTypeMismatch},
		{"odd string", []byte{3, DescriptorTypeString, 'a'}, pkg.ErrProtocol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := next(tt.data)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestStringDescriptor(t *testing.T) {
	tests := []struct {
		name string
		in   string
		size int
	}{
		{"ascii", "Bulk", 10},
		{"empty", "", 2},
		{"bmp", "Grüße", 12},
		{"surrogate pair", "a😀", 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := chain(nil).text(tt.in)
			require.Len(t, c, tt.size)
			assert.Equal(t, byte(tt.size), c[0])

			d, _, err := next(c)
			require.NoError(t, err)
			assert.Equal(t, tt.in, d.text())
		})
	}
}

func TestStringDescriptorTruncated(t *testing.T) {
	c := chain(nil).text(strings.Repeat("x", 300))
	assert.Len(t, c, 254)
	assert.Equal(t, byte(254), c[0])
}

func TestLanguageDescriptor(t *testing.T) {
	assert.Equal(t, chain{4, DescriptorTypeString, 0x09, 0x04}, chain(nil).languages(LangIDUSEnglish))
}
