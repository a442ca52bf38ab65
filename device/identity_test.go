package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/softbulk/device/bulk"
	"github.com/ardnew/softbulk/device/hal"
	"github.com/ardnew/softbulk/pkg"
)

func TestDefaultIdentity(t *testing.T) {
	id := DefaultIdentity()
	assert.Equal(t, uint16(0x1CBE), id.VendorID)
	assert.Equal(t, uint16(0x0003), id.ProductID)
	assert.Equal(t, "Generic Bulk Device", id.Product)
	assert.NotEmpty(t, id.Serial)
	assert.Equal(t, id.Serial, MachineSerial(), "serial must be stable")
}

func TestIdentityRoundTrip(t *testing.T) {
	id := bulk.Identity{
		VendorID:     0x1CBE,
		ProductID:    0x0003,
		DeviceBCD:    0x0100,
		Manufacturer: "Texas Instruments",
		Product:      "Generic Bulk Device",
		Serial:       "12345678",
		Interface:    "Bulk Data Interface",
		Config:       "Bulk Data Configuration",
		SelfPowered:  true,
		MaxPowerMA:   500,
	}
	ep := Endpoints{In: 0x81, Out: 0x01, MaxPacketSize: 64}

	chain := MarshalIdentity(id, ep)
	assert.LessOrEqual(t, len(chain), hal.MaxPacketSize)

	gotID, gotEP, err := ParseIdentity(chain)
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
	assert.Equal(t, ep, gotEP)
}

func TestParseIdentityErrors(t *testing.T) {
	_, _, err := ParseIdentity(nil)
	assert.ErrorIs(t, err, pkg.ErrDescriptorTooShort)

	_, _, err = ParseIdentity([]byte{9, DescriptorTypeConfiguration, 0})
	assert.ErrorIs(t, err, pkg.ErrDescriptorTooShort)

	chain := MarshalIdentity(DefaultIdentity(), Endpoints{In: 0x81, Out: 0x01, MaxPacketSize: 64})
	_, _, err = ParseIdentity(chain[:deviceLen+4])
	assert.ErrorIs(t, err, pkg.ErrDescriptorTooShort)
}
