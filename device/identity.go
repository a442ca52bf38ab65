package device

import (
	"fmt"
	"strings"

	"github.com/denisbrodbeck/machineid"

	"github.com/ardnew/softbulk/device/bulk"
	"github.com/ardnew/softbulk/pkg"
)

// Reference identity values.
const (
	DefaultVendorID  = 0x1CBE
	DefaultProductID = 0x0003
	DefaultDeviceBCD = 0x0100
	DefaultMaxPower  = 500 // mA

	// fallbackSerial is used when no machine ID is available.
	fallbackSerial = "12345678"

	// serialAppID scopes the machine-derived serial to this application.
	serialAppID = "softbulk"
	serialLen   = 12
)

// String descriptor indices in the published chain.
const (
	stringLang = iota
	stringManufacturer
	stringProduct
	stringSerial
	stringInterface
	stringConfig
	numStrings
)

// DefaultIdentity returns the reference identity with a serial number
// derived from the host machine.
func DefaultIdentity() bulk.Identity {
	return bulk.Identity{
		VendorID:     DefaultVendorID,
		ProductID:    DefaultProductID,
		DeviceBCD:    DefaultDeviceBCD,
		Manufacturer: "Texas Instruments",
		Product:      "Generic Bulk Device",
		Serial:       MachineSerial(),
		Interface:    "Bulk Data Interface",
		Config:       "Bulk Data Configuration",
		SelfPowered:  true,
		MaxPowerMA:   DefaultMaxPower,
	}
}

// MachineSerial returns a stable serial number for this machine. The raw
// machine ID is never exposed; it is hashed with an application key first.
func MachineSerial() string {
	id, err := machineid.ProtectedID(serialAppID)
	if err != nil || len(id) < serialLen {
		pkg.LogDebug(pkg.ComponentDevice, "machine id unavailable", "error", err)
		return fallbackSerial
	}
	return strings.ToUpper(id[:serialLen])
}

// Endpoints describes the bulk endpoint pair in the descriptor chain.
type Endpoints struct {
	In            uint8  // IN endpoint address (device to host)
	Out           uint8  // OUT endpoint address (host to device)
	MaxPacketSize uint16 // Packet size of both endpoints
}

// MarshalIdentity encodes id and ep as a descriptor chain: device,
// configuration, interface, both endpoints, then the string table starting
// with the language descriptor.
func MarshalIdentity(id bulk.Identity, ep Endpoints) []byte {
	c := make(chain, 0, 512).
		device(id.VendorID, id.ProductID, id.DeviceBCD).
		config(id.SelfPowered, id.MaxPowerMA).
		iface().
		endpoint(ep.In, ep.MaxPacketSize).
		endpoint(ep.Out, ep.MaxPacketSize).
		languages(LangIDUSEnglish)
	for _, s := range []string{id.Manufacturer, id.Product, id.Serial, id.Interface, id.Config} {
		c = c.text(s)
	}
	return c
}

// ParseIdentity decodes a chain written by MarshalIdentity.
func ParseIdentity(data []byte) (bulk.Identity, Endpoints, error) {
	var (
		id   bulk.Identity
		ep   Endpoints
		dev  descriptor
		cfg  descriptor
		itf  descriptor
		strs []string
	)

	for len(data) > 0 {
		d, rest, err := next(data)
		if err != nil {
			return bulk.Identity{}, Endpoints{}, err
		}
		data = rest

		switch d.kind() {
		case DescriptorTypeDevice:
			dev = d
		case DescriptorTypeConfiguration:
			cfg = d
		case DescriptorTypeInterface:
			itf = d
		case DescriptorTypeEndpoint:
			if addr := d[2]; addr&0x80 != 0 {
				ep.In = addr
			} else {
				ep.Out = addr
			}
			ep.MaxPacketSize = d.u16(4)
		case DescriptorTypeString:
			if len(strs) == stringLang {
				// Language table; not a string.
				strs = append(strs, "")
				continue
			}
			strs = append(strs, d.text())
		}
	}
	if dev == nil {
		return id, ep, fmt.Errorf("no device descriptor: %w", pkg.ErrDescriptorTooShort)
	}

	str := func(i uint8) string {
		if int(i) > 0 && int(i) < len(strs) {
			return strs[i]
		}
		return ""
	}
	id = bulk.Identity{
		VendorID:     dev.u16(8),
		ProductID:    dev.u16(10),
		DeviceBCD:    dev.u16(12),
		Manufacturer: str(dev[14]),
		Product:      str(dev[15]),
		Serial:       str(dev[16]),
	}
	if itf != nil {
		id.Interface = str(itf[8])
	}
	if cfg != nil {
		id.Config = str(cfg[6])
		id.SelfPowered = cfg[7]&ConfigAttrSelfPowered != 0
		id.MaxPowerMA = uint16(cfg[8]) * 2
	}
	return id, ep, nil
}
