package device

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"

	"github.com/ardnew/softbulk/pkg"
)

// Descriptor types that appear in the identity chain.
const (
	DescriptorTypeDevice        = 0x01
	DescriptorTypeConfiguration = 0x02
	DescriptorTypeString        = 0x03
	DescriptorTypeInterface     = 0x04
	DescriptorTypeEndpoint      = 0x05
)

// Fixed descriptor lengths, header included.
const (
	deviceLen    = 18
	configLen    = 9
	interfaceLen = 9
	endpointLen  = 7
)

// Class and attribute values of the bulk interface.
const (
	ClassPerInterface = 0x00
	ClassVendor       = 0xFF
	EndpointAttrBulk  = 0x02

	ConfigAttrBusPowered  = 0x80 // Always set
	ConfigAttrSelfPowered = 0x40

	LangIDUSEnglish = 0x0409

	// maxStringUnits fills a 255-byte string descriptor.
	maxStringUnits = 126
)

// chain accumulates descriptors in wire order.
type chain []byte

// put appends one descriptor of type typ with the given body.
func (c chain) put(typ uint8, body ...byte) chain {
	c = append(c, uint8(2+len(body)), typ)
	return append(c, body...)
}

func le16(v uint16) (byte, byte) {
	return byte(v), byte(v >> 8)
}

// device appends the device descriptor. Class, subclass and protocol are
// left to the interface.
func (c chain) device(vid, pid, bcd uint16) chain {
	vl, vh := le16(vid)
	pl, ph := le16(pid)
	bl, bh := le16(bcd)
	return c.put(DescriptorTypeDevice,
		0x00, 0x02, // USB 2.0
		ClassPerInterface, 0, 0,
		64, // EP0 packet size
		vl, vh, pl, ph, bl, bh,
		stringManufacturer, stringProduct, stringSerial,
		1, // configurations
	)
}

// config appends the single configuration, sized for one interface with two
// endpoints. maxPowerMA is stored in 2 mA units.
func (c chain) config(selfPowered bool, maxPowerMA uint16) chain {
	attrs := uint8(ConfigAttrBusPowered)
	if selfPowered {
		attrs |= ConfigAttrSelfPowered
	}
	tl, th := le16(configLen + interfaceLen + 2*endpointLen)
	return c.put(DescriptorTypeConfiguration,
		tl, th,
		1, // interfaces
		1, // configuration value
		stringConfig,
		attrs,
		uint8(min(maxPowerMA/2, 0xFF)),
	)
}

// iface appends the vendor-specific bulk interface.
func (c chain) iface() chain {
	return c.put(DescriptorTypeInterface,
		0, 0, // number, alternate
		2, // endpoints
		ClassVendor, 0, 0,
		stringInterface,
	)
}

// endpoint appends one bulk endpoint.
func (c chain) endpoint(addr uint8, packetSize uint16) chain {
	sl, sh := le16(packetSize)
	return c.put(DescriptorTypeEndpoint, addr, EndpointAttrBulk, sl, sh, 0)
}

// languages appends string descriptor zero.
func (c chain) languages(ids ...uint16) chain {
	body := make([]byte, 0, 2*len(ids))
	for _, id := range ids {
		body = binary.LittleEndian.AppendUint16(body, id)
	}
	return c.put(DescriptorTypeString, body...)
}

// text appends s as a UTF-16LE string descriptor, truncated to what one
// descriptor can hold.
func (c chain) text(s string) chain {
	units := utf16.Encode([]rune(s))
	if len(units) > maxStringUnits {
		units = units[:maxStringUnits]
	}
	body := make([]byte, 0, 2*len(units))
	for _, u := range units {
		body = binary.LittleEndian.AppendUint16(body, u)
	}
	return c.put(DescriptorTypeString, body...)
}

// descriptor is one entry split off a chain. Offsets index the whole
// descriptor, header included.
type descriptor []byte

func (d descriptor) kind() uint8 { return d[1] }

func (d descriptor) u16(off int) uint16 {
	return binary.LittleEndian.Uint16(d[off:])
}

// text decodes a string descriptor body.
func (d descriptor) text() string {
	units := make([]uint16, (len(d)-2)/2)
	for i := range units {
		units[i] = d.u16(2 + 2*i)
	}
	return string(utf16.Decode(units))
}

// next splits the first descriptor off data and checks its length against
// the fixed size of its type.
func next(data []byte) (descriptor, []byte, error) {
	if len(data) < 2 || data[0] < 2 || int(data[0]) > len(data) {
		return nil, nil, pkg.ErrDescriptorTooShort
	}
	d, rest := descriptor(data[:data[0]]), data[data[0]:]

	want := 0
	switch d.kind() {
	case DescriptorTypeDevice:
		want = deviceLen
	case DescriptorTypeConfiguration:
		want = configLen
	case DescriptorTypeInterface:
		want = interfaceLen
	case DescriptorTypeEndpoint:
		want = endpointLen
	case DescriptorTypeString:
		if len(d)%2 != 0 {
			return nil, nil, fmt.Errorf("odd string descriptor length %d: %w", len(d), pkg.ErrProtocol)
		}
	default:
		return nil, nil, fmt.Errorf("descriptor type 0x%02x: %w", d.kind(), pkg.ErrDescriptorTypeMismatch)
	}
	if len(d) < want {
		return nil, nil, fmt.Errorf("descriptor type 0x%02x: %w", d.kind(), pkg.ErrDescriptorTooShort)
	}
	return d, rest, nil
}
