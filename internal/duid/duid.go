// Package duid builds and parses DHCP Unique Identifiers (RFC 3315 §9),
// and derives a stable server DUID-LL from a listening interface when
// none is configured.
package duid

import (
	"encoding/binary"
	"fmt"
	"net"

	"golang.org/x/crypto/blake2b"

	"github.com/nullwatt/dhcpcore/pkg/dhcpv6"
)

// DUID is a decoded DHCP Unique Identifier.
type DUID struct {
	Type          dhcpv6.DUIDType
	HardwareType  uint16 // DUID-LLT, DUID-LL
	Time          uint32 // DUID-LLT (seconds since 2000-01-01)
	EnterpriseNum uint32 // DUID-EN
	LinkLayerAddr net.HardwareAddr
	Identifier    []byte // DUID-EN
}

// Decode parses a DUID from its wire bytes (the content of a CLIENTID
// or SERVERID option, not the TLV header).
func Decode(data []byte) (*DUID, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("DUID too short: %d bytes", len(data))
	}
	d := &DUID{Type: dhcpv6.DUIDType(binary.BigEndian.Uint16(data[0:2]))}

	switch d.Type {
	case dhcpv6.DUIDTypeLLT:
		if len(data) < 8 {
			return nil, fmt.Errorf("DUID-LLT too short: %d bytes", len(data))
		}
		d.HardwareType = binary.BigEndian.Uint16(data[2:4])
		d.Time = binary.BigEndian.Uint32(data[4:8])
		d.LinkLayerAddr = append(net.HardwareAddr{}, data[8:]...)
	case dhcpv6.DUIDTypeEN:
		if len(data) < 6 {
			return nil, fmt.Errorf("DUID-EN too short: %d bytes", len(data))
		}
		d.EnterpriseNum = binary.BigEndian.Uint32(data[2:6])
		d.Identifier = append([]byte{}, data[6:]...)
	case dhcpv6.DUIDTypeLL:
		if len(data) < 4 {
			return nil, fmt.Errorf("DUID-LL too short: %d bytes", len(data))
		}
		d.HardwareType = binary.BigEndian.Uint16(data[2:4])
		d.LinkLayerAddr = append(net.HardwareAddr{}, data[4:]...)
	default:
		return nil, fmt.Errorf("unknown DUID type %d", d.Type)
	}

	return d, nil
}

// Encode serializes a DUID to its wire bytes.
func (d *DUID) Encode() []byte {
	switch d.Type {
	case dhcpv6.DUIDTypeLLT:
		buf := make([]byte, 8+len(d.LinkLayerAddr))
		binary.BigEndian.PutUint16(buf[0:2], uint16(dhcpv6.DUIDTypeLLT))
		binary.BigEndian.PutUint16(buf[2:4], d.HardwareType)
		binary.BigEndian.PutUint32(buf[4:8], d.Time)
		copy(buf[8:], d.LinkLayerAddr)
		return buf
	case dhcpv6.DUIDTypeEN:
		buf := make([]byte, 6+len(d.Identifier))
		binary.BigEndian.PutUint16(buf[0:2], uint16(dhcpv6.DUIDTypeEN))
		binary.BigEndian.PutUint32(buf[2:6], d.EnterpriseNum)
		copy(buf[6:], d.Identifier)
		return buf
	case dhcpv6.DUIDTypeLL:
		buf := make([]byte, 4+len(d.LinkLayerAddr))
		binary.BigEndian.PutUint16(buf[0:2], uint16(dhcpv6.DUIDTypeLL))
		binary.BigEndian.PutUint16(buf[2:4], d.HardwareType)
		copy(buf[4:], d.LinkLayerAddr)
		return buf
	default:
		return nil
	}
}

// String renders a DUID the way operators expect to see it: colon-hex.
func (d *DUID) String() string {
	b := d.Encode()
	out := make([]byte, 0, len(b)*3)
	for i, c := range b {
		if i > 0 {
			out = append(out, ':')
		}
		out = append(out, fmt.Sprintf("%02x", c)...)
	}
	return string(out)
}

// FromInterfaceLL derives a stable DUID-LL from a network interface's
// hardware address, stable across restarts without reaching for a wall
// clock (unlike DUID-LLT).
func FromInterfaceLL(iface *net.Interface) *DUID {
	return &DUID{
		Type:          dhcpv6.DUIDTypeLL,
		HardwareType:  1, // Ethernet
		LinkLayerAddr: iface.HardwareAddr,
	}
}

// DeriveServerIdentity hashes seed (for the server, its interface name
// and bind address) with blake2b into a stable pseudo link-layer
// address, for platforms where
// the listening interface has no usable hardware address of its own
// (e.g. a bridge or tunnel) but a deterministic identity is still
// required across restarts.
func DeriveServerIdentity(seed []byte) (*DUID, error) {
	sum := blake2b.Sum256(seed)
	return &DUID{
		Type:          dhcpv6.DUIDTypeLL,
		HardwareType:  1,
		LinkLayerAddr: net.HardwareAddr(sum[:6]),
	}, nil
}
