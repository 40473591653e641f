package duid

import (
	"net"
	"testing"

	"github.com/nullwatt/dhcpcore/pkg/dhcpv6"
)

func TestDUIDLLRoundTrip(t *testing.T) {
	d := &DUID{
		Type:          dhcpv6.DUIDTypeLL,
		HardwareType:  1,
		LinkLayerAddr: net.HardwareAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff},
	}
	encoded := d.Encode()

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if decoded.Type != dhcpv6.DUIDTypeLL {
		t.Errorf("Type = %v, want DUIDTypeLL", decoded.Type)
	}
	if decoded.LinkLayerAddr.String() != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("LinkLayerAddr = %s, want aa:bb:cc:dd:ee:ff", decoded.LinkLayerAddr)
	}
}

func TestDUIDLLTRoundTrip(t *testing.T) {
	d := &DUID{
		Type:          dhcpv6.DUIDTypeLLT,
		HardwareType:  1,
		Time:          123456789,
		LinkLayerAddr: net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
	}
	encoded := d.Encode()

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if decoded.Time != 123456789 {
		t.Errorf("Time = %d, want 123456789", decoded.Time)
	}
	if decoded.LinkLayerAddr.String() != "00:11:22:33:44:55" {
		t.Errorf("LinkLayerAddr = %s, want 00:11:22:33:44:55", decoded.LinkLayerAddr)
	}
}

func TestDUIDENRoundTrip(t *testing.T) {
	d := &DUID{
		Type:          dhcpv6.DUIDTypeEN,
		EnterpriseNum: 9999,
		Identifier:    []byte{1, 2, 3, 4},
	}
	encoded := d.Encode()

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if decoded.EnterpriseNum != 9999 {
		t.Errorf("EnterpriseNum = %d, want 9999", decoded.EnterpriseNum)
	}
}

func TestDecodeTooShort(t *testing.T) {
	if _, err := Decode([]byte{0x00}); err == nil {
		t.Error("expected error for truncated DUID")
	}
}

func TestDecodeUnknownType(t *testing.T) {
	if _, err := Decode([]byte{0xff, 0xff, 0x00, 0x00}); err == nil {
		t.Error("expected error for unknown DUID type")
	}
}

func TestDeriveServerIdentityIsStable(t *testing.T) {
	seed := []byte("eth0")
	a, err := DeriveServerIdentity(seed)
	if err != nil {
		t.Fatalf("DeriveServerIdentity error: %v", err)
	}
	b, err := DeriveServerIdentity(seed)
	if err != nil {
		t.Fatalf("DeriveServerIdentity error: %v", err)
	}
	if a.String() != b.String() {
		t.Error("DeriveServerIdentity should be deterministic for the same seed")
	}

	c, err := DeriveServerIdentity([]byte("eth1"))
	if err != nil {
		t.Fatalf("DeriveServerIdentity error: %v", err)
	}
	if a.String() == c.String() {
		t.Error("DeriveServerIdentity should differ for different seeds")
	}
}
