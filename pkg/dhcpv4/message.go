package dhcpv4

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Overload values for option 52 (RFC 2132 §9.3).
const (
	OverloadFile  = 1
	OverloadSName = 2
	OverloadBoth  = 3
)

// Message is a decoded DHCPv4 message (RFC 2131 §2).
type Message struct {
	Op      OpCode
	HType   HardwareType
	HLen    byte
	Hops    byte
	XID     uint32
	Secs    uint16
	Flags   uint16
	CIAddr  net.IP
	YIAddr  net.IP
	SIAddr  net.IP
	GIAddr  net.IP
	CHAddr  net.HardwareAddr
	SName   [64]byte
	File    [128]byte
	Options Options
}

// Decode parses a raw DHCPv4 message from bytes.
// RFC 2131 §2 — message format. If option 52 (BOOTP overload) is present,
// the sname and/or file fields are reparsed as additional options and
// appended to Options in field order (file, then sname).
func Decode(data []byte) (*Message, error) {
	if len(data) < 240 {
		return nil, fmt.Errorf("message too short: %d bytes (minimum 240)", len(data))
	}

	m := &Message{}
	m.Op = OpCode(data[0])
	m.HType = HardwareType(data[1])
	m.HLen = data[2]
	m.Hops = data[3]
	m.XID = binary.BigEndian.Uint32(data[4:8])
	m.Secs = binary.BigEndian.Uint16(data[8:10])
	m.Flags = binary.BigEndian.Uint16(data[10:12])
	m.CIAddr = append(net.IP{}, data[12:16]...)
	m.YIAddr = append(net.IP{}, data[16:20]...)
	m.SIAddr = append(net.IP{}, data[20:24]...)
	m.GIAddr = append(net.IP{}, data[24:28]...)

	chaddr := make([]byte, 16)
	copy(chaddr, data[28:44])
	if m.HLen <= 16 {
		m.CHAddr = net.HardwareAddr(chaddr[:m.HLen])
	} else {
		m.CHAddr = net.HardwareAddr(chaddr[:6])
	}

	copy(m.SName[:], data[44:108])
	copy(m.File[:], data[108:236])

	cookie := data[236:240]
	if cookie[0] != MagicCookie[0] || cookie[1] != MagicCookie[1] || cookie[2] != MagicCookie[2] || cookie[3] != MagicCookie[3] {
		return nil, fmt.Errorf("invalid DHCP magic cookie: %v", cookie)
	}

	opts, err := DecodeOptions(data[240:])
	if err != nil {
		return nil, fmt.Errorf("decoding options: %w", err)
	}
	m.Options = opts

	if overload, ok := m.Options.Get(OptionOverload); ok && len(overload) == 1 {
		switch overload[0] {
		case OverloadFile:
			if err := m.appendOverloadOptions(m.File[:]); err != nil {
				return nil, fmt.Errorf("decoding overloaded file field: %w", err)
			}
		case OverloadSName:
			if err := m.appendOverloadOptions(m.SName[:]); err != nil {
				return nil, fmt.Errorf("decoding overloaded sname field: %w", err)
			}
		case OverloadBoth:
			if err := m.appendOverloadOptions(m.File[:]); err != nil {
				return nil, fmt.Errorf("decoding overloaded file field: %w", err)
			}
			if err := m.appendOverloadOptions(m.SName[:]); err != nil {
				return nil, fmt.Errorf("decoding overloaded sname field: %w", err)
			}
		}
	}

	return m, nil
}

func (m *Message) appendOverloadOptions(field []byte) error {
	extra, err := DecodeOptions(field)
	if err != nil {
		return err
	}
	m.Options = append(m.Options, extra...)
	return nil
}

// Encode serializes a DHCPv4 message to bytes. File and sname are never
// used for overloaded options on encode — the option area always carries
// the full set; callers needing RFC 2131's bootp-overload on the wire
// should build the option bytes and pack the fields themselves.
func (m *Message) Encode() ([]byte, error) {
	optBytes := m.Options.Encode()
	totalLen := 240 + len(optBytes)
	if totalLen < MinPacketSize {
		totalLen = MinPacketSize
	}

	buf := make([]byte, totalLen)
	buf[0] = byte(m.Op)
	buf[1] = byte(m.HType)
	buf[2] = m.HLen
	buf[3] = m.Hops
	binary.BigEndian.PutUint32(buf[4:8], m.XID)
	binary.BigEndian.PutUint16(buf[8:10], m.Secs)
	binary.BigEndian.PutUint16(buf[10:12], m.Flags)

	if m.CIAddr != nil {
		copy(buf[12:16], m.CIAddr.To4())
	}
	if m.YIAddr != nil {
		copy(buf[16:20], m.YIAddr.To4())
	}
	if m.SIAddr != nil {
		copy(buf[20:24], m.SIAddr.To4())
	}
	if m.GIAddr != nil {
		copy(buf[24:28], m.GIAddr.To4())
	}
	if m.CHAddr != nil {
		copy(buf[28:44], m.CHAddr)
	}
	copy(buf[44:108], m.SName[:])
	copy(buf[108:236], m.File[:])
	copy(buf[236:240], MagicCookie)
	copy(buf[240:], optBytes)

	return buf, nil
}

// MessageType returns the value of option 53, or 0 if absent.
func (m *Message) MessageType() MessageType {
	if data, ok := m.Options.Get(OptionDHCPMessageType); ok && len(data) == 1 {
		return MessageType(data[0])
	}
	return 0
}

// RequestedIP returns option 50, or nil if absent.
func (m *Message) RequestedIP() net.IP {
	if data, ok := m.Options.Get(OptionRequestedIP); ok && len(data) == 4 {
		return net.IP(data)
	}
	return nil
}

// ServerIdentifier returns option 54, or nil if absent.
func (m *Message) ServerIdentifier() net.IP {
	if data, ok := m.Options.Get(OptionServerIdentifier); ok && len(data) == 4 {
		return net.IP(data)
	}
	return nil
}

// ClientIdentifier returns option 61, or nil if absent.
func (m *Message) ClientIdentifier() []byte {
	data, _ := m.Options.Get(OptionClientIdentifier)
	return data
}

// Hostname returns option 12, or "" if absent.
func (m *Message) Hostname() string {
	data, _ := m.Options.Get(OptionHostname)
	return string(data)
}

// ParameterRequestList returns option 55 decoded as a list of codes.
func (m *Message) ParameterRequestList() []OptionCode {
	data, ok := m.Options.Get(OptionParameterRequestList)
	if !ok {
		return nil
	}
	codes := make([]OptionCode, len(data))
	for i, b := range data {
		codes[i] = OptionCode(b)
	}
	return codes
}

// IsBroadcast reports whether the broadcast flag (bit 0 of Flags) is set.
func (m *Message) IsBroadcast() bool {
	return m.Flags&0x8000 != 0
}

// IsRelayed reports whether GIAddr is a non-zero relay agent address.
func (m *Message) IsRelayed() bool {
	return m.GIAddr != nil && !m.GIAddr.Equal(net.IPv4zero)
}

// NewReply builds a response message with the common reply fields
// pre-filled from the request, per RFC 2131 §4.3.1.
func (m *Message) NewReply(msgType MessageType, serverIP net.IP) *Message {
	reply := &Message{
		Op:      OpCodeBootReply,
		HType:   m.HType,
		HLen:    m.HLen,
		Hops:    0,
		XID:     m.XID,
		Secs:    0,
		Flags:   m.Flags,
		CIAddr:  net.IPv4zero,
		YIAddr:  net.IPv4zero,
		SIAddr:  serverIP,
		GIAddr:  make(net.IP, 4),
		CHAddr:  make(net.HardwareAddr, len(m.CHAddr)),
		Options: Options{},
	}
	if gi := m.GIAddr.To4(); gi != nil {
		copy(reply.GIAddr, gi)
	} else {
		copy(reply.GIAddr, m.GIAddr)
	}
	copy(reply.CHAddr, m.CHAddr)

	reply.Options.Set(OptionDHCPMessageType, []byte{byte(msgType)})
	reply.Options.Set(OptionServerIdentifier, IPToBytes(serverIP))

	// RFC 6842 — echo client-id back in responses.
	if clientID := m.ClientIdentifier(); clientID != nil {
		reply.Options.Set(OptionClientIdentifier, clientID)
	}

	return reply
}

// VendorClassID returns option 60, or "" if absent.
func (m *Message) VendorClassID() string {
	data, _ := m.Options.Get(OptionVendorClassID)
	return string(data)
}

// UserClassID returns option 77 (RFC 3004), or "" if absent.
func (m *Message) UserClassID() string {
	data, _ := m.Options.Get(OptionUserClass)
	return string(data)
}

// MaxMessageSize returns option 57, or 0 if absent.
func (m *Message) MaxMessageSize() uint16 {
	if data, ok := m.Options.Get(OptionMaxDHCPMessageSize); ok && len(data) == 2 {
		return binary.BigEndian.Uint16(data)
	}
	return 0
}
