package dhcpv6

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

// IANA is a decoded Identity Association for Non-temporary Addresses
// (RFC 3315 §22.4). Its Options field is itself a nested TLV tree — most
// commonly one or more IAAddr options plus an optional status code —
// decoded with the same DecodeOptions used for the outer message, which
// terminates purely on an exhausted buffer rather than any sentinel.
type IANA struct {
	IAID    uint32
	T1      time.Duration
	T2      time.Duration
	Options Options
}

// DecodeIANA parses an IA_NA option body.
func DecodeIANA(data []byte) (*IANA, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("IA_NA too short: %d bytes (minimum 12)", len(data))
	}
	ia := &IANA{
		IAID: binary.BigEndian.Uint32(data[0:4]),
		T1:   time.Duration(binary.BigEndian.Uint32(data[4:8])) * time.Second,
		T2:   time.Duration(binary.BigEndian.Uint32(data[8:12])) * time.Second,
	}
	opts, err := DecodeOptions(data[12:])
	if err != nil {
		return nil, fmt.Errorf("decoding IA_NA sub-options: %w", err)
	}
	ia.Options = opts
	return ia, nil
}

// Encode serializes an IA_NA option body (without its outer TLV header).
func (ia *IANA) Encode() []byte {
	buf := make([]byte, 12)
	binary.BigEndian.PutUint32(buf[0:4], ia.IAID)
	binary.BigEndian.PutUint32(buf[4:8], uint32(ia.T1/time.Second))
	binary.BigEndian.PutUint32(buf[8:12], uint32(ia.T2/time.Second))
	return append(buf, ia.Options.Encode()...)
}

// Addrs returns every IAAddr sub-option decoded from this IA_NA.
func (ia *IANA) Addrs() ([]*IAAddr, error) {
	var out []*IAAddr
	for _, raw := range ia.Options.GetAll(OptionIAAddr) {
		addr, err := DecodeIAAddr(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

// Status returns the IA_NA-level status code, defaulting to Success when
// no status code sub-option is present (RFC 3315 §22.4).
func (ia *IANA) Status() StatusCode {
	data, ok := ia.Options.Get(OptionStatusCode)
	if !ok || len(data) < 2 {
		return StatusSuccess
	}
	return StatusCode(binary.BigEndian.Uint16(data[0:2]))
}

// IAAddr is a decoded IAADDR sub-option (RFC 3315 §22.6).
type IAAddr struct {
	Address           net.IP
	PreferredLifetime time.Duration
	ValidLifetime     time.Duration
	Options           Options
}

// DecodeIAAddr parses an IAADDR option body.
func DecodeIAAddr(data []byte) (*IAAddr, error) {
	if len(data) < 24 {
		return nil, fmt.Errorf("IAADDR too short: %d bytes (minimum 24)", len(data))
	}
	addr := &IAAddr{
		Address:           net.IP(append([]byte{}, data[0:16]...)),
		PreferredLifetime: time.Duration(binary.BigEndian.Uint32(data[16:20])) * time.Second,
		ValidLifetime:     time.Duration(binary.BigEndian.Uint32(data[20:24])) * time.Second,
	}
	if len(data) > 24 {
		opts, err := DecodeOptions(data[24:])
		if err != nil {
			return nil, fmt.Errorf("decoding IAADDR sub-options: %w", err)
		}
		addr.Options = opts
	}
	return addr, nil
}

// Encode serializes an IAADDR option body (without its outer TLV header).
func (a *IAAddr) Encode() []byte {
	buf := make([]byte, 24)
	copy(buf[0:16], a.Address.To16())
	binary.BigEndian.PutUint32(buf[16:20], uint32(a.PreferredLifetime/time.Second))
	binary.BigEndian.PutUint32(buf[20:24], uint32(a.ValidLifetime/time.Second))
	return append(buf, a.Options.Encode()...)
}

// NewIANAOption wraps an IANA as a top-level Option with OptionIANA's code.
func NewIANAOption(ia *IANA) Option {
	return Option{Code: OptionIANA, Data: ia.Encode()}
}

// NewIAAddrOption wraps an IAAddr as a sub-option with OptionIAAddr's code.
func NewIAAddrOption(a *IAAddr) Option {
	return Option{Code: OptionIAAddr, Data: a.Encode()}
}

// NewStatusCodeOption builds a STATUS_CODE option (RFC 3315 §22.13).
func NewStatusCodeOption(code StatusCode, message string) Option {
	buf := make([]byte, 2+len(message))
	binary.BigEndian.PutUint16(buf[0:2], uint16(code))
	copy(buf[2:], message)
	return Option{Code: OptionStatusCode, Data: buf}
}

// DecodeStatusCode parses a STATUS_CODE option body.
func DecodeStatusCode(data []byte) (StatusCode, string, error) {
	if len(data) < 2 {
		return 0, "", fmt.Errorf("status code option too short: %d bytes", len(data))
	}
	return StatusCode(binary.BigEndian.Uint16(data[0:2])), string(data[2:]), nil
}
