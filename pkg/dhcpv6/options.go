package dhcpv6

import (
	"encoding/binary"
	"fmt"
)

// Option is a single decoded TLV option: a 16-bit code, a 16-bit length,
// and its raw value bytes (RFC 3315 §22.1).
type Option struct {
	Code OptionCode
	Data []byte
}

// Options is an ordered sequence of options as they appeared on the wire.
// Duplicate codes are preserved, notably IA_NA which may appear once per
// identity association the client maintains.
type Options []Option

// DecodeOptions parses a DHCPv6 option stream: each option is a 2-byte
// code, a 2-byte length, then that many bytes of value, with no padding
// or terminator (unlike DHCPv4's byte-length TLVs, there is no End
// option — decoding stops only when the buffer is exhausted).
func DecodeOptions(data []byte) (Options, error) {
	var opts Options
	i := 0
	for i < len(data) {
		if i+4 > len(data) {
			return nil, fmt.Errorf("truncated option header at offset %d", i)
		}
		code := OptionCode(binary.BigEndian.Uint16(data[i : i+2]))
		length := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		i += 4

		if i+length > len(data) {
			return nil, fmt.Errorf("truncated option %d: need %d bytes, have %d", code, length, len(data)-i)
		}

		value := make([]byte, length)
		copy(value, data[i:i+length])
		opts = append(opts, Option{Code: code, Data: value})
		i += length
	}
	return opts, nil
}

// Encode serializes options to bytes, in original order.
func (opts Options) Encode() []byte {
	size := 0
	for _, o := range opts {
		size += 4 + len(o.Data)
	}

	buf := make([]byte, 0, size)
	for _, o := range opts {
		var hdr [4]byte
		binary.BigEndian.PutUint16(hdr[0:2], uint16(o.Code))
		binary.BigEndian.PutUint16(hdr[2:4], uint16(len(o.Data)))
		buf = append(buf, hdr[:]...)
		buf = append(buf, o.Data...)
	}
	return buf
}

// Get returns the value of the first occurrence of code.
func (opts Options) Get(code OptionCode) ([]byte, bool) {
	for _, o := range opts {
		if o.Code == code {
			return o.Data, true
		}
	}
	return nil, false
}

// GetAll returns the values of every occurrence of code, in wire order.
// Used for IA_NA, which a client may send more than once.
func (opts Options) GetAll(code OptionCode) [][]byte {
	var out [][]byte
	for _, o := range opts {
		if o.Code == code {
			out = append(out, o.Data)
		}
	}
	return out
}

// Set replaces the first occurrence of code, or appends if absent.
func (opts *Options) Set(code OptionCode, value []byte) {
	for i, o := range *opts {
		if o.Code == code {
			(*opts)[i].Data = value
			return
		}
	}
	*opts = append(*opts, Option{Code: code, Data: value})
}

// Add appends a new occurrence of code without touching any existing one.
func (opts *Options) Add(code OptionCode, value []byte) {
	*opts = append(*opts, Option{Code: code, Data: value})
}

// Has returns true if code appears at least once.
func (opts Options) Has(code OptionCode) bool {
	_, ok := opts.Get(code)
	return ok
}

// Delete removes every occurrence of code.
func (opts *Options) Delete(code OptionCode) {
	out := (*opts)[:0]
	for _, o := range *opts {
		if o.Code != code {
			out = append(out, o)
		}
	}
	*opts = out
}

// Clone returns a deep copy preserving order and duplicates.
func (opts Options) Clone() Options {
	clone := make(Options, len(opts))
	for i, o := range opts {
		v := make([]byte, len(o.Data))
		copy(v, o.Data)
		clone[i] = Option{Code: o.Code, Data: v}
	}
	return clone
}
