package dhcpv4

import "fmt"

// Option is a single decoded TLV option: a code plus its raw value bytes.
type Option struct {
	Code OptionCode
	Data []byte
}

// Options is an ordered sequence of options as they appeared on the wire.
// Unlike a map keyed by code, this preserves duplicate option codes and
// their original order, which RFC 2131 does not forbid and some clients
// (e.g. those splitting a long option run across repeated codes) rely on.
type Options []Option

// DecodeOptions parses the options section of a DHCPv4 packet.
// RFC 2132 — options are TLV (type-length-value) encoded.
func DecodeOptions(data []byte) (Options, error) {
	var opts Options
	i := 0
	for i < len(data) {
		code := OptionCode(data[i])
		i++

		if code == OptionPad {
			continue
		}
		if code == OptionEnd {
			break
		}

		if i >= len(data) {
			return nil, fmt.Errorf("truncated option %d: no length byte", code)
		}
		length := int(data[i])
		i++

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

// Encode serializes options to bytes, in original order, terminated by
// the End option.
func (opts Options) Encode() []byte {
	size := 1 // End option
	for _, o := range opts {
		size += 2 + len(o.Data)
	}

	buf := make([]byte, 0, size)
	for _, o := range opts {
		if o.Code == OptionPad || o.Code == OptionEnd {
			continue
		}
		buf = append(buf, byte(o.Code))
		buf = append(buf, byte(len(o.Data)))
		buf = append(buf, o.Data...)
	}
	buf = append(buf, byte(OptionEnd))
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
func (opts Options) GetAll(code OptionCode) [][]byte {
	var out [][]byte
	for _, o := range opts {
		if o.Code == code {
			out = append(out, o.Data)
		}
	}
	return out
}

// Set replaces the first occurrence of code, or appends if absent. Any
// further duplicate occurrences are left untouched.
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

// SetUint32 sets a uint32 option (replacing any existing occurrence).
func (opts *Options) SetUint32(code OptionCode, v uint32) {
	opts.Set(code, Uint32ToBytes(v))
}

// SetUint16 sets a uint16 option (replacing any existing occurrence).
func (opts *Options) SetUint16(code OptionCode, v uint16) {
	opts.Set(code, Uint16ToBytes(v))
}

// SetString sets a string option (replacing any existing occurrence).
func (opts *Options) SetString(code OptionCode, s string) {
	opts.Set(code, []byte(s))
}

// SetBool sets a boolean option (replacing any existing occurrence).
func (opts *Options) SetBool(code OptionCode, v bool) {
	if v {
		opts.Set(code, []byte{0x01})
	} else {
		opts.Set(code, []byte{0x00})
	}
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
