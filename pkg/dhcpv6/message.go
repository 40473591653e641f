package dhcpv6

import (
	"fmt"
)

// Message is a decoded DHCPv6 client/server message (RFC 3315 §6): a
// one-byte message type, a 3-byte transaction ID, and a TLV option
// stream. RELAY-FORW/RELAY-REPL framing is out of scope — relay-agent
// semantics are never interpreted here, only the inner client/server
// exchange.
type Message struct {
	Type          MessageType
	TransactionID [3]byte
	Options       Options
}

// Decode parses a raw DHCPv6 message from bytes.
func Decode(data []byte) (*Message, error) {
	if len(data) < HeaderLen {
		return nil, fmt.Errorf("message too short: %d bytes (minimum %d)", len(data), HeaderLen)
	}

	m := &Message{Type: MessageType(data[0])}
	copy(m.TransactionID[:], data[1:4])

	opts, err := DecodeOptions(data[4:])
	if err != nil {
		return nil, fmt.Errorf("decoding options: %w", err)
	}
	m.Options = opts

	return m, nil
}

// Encode serializes a DHCPv6 message to bytes.
func (m *Message) Encode() ([]byte, error) {
	optBytes := m.Options.Encode()
	buf := make([]byte, HeaderLen+len(optBytes))
	buf[0] = byte(m.Type)
	copy(buf[1:4], m.TransactionID[:])
	copy(buf[4:], optBytes)
	return buf, nil
}

// ClientID returns option 1 (CLIENTID), the raw DUID bytes, or nil.
func (m *Message) ClientID() []byte {
	data, _ := m.Options.Get(OptionClientID)
	return data
}

// ServerID returns option 2 (SERVERID), the raw DUID bytes, or nil.
func (m *Message) ServerID() []byte {
	data, _ := m.Options.Get(OptionServerID)
	return data
}

// HasRapidCommit reports whether option 14 (RAPID_COMMIT, an empty
// option) is present.
func (m *Message) HasRapidCommit() bool {
	return m.Options.Has(OptionRapidCommit)
}

// IANAs decodes every IA_NA option carried on the message, in wire order.
func (m *Message) IANAs() ([]*IANA, error) {
	var out []*IANA
	for _, raw := range m.Options.GetAll(OptionIANA) {
		ia, err := DecodeIANA(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding IA_NA: %w", err)
		}
		out = append(out, ia)
	}
	return out, nil
}

// RequestedOptions decodes option 6 (ORO) into the list of option codes
// the client asked the server to include.
func (m *Message) RequestedOptions() []OptionCode {
	data, ok := m.Options.Get(OptionOro)
	if !ok {
		return nil
	}
	codes := make([]OptionCode, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		codes = append(codes, OptionCode(uint16(data[i])<<8|uint16(data[i+1])))
	}
	return codes
}

// NewReply builds a response message carrying the same transaction ID
// as the request, per RFC 3315 §15 ("The server MUST copy the
// transaction-id... from the client message"). The caller is
// responsible for adding CLIENTID/SERVERID and every other option the
// reply needs.
func (m *Message) NewReply(msgType MessageType) *Message {
	return &Message{
		Type:          msgType,
		TransactionID: m.TransactionID,
		Options:       Options{},
	}
}
