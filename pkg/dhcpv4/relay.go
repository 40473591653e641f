package dhcpv4

import "fmt"

// RelayAgentInfo holds parsed option 82 sub-options (RFC 3046). The core
// never originates or terminates relay semantics — it only copies a
// client's option 82 back onto the matching reply (RFC 3046 §2.2) and
// uses the link-selection sub-option (RFC 3527) to pick a subnet.
type RelayAgentInfo struct {
	CircuitID  string
	RemoteID   string
	LinkSelect []byte
	Raw        []byte
}

// ParseRelayAgentInfo decodes option 82 sub-options from raw bytes.
func ParseRelayAgentInfo(data []byte) (*RelayAgentInfo, error) {
	info := &RelayAgentInfo{Raw: data}
	i := 0
	for i < len(data) {
		if i+1 >= len(data) {
			return nil, fmt.Errorf("truncated relay agent sub-option at offset %d", i)
		}
		subType := data[i]
		subLen := int(data[i+1])
		i += 2
		if i+subLen > len(data) {
			return nil, fmt.Errorf("truncated relay agent sub-option %d at offset %d", subType, i-2)
		}
		subData := data[i : i+subLen]
		i += subLen

		switch subType {
		case RelaySubOptionCircuitID:
			info.CircuitID = string(subData)
		case RelaySubOptionRemoteID:
			info.RemoteID = string(subData)
		case RelaySubOptionLinkSelect:
			info.LinkSelect = append([]byte{}, subData...)
		}
	}
	return info, nil
}

// EncodeRelayAgentInfo encodes relay agent sub-options to bytes.
func EncodeRelayAgentInfo(info *RelayAgentInfo) []byte {
	var buf []byte
	if info.CircuitID != "" {
		buf = append(buf, RelaySubOptionCircuitID, byte(len(info.CircuitID)))
		buf = append(buf, []byte(info.CircuitID)...)
	}
	if info.RemoteID != "" {
		buf = append(buf, RelaySubOptionRemoteID, byte(len(info.RemoteID)))
		buf = append(buf, []byte(info.RemoteID)...)
	}
	if len(info.LinkSelect) > 0 {
		buf = append(buf, RelaySubOptionLinkSelect, byte(len(info.LinkSelect)))
		buf = append(buf, info.LinkSelect...)
	}
	return buf
}

// GetRelayInfo extracts relay agent info from a message's option 82, if any.
func GetRelayInfo(m *Message) *RelayAgentInfo {
	data, ok := m.Options.Get(OptionRelayAgentInfo)
	if !ok {
		return nil
	}
	info, err := ParseRelayAgentInfo(data)
	if err != nil {
		return nil
	}
	return info
}
