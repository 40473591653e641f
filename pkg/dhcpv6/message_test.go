package dhcpv6

import "testing"

func buildTestSolicit(xid [3]byte) []byte {
	m := &Message{Type: MessageTypeSolicit, TransactionID: xid, Options: Options{}}
	m.Options.Add(OptionClientID, []byte{0, 3, 0, 1, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff})
	m.Options.Add(OptionElapsedTime, []byte{0, 0})
	ia := &IANA{IAID: 12345}
	m.Options.Add(OptionIANA, ia.Encode())
	data, _ := m.Encode()
	return data
}

func TestDecodeMessage(t *testing.T) {
	xid := [3]byte{0x01, 0x02, 0x03}
	data := buildTestSolicit(xid)

	msg, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if msg.Type != MessageTypeSolicit {
		t.Errorf("Type = %v, want SOLICIT", msg.Type)
	}
	if msg.TransactionID != xid {
		t.Errorf("TransactionID = %v, want %v", msg.TransactionID, xid)
	}
	if len(msg.ClientID()) == 0 {
		t.Error("expected non-empty ClientID")
	}
}

func TestDecodeMessageTooShort(t *testing.T) {
	if _, err := Decode([]byte{1, 2}); err == nil {
		t.Error("expected error for short message, got nil")
	}
}

func TestMessageRoundTrip(t *testing.T) {
	xid := [3]byte{0xaa, 0xbb, 0xcc}
	data := buildTestSolicit(xid)

	msg, err := Decode(data)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	encoded, err := msg.Encode()
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	msg2, err := Decode(encoded)
	if err != nil {
		t.Fatalf("re-decode error: %v", err)
	}
	if msg2.TransactionID != msg.TransactionID {
		t.Errorf("TransactionID mismatch: %v vs %v", msg2.TransactionID, msg.TransactionID)
	}
	if msg2.Type != msg.Type {
		t.Errorf("Type mismatch: %v vs %v", msg2.Type, msg.Type)
	}
}

func TestMessageIANAs(t *testing.T) {
	xid := [3]byte{1, 1, 1}
	data := buildTestSolicit(xid)
	msg, err := Decode(data)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	ias, err := msg.IANAs()
	if err != nil {
		t.Fatalf("IANAs error: %v", err)
	}
	if len(ias) != 1 {
		t.Fatalf("IANAs = %d, want 1", len(ias))
	}
	if ias[0].IAID != 12345 {
		t.Errorf("IAID = %d, want 12345", ias[0].IAID)
	}
}

func TestMessageRapidCommit(t *testing.T) {
	m := &Message{Type: MessageTypeSolicit, Options: Options{}}
	if m.HasRapidCommit() {
		t.Error("expected no rapid commit by default")
	}
	m.Options.Add(OptionRapidCommit, nil)
	if !m.HasRapidCommit() {
		t.Error("expected rapid commit after adding option 14")
	}
}

func TestNewReplyCopiesTransactionID(t *testing.T) {
	xid := [3]byte{9, 8, 7}
	req := &Message{Type: MessageTypeSolicit, TransactionID: xid, Options: Options{}}
	reply := req.NewReply(MessageTypeAdvertise)
	if reply.TransactionID != xid {
		t.Errorf("reply TransactionID = %v, want %v", reply.TransactionID, xid)
	}
	if reply.Type != MessageTypeAdvertise {
		t.Errorf("reply Type = %v, want ADVERTISE", reply.Type)
	}
}

func TestRequestedOptions(t *testing.T) {
	m := &Message{Options: Options{}}
	m.Options.Set(OptionOro, []byte{0, 23, 0, 24})
	codes := m.RequestedOptions()
	if len(codes) != 2 || codes[0] != OptionDNSServers || codes[1] != OptionDomainList {
		t.Errorf("RequestedOptions = %v, want [23 24]", codes)
	}
}
