package ddns

import (
	"log/slog"
	"net"
	"testing"

	"github.com/nullwatt/dhcpcore/internal/events"
)

type fakeUpdater struct {
	addedA     []string
	addedAAAA  []string
	removedA   []string
	removedAAAA []string
	addedPTR   []string
	removedPTR []string
}

func (f *fakeUpdater) AddA(zone, fqdn string, ip net.IP, ttl uint32) error {
	f.addedA = append(f.addedA, fqdn)
	return nil
}
func (f *fakeUpdater) RemoveA(zone, fqdn string) error {
	f.removedA = append(f.removedA, fqdn)
	return nil
}
func (f *fakeUpdater) AddAAAA(zone, fqdn string, ip net.IP, ttl uint32) error {
	f.addedAAAA = append(f.addedAAAA, fqdn)
	return nil
}
func (f *fakeUpdater) RemoveAAAA(zone, fqdn string) error {
	f.removedAAAA = append(f.removedAAAA, fqdn)
	return nil
}
func (f *fakeUpdater) AddPTR(zone, reverseIP, fqdn string, ttl uint32) error {
	f.addedPTR = append(f.addedPTR, reverseIP)
	return nil
}
func (f *fakeUpdater) RemovePTR(zone, reverseIP string) error {
	f.removedPTR = append(f.removedPTR, reverseIP)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestSinkHandleV4Ack(t *testing.T) {
	fu := &fakeUpdater{}
	s := NewSink(fu, "example.com.", "in-addr.arpa.", "example.com", 300, false, testLogger())

	s.handle(events.Event{
		Type: events.EventLeaseAck,
		Lease: &events.LeaseData{
			IP:       net.IPv4(192, 168, 1, 50),
			Hostname: "myhost",
		},
	})

	if len(fu.addedA) != 1 || fu.addedA[0] != "myhost.example.com." {
		t.Errorf("addedA = %v, want [myhost.example.com.]", fu.addedA)
	}
	if len(fu.addedPTR) != 1 {
		t.Fatalf("addedPTR = %v, want 1 entry", fu.addedPTR)
	}
}

func TestSinkHandleV6Release(t *testing.T) {
	fu := &fakeUpdater{}
	s := NewSink(fu, "example.com.", "ip6.arpa.", "example.com", 300, false, testLogger())

	ip := net.ParseIP("2001:db8::1")
	s.handle(events.Event{
		Type: events.EventLeaseRelease,
		Lease: &events.LeaseData{
			IP:       ip,
			Hostname: "v6host",
		},
	})

	if len(fu.removedAAAA) != 1 || fu.removedAAAA[0] != "v6host.example.com." {
		t.Errorf("removedAAAA = %v, want [v6host.example.com.]", fu.removedAAAA)
	}
	if len(fu.removedPTR) != 1 {
		t.Fatalf("removedPTR = %v, want 1 entry", fu.removedPTR)
	}
}

func TestSinkHandleIgnoresEventsWithoutHostname(t *testing.T) {
	fu := &fakeUpdater{}
	s := NewSink(fu, "example.com.", "", "", 300, false, testLogger())

	s.handle(events.Event{
		Type:  events.EventLeaseAck,
		Lease: &events.LeaseData{IP: net.IPv4(10, 0, 0, 1)},
	})

	if len(fu.addedA) != 0 {
		t.Errorf("addedA = %v, want none (no hostname, no fallback)", fu.addedA)
	}
}
