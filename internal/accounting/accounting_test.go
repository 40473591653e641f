package accounting

import (
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/nullwatt/dhcpcore/internal/events"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestSessionIDPrefersClientID(t *testing.T) {
	ev := events.Event{
		Family: "v4",
		Lease: &events.LeaseData{
			ClientID: "01:aa:bb:cc:dd:ee:ff",
			MAC:      net.HardwareAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff},
		},
	}
	got := sessionID(ev)
	want := "v4:01:aa:bb:cc:dd:ee:ff"
	if got != want {
		t.Errorf("sessionID() = %q, want %q", got, want)
	}
}

func TestSessionIDFallsBackToMAC(t *testing.T) {
	ev := events.Event{
		Family: "v6",
		Lease: &events.LeaseData{
			MAC: net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		},
	}
	got := sessionID(ev)
	want := "v6:00:11:22:33:44:55"
	if got != want {
		t.Errorf("sessionID() = %q, want %q", got, want)
	}
}

func TestHandleIgnoresEventsWithoutLease(t *testing.T) {
	s := NewSink(Config{ServerAddr: "127.0.0.1:0", Secret: "test"}, discardLogger())
	// No Lease set — handle must return before attempting any network I/O.
	s.handle(nil, events.Event{Type: events.EventLeaseAck})
}

func TestHandleIgnoresUntrackedEventTypes(t *testing.T) {
	s := NewSink(Config{ServerAddr: "127.0.0.1:0", Secret: "test"}, discardLogger())
	ev := events.Event{
		Type:  events.EventLeaseDiscover,
		Lease: &events.LeaseData{IP: net.IPv4(192, 168, 1, 10)},
	}
	// DISCOVER has no accounting status mapping — handle must return
	// without dialing out.
	s.handle(nil, ev)
}

func TestNewSinkDefaultsTimeout(t *testing.T) {
	s := NewSink(Config{ServerAddr: "127.0.0.1:0", Secret: "test"}, discardLogger())
	if s.cfg.Timeout != 5*time.Second {
		t.Errorf("default Timeout = %v, want 5s", s.cfg.Timeout)
	}
}
