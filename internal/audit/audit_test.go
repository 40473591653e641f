package audit

import (
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/nullwatt/dhcpcore/internal/events"
)

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

func openTestLog(t *testing.T) *Log {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.db")
	l, err := Open(path, testLogger())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAppendAndForEach(t *testing.T) {
	l := openTestLog(t)

	events1 := []events.Event{
		{Type: events.EventLeaseOffer, Family: "v4", Timestamp: time.Unix(1, 0)},
		{Type: events.EventLeaseAck, Family: "v4", Timestamp: time.Unix(2, 0)},
		{Type: events.EventLeaseRelease, Family: "v4", Timestamp: time.Unix(3, 0)},
	}
	for _, ev := range events1 {
		if err := l.Append(ev); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}

	var got []events.Event
	if err := l.ForEach(func(ev events.Event) error {
		got = append(got, ev)
		return nil
	}); err != nil {
		t.Fatalf("ForEach error: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("ForEach returned %d events, want 3", len(got))
	}
	for i, ev := range got {
		if ev.Type != events1[i].Type {
			t.Errorf("event %d Type = %q, want %q", i, ev.Type, events1[i].Type)
		}
	}
}

func TestCount(t *testing.T) {
	l := openTestLog(t)

	if l.Count() != 0 {
		t.Errorf("Count() = %d, want 0", l.Count())
	}
	l.Append(events.Event{Type: events.EventLeaseOffer})
	l.Append(events.Event{Type: events.EventLeaseAck})
	if l.Count() != 2 {
		t.Errorf("Count() = %d, want 2", l.Count())
	}
}

func TestSubscribeAppendsPublishedEvents(t *testing.T) {
	l := openTestLog(t)
	bus := events.NewBus(16, testLogger())
	go bus.Start()
	defer bus.Stop()

	unsubscribe := l.Subscribe(bus)
	defer unsubscribe()

	bus.Publish(events.Event{
		Type: events.EventLeaseAck,
		Lease: &events.LeaseData{
			IP:  net.IPv4(192, 168, 1, 5),
			MAC: net.HardwareAddr{0x01, 0x02, 0x03, 0x04, 0x05, 0x06},
		},
	})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if l.Count() >= 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected at least 1 event appended, got %d", l.Count())
}
