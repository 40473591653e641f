package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRegistered(t *testing.T) {
	// Verify key metrics are registered with the default registry.
	// promauto registers automatically, so we just verify they exist
	// by writing a value and collecting it.

	PacketsReceived.WithLabelValues("v4", "DHCPDISCOVER").Inc()
	PacketsSent.WithLabelValues("v4", "DHCPOFFER").Inc()
	PacketErrors.WithLabelValues("v4", "decode").Inc()
	PacketsDropped.WithLabelValues("v4", "rate_limit").Inc()
	LeaseOperations.WithLabelValues("v4", "offer").Inc()
	LeasesActive.WithLabelValues("v4").Set(42)
	LeasesOffered.WithLabelValues("v4").Set(3)
	EventsPublished.WithLabelValues("lease.ack").Inc()
	EventBufferDrops.Inc()
	RateLimitRejections.WithLabelValues("v4", "global").Inc()
	DDNSUpdates.WithLabelValues("upsert", "ok").Inc()
	AccountingRecords.WithLabelValues("start", "ok").Inc()
	AuditWrites.WithLabelValues("ok").Inc()
	PoolSize.WithLabelValues("v4", "192.168.1.0/24", "pool1").Set(254)
	PoolAllocated.WithLabelValues("v4", "192.168.1.0/24", "pool1").Set(100)
	PoolUtilization.WithLabelValues("v4", "192.168.1.0/24", "pool1").Set(39.4)
	PoolExhausted.WithLabelValues("v4", "192.168.1.0/24").Inc()
	ServerStartTime.SetToCurrentTime()
	ServerInfo.WithLabelValues("dev").Set(1)

	// Verify a few metrics via testutil
	if got := testutil.ToFloat64(LeasesActive.WithLabelValues("v4")); got != 42 {
		t.Errorf("LeasesActive = %v, want 42", got)
	}
	if got := testutil.ToFloat64(LeasesOffered.WithLabelValues("v4")); got != 3 {
		t.Errorf("LeasesOffered = %v, want 3", got)
	}
	if got := testutil.ToFloat64(EventBufferDrops); got != 1 {
		t.Errorf("EventBufferDrops = %v, want 1", got)
	}
}

func TestMetricsNamespace(t *testing.T) {
	// All metrics should use the dhcpcore_ namespace.
	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	for _, mf := range mfs {
		name := mf.GetName()
		// Skip standard go_* and process_* and promhttp_* metrics
		if strings.HasPrefix(name, "go_") ||
			strings.HasPrefix(name, "process_") ||
			strings.HasPrefix(name, "promhttp_") {
			continue
		}
		if !strings.HasPrefix(name, "dhcpcore_") {
			t.Errorf("metric %q does not have dhcpcore_ prefix", name)
		}
	}
}
