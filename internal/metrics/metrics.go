// Package metrics defines the Prometheus metrics exported by dhcpcore.
// All metrics use the "dhcpcore_" prefix.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dhcpcore"

// --- DHCP Packet Metrics ---

var (
	// PacketsReceived counts DHCP packets received by family and message type.
	PacketsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "packets_received_total",
		Help:      "Total DHCP packets received, by family and message type.",
	}, []string{"family", "msg_type"})

	// PacketsSent counts DHCP packets sent by family and message type.
	PacketsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "packets_sent_total",
		Help:      "Total DHCP packets sent, by family and message type.",
	}, []string{"family", "msg_type"})

	// PacketErrors counts packet processing errors by family and error type.
	PacketErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "packet_errors_total",
		Help:      "Total packet processing errors, by family and type.",
	}, []string{"family", "type"})

	// PacketProcessingDuration tracks DHCP packet handling latency.
	PacketProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "packet_processing_duration_seconds",
		Help:      "DHCP packet processing duration in seconds.",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
	}, []string{"family", "msg_type"})

	// PacketsDropped counts packets dropped before reaching a core. The
	// transport adapters record only the "rate_limit" reason; malformed
	// datagrams are dropped inside the core and not counted here.
	PacketsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "packets_dropped_total",
		Help:      "Total packets dropped before processing, by family and reason.",
	}, []string{"family", "reason"})
)

// --- Lease Metrics ---

var (
	// LeasesActive is a gauge of currently active leases, by family.
	LeasesActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "leases_active",
		Help:      "Number of currently active leases, by family.",
	}, []string{"family"})

	// LeasesOffered is a gauge of currently offered (pending) leases.
	LeasesOffered = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "leases_offered",
		Help:      "Number of currently offered (pending) leases, by family.",
	}, []string{"family"})

	// LeaseOperations counts lease state transitions.
	LeaseOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lease_operations_total",
		Help:      "Total lease operations, by family and type (offer, ack, renew, release, decline, expire).",
	}, []string{"family", "operation"})
)

// --- Pool Metrics ---

var (
	// PoolSize is the total addresses in each pool.
	PoolSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pool_size",
		Help:      "Total number of addresses in the pool.",
	}, []string{"family", "subnet", "pool"})

	// PoolAllocated is the allocated addresses in each pool.
	PoolAllocated = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pool_allocated",
		Help:      "Number of allocated addresses in the pool.",
	}, []string{"family", "subnet", "pool"})

	// PoolUtilization is the utilization percentage of each pool.
	PoolUtilization = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pool_utilization_percent",
		Help:      "Pool utilization as a percentage.",
	}, []string{"family", "subnet", "pool"})

	// PoolExhausted counts pool exhaustion events.
	PoolExhausted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pool_exhausted_total",
		Help:      "Total times a pool was exhausted during allocation.",
	}, []string{"family", "subnet"})
)

// --- Rate Limit Metrics ---

var (
	// RateLimitRejections counts requests rejected by the transport-layer
	// rate limiter before they reach a server core.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_rejections_total",
		Help:      "Total requests rejected by the rate limiter, by family and scope (global, key).",
	}, []string{"family", "scope"})
)

// --- Event Bus Metrics ---

var (
	// EventsPublished counts events published to the bus.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Total events published to the event bus.",
	}, []string{"event_type"})

	// EventBufferDrops counts events dropped due to full buffer.
	EventBufferDrops = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_buffer_drops_total",
		Help:      "Total events dropped due to full event bus buffer.",
	})
)

// --- DDNS Metrics ---

var (
	// DDNSUpdates counts DNS update operations by type and result.
	DDNSUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ddns_updates_total",
		Help:      "Total DDNS update operations.",
	}, []string{"type", "result"})

	// DDNSDuration tracks DNS update latency.
	DDNSDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ddns_update_duration_seconds",
		Help:      "DDNS update duration in seconds.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
	}, []string{"type"})
)

// --- Accounting Metrics ---

var (
	// AccountingRecords counts RADIUS accounting records sent by type and result.
	AccountingRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "accounting_records_total",
		Help:      "Total RADIUS accounting records sent, by type and result.",
	}, []string{"type", "result"})
)

// --- Audit Metrics ---

var (
	// AuditWrites counts durable audit log writes by result.
	AuditWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_writes_total",
		Help:      "Total audit log writes, by result.",
	}, []string{"result"})
)

// --- Server Info ---

var (
	// ServerInfo is a constant gauge with server metadata.
	ServerInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "server_info",
		Help:      "Server build and version info.",
	}, []string{"version"})

	// ServerStartTime tracks server start time as a unix timestamp.
	ServerStartTime = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "server_start_time_seconds",
		Help:      "Server start time as Unix timestamp.",
	})
)
