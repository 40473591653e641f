package ddns

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/nullwatt/dhcpcore/internal/events"
	"github.com/nullwatt/dhcpcore/internal/metrics"
)

// Sink subscribes to the lease event bus and issues forward/reverse DNS
// updates keyed off each lease's hostname.
type Sink struct {
	updater      DNSUpdater
	forwardZone  string
	reverseZone  string
	domain       string
	ttl          uint32
	fallbackMAC  bool
	logger       *slog.Logger
}

// NewSink creates a DDNS sink backed by updater.
func NewSink(updater DNSUpdater, forwardZone, reverseZone, domain string, ttl uint32, fallbackMAC bool, logger *slog.Logger) *Sink {
	return &Sink{
		updater:     updater,
		forwardZone: forwardZone,
		reverseZone: reverseZone,
		domain:      domain,
		ttl:         ttl,
		fallbackMAC: fallbackMAC,
		logger:      logger,
	}
}

// Subscribe registers the sink with bus and starts a goroutine draining
// its channel until ctx is canceled.
func (s *Sink) Subscribe(ctx context.Context, bus *events.Bus) {
	ch := bus.Subscribe(64)
	go func() {
		for {
			select {
			case <-ctx.Done():
				bus.Unsubscribe(ch)
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				s.handle(ev)
			}
		}
	}()
}

func (s *Sink) handle(ev events.Event) {
	if ev.Lease == nil {
		return
	}

	fqdn := BuildFQDN(ev.Lease.FQDN, ev.Lease.Hostname, s.domain, ev.Lease.MAC, s.fallbackMAC)
	if fqdn == "" {
		return
	}

	switch ev.Type {
	case events.EventLeaseAck, events.EventLeaseRenew:
		s.upsert(fqdn, ev.Lease.IP)
	case events.EventLeaseRelease, events.EventLeaseExpire:
		s.remove(fqdn, ev.Lease.IP)
	}
}

func (s *Sink) upsert(fqdn string, ip net.IP) {
	start := time.Now()
	var err error
	if ip4 := ip.To4(); ip4 != nil {
		err = s.updater.AddA(s.forwardZone, fqdn, ip4, s.ttl)
	} else {
		err = s.updater.AddAAAA(s.forwardZone, fqdn, ip, s.ttl)
	}
	metrics.DDNSDuration.WithLabelValues("upsert").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DDNSUpdates.WithLabelValues("upsert", "error").Inc()
		s.logger.Warn("ddns forward update failed", "fqdn", fqdn, "ip", ip, "error", err)
		return
	}
	metrics.DDNSUpdates.WithLabelValues("upsert", "ok").Inc()

	if s.reverseZone == "" {
		return
	}
	reverseName := ReverseIPName(ip)
	if ip.To4() == nil {
		reverseName = ReverseIP6Name(ip)
	}
	if reverseName == "" {
		return
	}
	if err := s.updater.AddPTR(s.reverseZone, reverseName, fqdn, s.ttl); err != nil {
		metrics.DDNSUpdates.WithLabelValues("upsert_ptr", "error").Inc()
		s.logger.Warn("ddns reverse update failed", "fqdn", fqdn, "ip", ip, "error", err)
		return
	}
	metrics.DDNSUpdates.WithLabelValues("upsert_ptr", "ok").Inc()
}

func (s *Sink) remove(fqdn string, ip net.IP) {
	start := time.Now()
	var err error
	if ip.To4() != nil {
		err = s.updater.RemoveA(s.forwardZone, fqdn)
	} else {
		err = s.updater.RemoveAAAA(s.forwardZone, fqdn)
	}
	metrics.DDNSDuration.WithLabelValues("remove").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DDNSUpdates.WithLabelValues("remove", "error").Inc()
		s.logger.Warn("ddns forward removal failed", "fqdn", fqdn, "ip", ip, "error", err)
	} else {
		metrics.DDNSUpdates.WithLabelValues("remove", "ok").Inc()
	}

	if s.reverseZone == "" {
		return
	}
	reverseName := ReverseIPName(ip)
	if ip.To4() == nil {
		reverseName = ReverseIP6Name(ip)
	}
	if reverseName == "" {
		return
	}
	if err := s.updater.RemovePTR(s.reverseZone, reverseName); err != nil {
		metrics.DDNSUpdates.WithLabelValues("remove_ptr", "error").Inc()
		s.logger.Warn("ddns reverse removal failed", "fqdn", fqdn, "ip", ip, "error", err)
		return
	}
	metrics.DDNSUpdates.WithLabelValues("remove_ptr", "ok").Inc()
}
