// Package accounting subscribes to the lease event bus and emits RADIUS
// Accounting-Request packets (RFC 2866) for lease ACK/RENEW/RELEASE/EXPIRE.
// This is accounting, not authentication — no Access-Request ever
// leaves this package.
package accounting

import (
	"context"
	"log/slog"
	"time"

	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
	"layeh.com/radius/rfc2866"

	"github.com/nullwatt/dhcpcore/internal/events"
	"github.com/nullwatt/dhcpcore/internal/metrics"
)

// Config holds RADIUS accounting server settings.
type Config struct {
	ServerAddr  string
	Secret      string
	NASIdentity string
	Timeout     time.Duration
}

// Sink sends RADIUS accounting packets for lease lifecycle events.
type Sink struct {
	cfg    Config
	logger *slog.Logger
}

// NewSink creates an accounting sink. Call Subscribe to start listening.
func NewSink(cfg Config, logger *slog.Logger) *Sink {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Sink{cfg: cfg, logger: logger}
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
				s.handle(ctx, ev)
			}
		}
	}()
}

func (s *Sink) handle(ctx context.Context, ev events.Event) {
	if ev.Lease == nil {
		return
	}

	var status rfc2866.AcctStatusType
	switch ev.Type {
	case events.EventLeaseAck, events.EventLeaseRenew:
		status = rfc2866.AcctStatusType_Value_Start
	case events.EventLeaseRelease, events.EventLeaseExpire:
		status = rfc2866.AcctStatusType_Value_Stop
	default:
		return
	}

	statusLabel := "start"
	if status == rfc2866.AcctStatusType_Value_Stop {
		statusLabel = "stop"
	}

	if err := s.send(ctx, status, ev); err != nil {
		metrics.AccountingRecords.WithLabelValues(statusLabel, "error").Inc()
		s.logger.Warn("radius accounting request failed",
			"server", s.cfg.ServerAddr,
			"ip", ev.Lease.IP.String(),
			"error", err)
		return
	}
	metrics.AccountingRecords.WithLabelValues(statusLabel, "ok").Inc()
}

func (s *Sink) send(ctx context.Context, status rfc2866.AcctStatusType, ev events.Event) error {
	packet := radius.New(radius.CodeAccountingRequest, []byte(s.cfg.Secret))
	rfc2866.AcctStatusType_Set(packet, status)
	rfc2866.AcctSessionID_SetString(packet, sessionID(ev))

	if s.cfg.NASIdentity != "" {
		rfc2865.NASIdentifier_SetString(packet, s.cfg.NASIdentity)
	}
	if len(ev.Lease.MAC) > 0 {
		rfc2865.CallingStationID_SetString(packet, ev.Lease.MAC.String())
	}
	if ip := ev.Lease.IP.To4(); ip != nil {
		rfc2865.FramedIPAddress_Set(packet, ip)
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	_, err := radius.Exchange(reqCtx, packet, s.cfg.ServerAddr)
	return err
}

// sessionID derives a stable accounting session identifier from the
// client identity plus the lease's family, so a v4 and a v6 lease for
// the same MAC never collide.
func sessionID(ev events.Event) string {
	if ev.Lease.ClientID != "" {
		return ev.Family + ":" + ev.Lease.ClientID
	}
	return ev.Family + ":" + ev.Lease.MAC.String()
}
