package dhcp6

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/nullwatt/dhcpcore/internal/events"
	"github.com/nullwatt/dhcpcore/internal/metrics"
	"github.com/nullwatt/dhcpcore/internal/transport"
	"github.com/nullwatt/dhcpcore/pkg/dhcpv6"
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return make([]byte, 1500)
	},
}

func getBuffer() []byte  { return bufferPool.Get().([]byte) }
func putBuffer(b []byte) { bufferPool.Put(b[:cap(b)]) }

// Server is the UDP transport adapter that drives a *State with real
// datagrams over the All_DHCP_Relay_Agents_and_Servers multicast group.
type Server struct {
	state      *State
	conn       *transport.V6Conn
	limiter    *transport.RateLimiter
	bus        *events.Bus
	clock      transport.Clock
	logger     *slog.Logger
	addr       string
	interfaces []string

	wg   sync.WaitGroup
	done chan struct{}
}

// NewServer creates a v6 transport adapter around an already-initialized core.
func NewServer(state *State, addr string, interfaces []string, limiter *transport.RateLimiter, bus *events.Bus, logger *slog.Logger) *Server {
	if addr == "" {
		addr = ":547"
	}
	return &Server{
		state:      state,
		addr:       addr,
		interfaces: interfaces,
		limiter:    limiter,
		bus:        bus,
		clock:      transport.RealClock,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start joins the multicast group and begins serving in the background.
func (s *Server) Start(ctx context.Context) error {
	conn, err := transport.ListenV6(s.addr, s.interfaces)
	if err != nil {
		return err
	}
	s.conn = conn

	s.logger.Info("dhcpv6 server started", "address", s.addr)

	s.wg.Add(1)
	go s.serve(ctx)
	return nil
}

func (s *Server) serve(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		default:
		}

		buf := getBuffer()
		n, src, ifIndex, err := s.conn.ReadFrom(buf)
		if err != nil {
			putBuffer(buf)
			select {
			case <-s.done:
				return
			default:
			}
			s.logger.Error("reading v6 datagram", "error", err)
			continue
		}

		s.wg.Add(1)
		go func(data []byte, src *net.UDPAddr, ifIndex int) {
			defer s.wg.Done()
			defer putBuffer(data)
			s.handle(data, src, ifIndex)
		}(buf[:n], src, ifIndex)
	}
}

func (s *Server) handle(data []byte, src *net.UDPAddr, ifIndex int) {
	if s.limiter != nil {
		key := rateLimitKey(data)
		if key != "" && !s.limiter.Allow(key) {
			metrics.PacketsDropped.WithLabelValues("v6", "rate_limit").Inc()
			return
		}
	}

	reqType := "UNKNOWN"
	if req, err := dhcpv6.Decode(data); err == nil {
		reqType = req.Type.String()
	}
	metrics.PacketsReceived.WithLabelValues("v6", reqType).Inc()

	start := time.Now()
	now := s.clock()

	newState, responses, evts, err := Process(s.state, data, src.IP, src.Port, now)
	s.state = newState

	metrics.PacketProcessingDuration.WithLabelValues("v6", reqType).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.PacketErrors.WithLabelValues("v6", "internal").Inc()
		s.logger.Error("processing v6 datagram", "error", err, "src", src.String())
		return
	}

	for _, resp := range responses {
		dst := &net.UDPAddr{IP: resp.Dest, Port: resp.Port, Zone: src.Zone}
		if _, err := s.conn.WriteTo(resp.Data, dst, ifIndex); err != nil {
			metrics.PacketErrors.WithLabelValues("v6", "send").Inc()
			s.logger.Error("sending v6 reply", "error", err, "dst", dst.String())
			continue
		}
		metrics.PacketsSent.WithLabelValues("v6", resp.MsgType).Inc()
	}

	if s.bus != nil {
		for _, ev := range evts {
			ev.Timestamp = now
			s.bus.Publish(ev)
		}
	}
}

// rateLimitKey extracts a client key (the raw CLIENTID option bytes)
// for the limiter. Unlike v4's byte-offset peek, DHCPv6's option
// stream has no fixed layout to peek at, so this decodes the message
// once; Process's own decode just below is redundant but cheap next
// to a UDP round trip.
func rateLimitKey(data []byte) string {
	msg, err := dhcpv6.Decode(data)
	if err != nil {
		return ""
	}
	cid := msg.ClientID()
	if len(cid) == 0 {
		return ""
	}
	return string(cid)
}

// Stop gracefully shuts the server down, waiting for in-flight packets.
func (s *Server) Stop() {
	close(s.done)
	if s.conn != nil {
		s.conn.Close()
	}
	s.wg.Wait()
	s.logger.Info("dhcpv6 server stopped")
}

// State returns the server's current core state (for Sweep/Leases callers).
func (s *Server) State() *State { return s.state }
