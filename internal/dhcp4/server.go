package dhcp4

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/nullwatt/dhcpcore/internal/events"
	"github.com/nullwatt/dhcpcore/internal/metrics"
	"github.com/nullwatt/dhcpcore/internal/transport"
	"github.com/nullwatt/dhcpcore/pkg/dhcpv4"
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return make([]byte, dhcpv4.MaxPacketSize)
	},
}

func getBuffer() []byte  { return bufferPool.Get().([]byte) }
func putBuffer(b []byte) { bufferPool.Put(b[:cap(b)]) }

// Server is the UDP transport adapter that drives a *State with real
// datagrams: it owns the socket, the rate limiter, and the event bus
// publish calls the pure core never makes itself.
type Server struct {
	state   *State
	conn    *transport.V4Conn
	limiter *transport.RateLimiter
	bus     *events.Bus
	clock   transport.Clock
	logger  *slog.Logger
	addr    string

	wg   sync.WaitGroup
	done chan struct{}
}

// NewServer creates a v4 transport adapter around an already-initialized core.
func NewServer(state *State, addr string, limiter *transport.RateLimiter, bus *events.Bus, logger *slog.Logger) *Server {
	if addr == "" {
		addr = ":67"
	}
	return &Server{
		state:   state,
		addr:    addr,
		limiter: limiter,
		bus:     bus,
		clock:   transport.RealClock,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Start opens the listening socket and begins serving in the background.
func (s *Server) Start(ctx context.Context) error {
	conn, err := transport.ListenV4(s.addr)
	if err != nil {
		return err
	}
	s.conn = conn

	s.logger.Info("dhcpv4 server started", "address", s.addr)

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
			s.logger.Error("reading v4 datagram", "error", err)
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
			metrics.PacketsDropped.WithLabelValues("v4", "rate_limit").Inc()
			return
		}
	}

	reqType := "UNKNOWN"
	if req, err := dhcpv4.Decode(data); err == nil {
		reqType = req.MessageType().String()
	}
	metrics.PacketsReceived.WithLabelValues("v4", reqType).Inc()

	start := time.Now()
	now := s.clock()

	newState, responses, evts, err := Process(s.state, data, src.IP, src.Port, now)
	s.state = newState

	metrics.PacketProcessingDuration.WithLabelValues("v4", reqType).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.PacketErrors.WithLabelValues("v4", "internal").Inc()
		s.logger.Error("processing v4 datagram", "error", err, "src", src.String())
		return
	}

	for _, resp := range responses {
		dst := &net.UDPAddr{IP: resp.Dest, Port: resp.Port}
		sendIf := 0
		if resp.Hint == HintBroadcast {
			sendIf = ifIndex
		}
		if _, err := s.conn.WriteTo(resp.Data, dst, sendIf); err != nil {
			metrics.PacketErrors.WithLabelValues("v4", "send").Inc()
			s.logger.Error("sending v4 reply", "error", err, "dst", dst.String())
			continue
		}
		metrics.PacketsSent.WithLabelValues("v4", resp.MsgType).Inc()
	}

	if s.bus != nil {
		for _, ev := range evts {
			ev.Timestamp = now
			s.bus.Publish(ev)
		}
	}
}

// rateLimitKey extracts a best-effort client key from a still-encoded
// datagram so the limiter can run before the (more expensive) full
// decode that Process performs.
func rateLimitKey(data []byte) string {
	if len(data) < 34 {
		return ""
	}
	hlen := data[2]
	if hlen == 0 || hlen > 16 {
		hlen = 6
	}
	chaddr := data[28 : 28+int(hlen)]
	return net.HardwareAddr(chaddr).String()
}

// Stop gracefully shuts the server down, waiting for in-flight packets.
func (s *Server) Stop() {
	close(s.done)
	if s.conn != nil {
		s.conn.Close()
	}
	s.wg.Wait()
	s.logger.Info("dhcpv4 server stopped")
}

// State returns the server's current core state (for Sweep/Leases callers).
func (s *Server) State() *State { return s.state }
