// Package dhcp4 implements the DHCPv4 server core (RFC 2131/2132): a
// pure, synchronous state machine that turns a decoded request into a
// new state plus zero or more responses. Apart from server.go, nothing
// in this package reads a socket, a clock, or a file — server.go, with
// internal/transport, is the adapter that drives the core from real
// UDP traffic.
package dhcp4

import (
	"fmt"
	"net"

	"github.com/nullwatt/dhcpcore/internal/config"
	"github.com/nullwatt/dhcpcore/internal/lease"
	"github.com/nullwatt/dhcpcore/internal/pool"
)

// reservation pins a client identity to a fixed address within a subnet.
type reservation struct {
	MAC      net.HardwareAddr
	ClientID string
	IP       net.IP
	Hostname string
}

// subnetState is one configured v4 subnet plus its derived runtime data.
type subnetState struct {
	Index        int
	Cfg          config.V4SubnetConfig
	Network      *net.IPNet
	Gateway      net.IP
	DNSServers   []net.IP
	Pools        []*pool.Pool
	Reservations []reservation
}

// State is the server core's entire mutable world for one address
// family: configuration, derived subnet/pool data, and the lease
// table. The transport adapter owns the only pointer in play and
// serializes every call into Process/Sweep, per the concurrency model.
type State struct {
	Config  *config.Config
	Leases  *lease.Table
	Subnets []*subnetState
}

// Init builds a v4 server core from validated configuration. Config
// validation itself happens in internal/config; Init assumes cfg has
// already passed config.Load's checks and only translates it into
// runtime pools and subnets.
func Init(cfg *config.Config) (*State, error) {
	s := &State{
		Config: cfg,
		Leases: lease.NewTable(),
	}

	for i, sub := range cfg.V4.Subnets {
		ss, err := buildSubnetState(i, sub)
		if err != nil {
			return nil, fmt.Errorf("v4 subnet %d: %w", i, err)
		}
		s.Subnets = append(s.Subnets, ss)
	}

	return s, nil
}

func buildSubnetState(idx int, sub config.V4SubnetConfig) (*subnetState, error) {
	_, network, err := net.ParseCIDR(sub.Network)
	if err != nil {
		return nil, fmt.Errorf("invalid network %q: %w", sub.Network, err)
	}

	ss := &subnetState{
		Index:   idx,
		Cfg:     sub,
		Network: network,
	}

	if sub.Gateway != "" {
		ss.Gateway = net.ParseIP(sub.Gateway).To4()
	}
	for _, dns := range sub.DNSServers {
		if ip := net.ParseIP(dns); ip != nil {
			ss.DNSServers = append(ss.DNSServers, ip.To4())
		}
	}

	for j, pc := range sub.Pools {
		start := net.ParseIP(pc.RangeStart)
		end := net.ParseIP(pc.RangeEnd)
		name := fmt.Sprintf("%s/pool%d", sub.Network, j)
		p, err := pool.NewPool(name, start, end, network)
		if err != nil {
			return nil, fmt.Errorf("pool %d: %w", j, err)
		}
		p.MatchCircuitID = pc.MatchCircuitID
		p.MatchRemoteID = pc.MatchRemoteID
		p.MatchVendorClass = pc.MatchVendorClass
		p.MatchUserClass = pc.MatchUserClass
		ss.Pools = append(ss.Pools, p)
	}

	for _, rc := range sub.Reservations {
		r := reservation{
			IP:       net.ParseIP(rc.IP).To4(),
			Hostname: rc.Hostname,
		}
		if rc.MAC != "" {
			mac, err := net.ParseMAC(rc.MAC)
			if err != nil {
				return nil, fmt.Errorf("reservation mac %q: %w", rc.MAC, err)
			}
			r.MAC = mac
		}
		r.ClientID = rc.Identifier
		ss.Reservations = append(ss.Reservations, r)
	}

	return ss, nil
}

// Leases returns every lease currently held by this core, across all
// subnets. It is a pure projection and never mutates state, per §5.
func Leases(s *State) []*lease.Lease {
	return s.Leases.All()
}

// findReservation looks up a static reservation for clientID or mac
// within subnet ss.
func (ss *subnetState) findReservation(clientID string, mac net.HardwareAddr) *reservation {
	for i := range ss.Reservations {
		r := &ss.Reservations[i]
		if r.ClientID != "" && clientID != "" && r.ClientID == clientID {
			return r
		}
		if len(r.MAC) > 0 && mac != nil && r.MAC.String() == mac.String() {
			return r
		}
	}
	return nil
}

// findReservationByIP looks up a static reservation pinned to ip, regardless
// of which client is asking.
func (ss *subnetState) findReservationByIP(ip net.IP) *reservation {
	for i := range ss.Reservations {
		if ss.Reservations[i].IP.Equal(ip) {
			return &ss.Reservations[i]
		}
	}
	return nil
}

// poolForIP returns the pool whose range contains ip, or nil if ip
// falls outside every configured pool (e.g. a reservation address
// sitting outside the dynamic ranges).
func (ss *subnetState) poolForIP(ip net.IP) *pool.Pool {
	for _, p := range ss.Pools {
		if p.Contains(ip) {
			return p
		}
	}
	return nil
}

// findSubnetForIP returns the subnet containing ip, or nil.
func (s *State) findSubnetForIP(ip net.IP) *subnetState {
	for _, ss := range s.Subnets {
		if ss.Network.Contains(ip) {
			return ss
		}
	}
	return nil
}
