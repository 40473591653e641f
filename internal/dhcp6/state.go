// Package dhcp6 implements the DHCPv6 server core (RFC 3315/3633): a
// pure, synchronous state machine mirroring internal/dhcp4's shape —
// apart from server.go, nothing in this package reads a socket, a
// clock, or a file. server.go, with internal/transport, is the adapter
// that joins the multicast group and drives the core from real traffic.
package dhcp6

import (
	"encoding/hex"
	"fmt"
	"net"
	"strings"

	"github.com/nullwatt/dhcpcore/internal/config"
	"github.com/nullwatt/dhcpcore/internal/duid"
	"github.com/nullwatt/dhcpcore/internal/lease"
	"github.com/nullwatt/dhcpcore/internal/pool"
)

// reservation6 pins a (DUID, IAID) pair to a fixed address within a subnet.
type reservation6 struct {
	DUID     []byte
	IAID     uint32
	IP       net.IP
	Hostname string
}

// subnetState is one configured v6 subnet plus its derived runtime data.
// Unlike v4, a v6 subnet has exactly one address pool — the single
// range_start/range_end configured for its prefix.
type subnetState struct {
	Index        int
	Cfg          config.V6SubnetConfig
	Prefix       *net.IPNet
	DNSServers   []net.IP
	Pool         *pool.Pool6
	Reservations []reservation6
}

// State is the server core's entire mutable world for the v6 address
// family: configuration, derived subnet/pool data, the server's own
// DUID, and the lease table.
type State struct {
	Config   *config.Config
	ServerID []byte // the server's own DUID, wire-encoded
	Leases   *lease.Table6
	Subnets  []*subnetState
}

// Init builds a v6 server core from validated configuration. As with
// dhcp4.Init, cfg is assumed to have already passed config.Load's checks.
func Init(cfg *config.Config) (*State, error) {
	serverID, err := resolveServerID(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolving server DUID: %w", err)
	}

	s := &State{
		Config:   cfg,
		ServerID: serverID,
		Leases:   lease.NewTable6(),
	}

	for i, sub := range cfg.V6.Subnets {
		ss, err := buildSubnetState(i, sub)
		if err != nil {
			return nil, fmt.Errorf("v6 subnet %d: %w", i, err)
		}
		s.Subnets = append(s.Subnets, ss)
	}

	return s, nil
}

// resolveServerID produces the server's own DUID bytes: a configured
// literal, else a DUID-LL derived from the listening interface's
// hardware address, else a DUID-LL derived by hashing the interface
// name and bind address into a stable pseudo link-layer address (for interfaces with no
// usable hardware address of their own, e.g. a bridge).
func resolveServerID(cfg *config.Config) ([]byte, error) {
	if cfg.Server.ServerDUID != "" {
		raw, err := parseColonHex(cfg.Server.ServerDUID)
		if err != nil {
			return nil, fmt.Errorf("server_duid %q: %w", cfg.Server.ServerDUID, err)
		}
		if _, err := duid.Decode(raw); err != nil {
			return nil, fmt.Errorf("server_duid %q: %w", cfg.Server.ServerDUID, err)
		}
		return raw, nil
	}

	if cfg.Server.Interface != "" {
		if iface, err := net.InterfaceByName(cfg.Server.Interface); err == nil && len(iface.HardwareAddr) > 0 {
			return duid.FromInterfaceLL(iface).Encode(), nil
		}
	}

	d, err := duid.DeriveServerIdentity([]byte(cfg.Server.Interface + cfg.Server.BindAddress))
	if err != nil {
		return nil, err
	}
	return d.Encode(), nil
}

func parseColonHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.ReplaceAll(s, ":", ""))
}

func buildSubnetState(idx int, sub config.V6SubnetConfig) (*subnetState, error) {
	prefixIP := net.ParseIP(sub.Prefix)
	if prefixIP == nil {
		return nil, fmt.Errorf("invalid prefix %q", sub.Prefix)
	}
	prefix := &net.IPNet{IP: prefixIP.To16(), Mask: net.CIDRMask(sub.PrefixLength, 128)}

	ss := &subnetState{
		Index:  idx,
		Cfg:    sub,
		Prefix: prefix,
	}

	for _, dns := range sub.DNSServers {
		if ip := net.ParseIP(dns); ip != nil {
			ss.DNSServers = append(ss.DNSServers, ip.To16())
		}
	}

	start := net.ParseIP(sub.RangeStart)
	end := net.ParseIP(sub.RangeEnd)
	name := fmt.Sprintf("%s/%d", sub.Prefix, sub.PrefixLength)
	p, err := pool.NewPool6(name, start, end)
	if err != nil {
		return nil, fmt.Errorf("pool: %w", err)
	}
	ss.Pool = p

	for j, rc := range sub.Reservations {
		d, err := parseColonHex(rc.DUID)
		if err != nil {
			return nil, fmt.Errorf("reservation %d duid %q: %w", j, rc.DUID, err)
		}
		ss.Reservations = append(ss.Reservations, reservation6{
			DUID:     d,
			IAID:     rc.IAID,
			IP:       net.ParseIP(rc.IP).To16(),
			Hostname: rc.Hostname,
		})
	}

	return ss, nil
}

// Leases returns every lease currently held by this core, across all
// subnets. A pure projection; never mutates state.
func Leases(s *State) []*lease.Lease6 {
	return s.Leases.All()
}

// findReservation looks up a static reservation for (duidBytes, iaid)
// within subnet ss.
func (ss *subnetState) findReservation(duidBytes []byte, iaid uint32) *reservation6 {
	for i := range ss.Reservations {
		r := &ss.Reservations[i]
		if r.IAID == iaid && hex.EncodeToString(r.DUID) == hex.EncodeToString(duidBytes) {
			return r
		}
	}
	return nil
}

// findReservationByIP looks up a static reservation pinned to ip,
// regardless of which identity association is asking.
func (ss *subnetState) findReservationByIP(ip net.IP) *reservation6 {
	for i := range ss.Reservations {
		if ss.Reservations[i].IP.Equal(ip) {
			return &ss.Reservations[i]
		}
	}
	return nil
}

// findSubnetForIP returns the subnet whose prefix contains ip, or nil.
func (s *State) findSubnetForIP(ip net.IP) *subnetState {
	for _, ss := range s.Subnets {
		if ss.Prefix.Contains(ip) {
			return ss
		}
	}
	return nil
}

// findSubnetForDUID returns the subnet already holding a lease for
// duidBytes, or nil.
func (s *State) findSubnetForDUID(duidBytes []byte) *subnetState {
	leases := s.Leases.ByDUID(duidBytes)
	for _, l := range leases {
		if ss := s.findSubnetForIP(l.IP); ss != nil {
			return ss
		}
	}
	return nil
}
