package dhcp4

import (
	"fmt"
	"net"
	"time"

	"github.com/nullwatt/dhcpcore/internal/events"
	"github.com/nullwatt/dhcpcore/internal/lease"
	"github.com/nullwatt/dhcpcore/internal/pool"
	"github.com/nullwatt/dhcpcore/pkg/dhcpv4"
)

// InvariantError marks a programmer-error-class failure (§4.8): an
// allocated address that turns out not to belong to any pool, or
// similar impossible states. The transport layer may log-and-drop or
// escalate; the core itself never recovers from one.
type InvariantError struct {
	msg string
}

func (e *InvariantError) Error() string { return e.msg }

func invariantf(format string, args ...interface{}) error {
	return &InvariantError{msg: fmt.Sprintf(format, args...)}
}

// clientKey returns the identity used to key lease lookups: option 61
// if present, otherwise the hardware address, per spec.md §4.6.
func clientKey(m *dhcpv4.Message) string {
	if cid := m.ClientIdentifier(); len(cid) > 0 {
		return fmt.Sprintf("%x", cid)
	}
	return m.CHAddr.String()
}

// findSubnet picks the v4 subnet a request belongs to. The core has no
// notion of a receiving interface (the literal process_v4 signature
// carries only the peer address and port), so subnet selection relies
// purely on the message's own fields: giaddr for relayed traffic,
// ciaddr for a renewing client, option 50 for a fresh request, and
// falls back to the sole configured subnet in single-subnet
// deployments.
func (s *State) findSubnet(m *dhcpv4.Message) *subnetState {
	if m.IsRelayed() {
		if ss := s.findSubnetForIP(m.GIAddr); ss != nil {
			return ss
		}
	}
	if !m.CIAddr.Equal(net.IPv4zero) && m.CIAddr != nil {
		if ss := s.findSubnetForIP(m.CIAddr); ss != nil {
			return ss
		}
	}
	if req := m.RequestedIP(); req != nil {
		if ss := s.findSubnetForIP(req); ss != nil {
			return ss
		}
	}
	if len(s.Subnets) == 1 {
		return s.Subnets[0]
	}
	return nil
}

// dispatch processes one decoded message against state, mutating state
// in place and returning zero or more reply messages plus the lease
// events the transition produced. now is the only source of time the
// core ever consults.
func (s *State) dispatch(m *dhcpv4.Message, now time.Time) ([]*dhcpv4.Message, []events.Event, error) {
	switch m.MessageType() {
	case dhcpv4.MessageTypeDiscover:
		return s.handleDiscover(m, now)
	case dhcpv4.MessageTypeRequest:
		return s.handleRequest(m, now)
	case dhcpv4.MessageTypeDecline:
		return s.handleDecline(m, now)
	case dhcpv4.MessageTypeRelease:
		return s.handleRelease(m, now)
	case dhcpv4.MessageTypeInform:
		return s.handleInform(m, now)
	default:
		return nil, nil, nil
	}
}

func (s *State) handleDiscover(m *dhcpv4.Message, now time.Time) ([]*dhcpv4.Message, []events.Event, error) {
	mac := m.CHAddr
	cid := clientKey(m)
	hostname := m.Hostname()

	ss := s.findSubnet(m)
	if ss == nil {
		return nil, nil, nil
	}

	if res := ss.findReservation(cid, mac); res != nil && ss.Network.Contains(res.IP) {
		offer := s.buildOffer(ss, m, res.IP, mac, cid, res.Hostname, "", now)
		return []*dhcpv4.Message{offer}, leaseEvents(events.EventLeaseOffer, s.Leases.GetByClientID(cid), ""), nil
	}

	if existing := s.Leases.GetByClientID(cid); existing != nil && existing.Subnet == ss.Cfg.Network {
		offer := s.buildOffer(ss, m, existing.IP, mac, cid, hostname, existing.Pool, now)
		return []*dhcpv4.Message{offer}, nil, nil
	}

	criteria := pool.MatchCriteria{
		VendorClass: m.VendorClassID(),
		UserClass:   m.UserClassID(),
	}
	if relay := dhcpv4.GetRelayInfo(m); relay != nil {
		criteria.CircuitID = relay.CircuitID
		criteria.RemoteID = relay.RemoteID
	}

	selected := pool.SelectPool(ss.Pools, criteria)
	if selected == nil {
		return nil, nil, nil
	}

	requested := m.RequestedIP()
	var ip net.IP
	if requested != nil && selected.Contains(requested) && !selected.IsAllocated(requested) && ss.findReservationByIP(requested) == nil {
		if selected.AllocateSpecific(requested) {
			ip = requested
		}
	}
	if ip == nil {
		for {
			candidate := selected.Allocate()
			if candidate == nil {
				break
			}
			if ss.findReservationByIP(candidate) != nil {
				selected.Release(candidate)
				continue
			}
			ip = candidate
			break
		}
	}
	if ip == nil {
		// Pool exhausted — spec.md §4.8: DISCOVER gets no response at all.
		return nil, nil, nil
	}

	offer := s.buildOffer(ss, m, ip, mac, cid, hostname, selected.RangeString(), now)
	return []*dhcpv4.Message{offer}, nil, nil
}

func (s *State) buildOffer(ss *subnetState, m *dhcpv4.Message, ip net.IP, mac net.HardwareAddr, cid, hostname, poolRange string, now time.Time) *dhcpv4.Message {
	leaseTime := s.Config.LeaseTime(ss.Index)

	l := &lease.Lease{
		IP:          ip,
		MAC:         mac,
		ClientID:    cid,
		Hostname:    hostname,
		Subnet:      ss.Cfg.Network,
		Pool:        poolRange,
		State:       lease.StateOffered,
		Start:       now,
		Expiry:      now.Add(leaseTime),
		LastUpdated: now,
		UpdateSeq:   s.Leases.NextSeq(),
	}
	if m.IsRelayed() {
		l.RelayInfo = relayInfoFromMessage(m)
	}
	s.Leases.Put(l)

	reply := m.NewReply(dhcpv4.MessageTypeOffer, s.serverIdentity(ss))
	reply.YIAddr = ip
	reply.SIAddr = zeroIfNil(ss.Gateway)
	s.setOptions(reply, ss, leaseTime)
	copyRelayInfo(reply, m)
	return reply
}

func (s *State) handleRequest(m *dhcpv4.Message, now time.Time) ([]*dhcpv4.Message, []events.Event, error) {
	mac := m.CHAddr
	cid := clientKey(m)
	hostname := m.Hostname()

	serverID := m.ServerIdentifier()
	if serverID != nil {
		ourID := s.Config.ServerIP()
		if ourID != nil && !serverID.Equal(ourID) {
			return nil, nil, nil
		}
	}

	var ip net.IP
	if req := m.RequestedIP(); req != nil {
		ip = req
	} else if m.CIAddr != nil && !m.CIAddr.Equal(net.IPv4zero) {
		ip = m.CIAddr
	}
	if ip == nil {
		return []*dhcpv4.Message{s.buildNAK(m, "no requested IP or ciaddr in request")}, nil, nil
	}

	ss := s.findSubnet(m)
	if ss == nil {
		return []*dhcpv4.Message{s.buildNAK(m, "no matching subnet")}, nil, nil
	}
	if !ss.Network.Contains(ip) {
		return []*dhcpv4.Message{s.buildNAK(m, "requested address not in subnet")}, nil, nil
	}

	if res := ss.findReservation(cid, mac); res != nil {
		if !res.IP.Equal(ip) {
			return []*dhcpv4.Message{s.buildNAK(m, "address reserved for another client")}, nil, nil
		}
	} else if pinned := ss.findReservationByIP(ip); pinned != nil {
		return []*dhcpv4.Message{s.buildNAK(m, "address reserved for another client")}, nil, nil
	} else if existing := s.Leases.GetByIP(ip); existing != nil && existing.ClientID != "" && existing.ClientID != cid {
		return []*dhcpv4.Message{s.buildNAK(m, "address in use by another client")}, nil, nil
	}

	leaseTime := s.Config.LeaseTime(ss.Index)
	existing := s.Leases.GetByClientID(cid)
	poolRange := ""
	if existing != nil {
		poolRange = existing.Pool
	}

	// A REQUEST can arrive with no prior OFFER (RFC 2131 INIT-REBOOT),
	// in which case nothing has ever marked ip allocated in the pool
	// bitmap. Claim it here so a later DISCOVER from a different client
	// can't be handed the same address.
	if selected := ss.poolForIP(ip); selected != nil && !selected.IsAllocated(ip) {
		if !selected.AllocateSpecific(ip) {
			return []*dhcpv4.Message{s.buildNAK(m, "address unavailable")}, nil, nil
		}
		poolRange = selected.RangeString()
	}

	l := &lease.Lease{
		IP:          ip,
		MAC:         mac,
		ClientID:    cid,
		Hostname:    hostname,
		Subnet:      ss.Cfg.Network,
		Pool:        poolRange,
		State:       lease.StateActive,
		Start:       now,
		Expiry:      now.Add(leaseTime),
		LastUpdated: now,
		UpdateSeq:   s.Leases.NextSeq(),
	}
	if m.IsRelayed() {
		l.RelayInfo = relayInfoFromMessage(m)
	}
	s.Leases.Put(l)

	reply := m.NewReply(dhcpv4.MessageTypeAck, s.serverIdentity(ss))
	reply.YIAddr = ip
	reply.SIAddr = zeroIfNil(ss.Gateway)
	if m.CIAddr != nil && !m.CIAddr.Equal(net.IPv4zero) {
		reply.CIAddr = m.CIAddr
	}
	s.setOptions(reply, ss, leaseTime)
	copyRelayInfo(reply, m)

	evType := events.EventLeaseAck
	if existing != nil && existing.IP.Equal(ip) {
		evType = events.EventLeaseRenew
	}
	return []*dhcpv4.Message{reply}, leaseEvents(evType, l, ""), nil
}

func (s *State) buildNAK(m *dhcpv4.Message, reason string) *dhcpv4.Message {
	reply := m.NewReply(dhcpv4.MessageTypeNak, s.Config.ServerIP())
	if reason != "" {
		reply.Options.SetString(dhcpv4.OptionMessage, reason)
	}
	return reply
}

func (s *State) handleDecline(m *dhcpv4.Message, now time.Time) ([]*dhcpv4.Message, []events.Event, error) {
	ip := m.RequestedIP()
	if ip == nil {
		return nil, nil, nil
	}
	cid := clientKey(m)

	ss := s.findSubnetForIP(ip)
	if ss != nil {
		for _, p := range ss.Pools {
			if p.Contains(ip) {
				p.Decline(ip)
				break
			}
		}
	}

	l := s.Leases.GetByIP(ip)
	s.Leases.Delete(ip)

	if l == nil {
		l = &lease.Lease{IP: ip, MAC: m.CHAddr, ClientID: cid, State: lease.StateDeclined, LastUpdated: now}
	}
	return nil, leaseEvents(events.EventLeaseDecline, l, ""), nil
}

func (s *State) handleRelease(m *dhcpv4.Message, now time.Time) ([]*dhcpv4.Message, []events.Event, error) {
	ip := m.CIAddr
	if ip == nil || ip.Equal(net.IPv4zero) {
		return nil, nil, nil
	}

	l := s.Leases.GetByIP(ip)
	if l != nil {
		s.Leases.Delete(ip)
	}

	ss := s.findSubnetForIP(ip)
	if ss != nil {
		for _, p := range ss.Pools {
			if p.Contains(ip) {
				p.Release(ip)
				break
			}
		}
	}

	if l == nil {
		l = &lease.Lease{IP: ip, MAC: m.CHAddr, LastUpdated: now}
	}
	return nil, leaseEvents(events.EventLeaseRelease, l, ""), nil
}

func (s *State) handleInform(m *dhcpv4.Message, now time.Time) ([]*dhcpv4.Message, []events.Event, error) {
	ss := s.findSubnet(m)
	if ss == nil {
		return nil, nil, nil
	}

	reply := m.NewReply(dhcpv4.MessageTypeAck, s.serverIdentity(ss))
	reply.CIAddr = m.CIAddr
	reply.YIAddr = net.IPv4zero
	s.setOptions(reply, ss, 0)
	reply.Options.Delete(dhcpv4.OptionIPLeaseTime)
	reply.Options.Delete(dhcpv4.OptionRenewalTime)
	reply.Options.Delete(dhcpv4.OptionRebindingTime)
	copyRelayInfo(reply, m)

	return []*dhcpv4.Message{reply}, nil, nil
}

// serverIdentity returns the configured server identifier, falling
// back to the subnet gateway when none is set.
func (s *State) serverIdentity(ss *subnetState) net.IP {
	if id := s.Config.ServerIP(); id != nil {
		return id
	}
	if ss != nil && ss.Gateway != nil {
		return ss.Gateway
	}
	return net.IPv4zero
}

// setOptions fills option 1/3/6 and lease timing per spec.md §4.6's
// wire-order rule (mask before router), then appends any subnet fixed
// options from config.
func (s *State) setOptions(reply *dhcpv4.Message, ss *subnetState, leaseTime time.Duration) {
	reply.Options.Set(dhcpv4.OptionSubnetMask, []byte(ss.Network.Mask))

	if ss.Gateway != nil {
		reply.Options.Set(dhcpv4.OptionRouter, dhcpv4.IPToBytes(ss.Gateway))
	}
	if len(ss.DNSServers) > 0 {
		reply.Options.Set(dhcpv4.OptionDomainNameServer, dhcpv4.IPListToBytes(ss.DNSServers))
	}

	domain := ss.Cfg.DomainName
	if domain == "" {
		domain = s.Config.Defaults.DomainName
	}
	if domain != "" {
		reply.Options.SetString(dhcpv4.OptionDomainName, domain)
	}

	broadcast := dhcpv4.Uint32ToIP(dhcpv4.IPToUint32(ss.Network.IP) | ^dhcpv4.IPToUint32(net.IP(ss.Network.Mask)))
	reply.Options.Set(dhcpv4.OptionBroadcastAddress, dhcpv4.IPToBytes(broadcast))

	if leaseTime > 0 {
		reply.Options.SetUint32(dhcpv4.OptionIPLeaseTime, uint32(leaseTime.Seconds()))
		reply.Options.SetUint32(dhcpv4.OptionRenewalTime, uint32(s.Config.RenewalTime(ss.Index).Seconds()))
		reply.Options.SetUint32(dhcpv4.OptionRebindingTime, uint32(s.Config.RebindTime(ss.Index).Seconds()))
	}

	for _, opt := range ss.Cfg.Options {
		applyFixedOption(reply, opt)
	}
}

func zeroIfNil(ip net.IP) net.IP {
	if ip == nil {
		return net.IPv4zero
	}
	return ip
}

func copyRelayInfo(reply, request *dhcpv4.Message) {
	if data, ok := request.Options.Get(dhcpv4.OptionRelayAgentInfo); ok {
		reply.Options.Set(dhcpv4.OptionRelayAgentInfo, data)
	}
}

func relayInfoFromMessage(m *dhcpv4.Message) *lease.RelayInfo {
	ri := dhcpv4.GetRelayInfo(m)
	if ri == nil {
		return &lease.RelayInfo{GIAddr: m.GIAddr}
	}
	return &lease.RelayInfo{GIAddr: m.GIAddr, CircuitID: ri.CircuitID, RemoteID: ri.RemoteID}
}

func leaseEvents(t events.EventType, l *lease.Lease, reason string) []events.Event {
	if l == nil {
		return nil
	}
	ld := &events.LeaseData{
		IP:       l.IP,
		MAC:      l.MAC,
		ClientID: l.ClientID,
		Hostname: l.Hostname,
		Subnet:   l.Subnet,
		Pool:     l.Pool,
		Start:    l.Start.Unix(),
		Expiry:   l.Expiry.Unix(),
		State:    l.State.String(),
	}
	if l.RelayInfo != nil {
		ld.Relay = &events.RelayData{GIAddr: l.RelayInfo.GIAddr, CircuitID: l.RelayInfo.CircuitID, RemoteID: l.RelayInfo.RemoteID}
	}
	return []events.Event{{Type: t, Family: "v4", Lease: ld, Reason: reason}}
}
