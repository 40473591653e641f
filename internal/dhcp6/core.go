package dhcp6

import (
	"encoding/hex"
	"net"
	"time"

	"github.com/nullwatt/dhcpcore/internal/events"
	"github.com/nullwatt/dhcpcore/internal/lease"
	"github.com/nullwatt/dhcpcore/pkg/dhcpv6"
)

// findSubnet picks the v6 subnet a request belongs to. Like v4's
// findSubnet, process_v6's literal signature carries only the peer
// address and port — no receiving interface — so subnet selection
// falls back to the client's own identity and addresses: a subnet
// already holding a lease for this DUID, then a subnet containing one
// of the addresses the client names, then the sole configured subnet
// in a single-subnet deployment.
func (s *State) findSubnet(m *dhcpv6.Message, ias []*dhcpv6.IANA) *subnetState {
	if duidBytes := m.ClientID(); len(duidBytes) > 0 {
		if ss := s.findSubnetForDUID(duidBytes); ss != nil {
			return ss
		}
	}
	for _, ia := range ias {
		addrs, err := ia.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if ss := s.findSubnetForIP(a.Address); ss != nil {
				return ss
			}
		}
	}
	if len(s.Subnets) == 1 {
		return s.Subnets[0]
	}
	return nil
}

// dispatch processes one decoded message against state, mutating state
// in place and returning the reply messages plus the lease events the
// transition produced. now is the only source of time the core reads.
func (s *State) dispatch(m *dhcpv6.Message, now time.Time) ([]*dhcpv6.Message, []events.Event, error) {
	switch m.Type {
	case dhcpv6.MessageTypeSolicit:
		return s.handleSolicit(m, now)
	case dhcpv6.MessageTypeRequest:
		return s.handleRequest(m, now)
	case dhcpv6.MessageTypeConfirm:
		return s.handleConfirm(m, now)
	case dhcpv6.MessageTypeRenew:
		return s.handleRenew(m, now, true)
	case dhcpv6.MessageTypeRebind:
		return s.handleRenew(m, now, false)
	case dhcpv6.MessageTypeRelease:
		return s.handleRelease(m, now)
	case dhcpv6.MessageTypeDecline:
		return s.handleDecline(m, now)
	case dhcpv6.MessageTypeInformationRequest:
		return s.handleInformationRequest(m, now)
	default:
		return nil, nil, nil
	}
}

// wrongServer reports whether the message carries a SERVERID that does
// not match ours. A message without one is never wrong.
func (s *State) wrongServer(m *dhcpv6.Message) bool {
	sid := m.ServerID()
	if len(sid) == 0 {
		return false
	}
	return hex.EncodeToString(sid) != hex.EncodeToString(s.ServerID)
}

func (s *State) handleSolicit(m *dhcpv6.Message, now time.Time) ([]*dhcpv6.Message, []events.Event, error) {
	duidBytes := m.ClientID()
	if len(duidBytes) == 0 {
		return nil, nil, nil
	}
	ias, err := m.IANAs()
	if err != nil || len(ias) == 0 {
		return nil, nil, nil
	}

	ss := s.findSubnet(m, ias)
	if ss == nil {
		return nil, nil, nil
	}

	rapid := ss.Cfg.RapidCommit && m.HasRapidCommit()
	replyType := dhcpv6.MessageTypeAdvertise
	state := lease.StateOffered
	if rapid {
		replyType = dhcpv6.MessageTypeReply
		state = lease.StateActive
	}

	reply := m.NewReply(replyType)
	reply.Options.Set(dhcpv6.OptionClientID, duidBytes)
	reply.Options.Set(dhcpv6.OptionServerID, s.ServerID)
	if rapid {
		reply.Options.Add(dhcpv6.OptionRapidCommit, nil)
	}

	var evts []events.Event
	for _, ia := range ias {
		bound := s.Leases.GetByIA(duidBytes, ia.IAID) != nil
		replyIA, l := s.allocateIA(ss, duidBytes, ia, state, now)
		reply.Options.Add(dhcpv6.OptionIANA, replyIA.Encode())
		if l == nil {
			continue
		}
		if !rapid {
			// An ADVERTISE only proposes the address: a new binding is
			// taken back out of the lease table and the pool until the
			// client's REQUEST commits it.
			if !bound {
				s.Leases.Delete(l.IP)
				ss.Pool.Release(l.IP)
			}
			continue
		}
		evts = append(evts, leaseEvents6(events.EventLeaseAck, l, "")...)
	}
	s.setInformationOptions(reply, ss, m)

	return []*dhcpv6.Message{reply}, evts, nil
}

func (s *State) handleRequest(m *dhcpv6.Message, now time.Time) ([]*dhcpv6.Message, []events.Event, error) {
	if s.wrongServer(m) {
		return nil, nil, nil
	}
	duidBytes := m.ClientID()
	if len(duidBytes) == 0 {
		return nil, nil, nil
	}
	ias, err := m.IANAs()
	if err != nil || len(ias) == 0 {
		return nil, nil, nil
	}

	ss := s.findSubnet(m, ias)
	if ss == nil {
		return nil, nil, nil
	}

	reply := m.NewReply(dhcpv6.MessageTypeReply)
	reply.Options.Set(dhcpv6.OptionClientID, duidBytes)
	reply.Options.Set(dhcpv6.OptionServerID, s.ServerID)

	var evts []events.Event
	for _, ia := range ias {
		replyIA, l := s.allocateIA(ss, duidBytes, ia, lease.StateActive, now)
		reply.Options.Add(dhcpv6.OptionIANA, replyIA.Encode())
		if l != nil {
			evts = append(evts, leaseEvents6(events.EventLeaseAck, l, "")...)
		}
	}
	s.setInformationOptions(reply, ss, m)

	return []*dhcpv6.Message{reply}, evts, nil
}

// allocateIA resolves one client IA_NA against ss: an existing binding
// for (duidBytes, ia.IAID) is refreshed in place; otherwise a
// reservation, the client's own requested address, or a freshly
// allocated address is committed, in that priority order. It returns
// the IA_NA option to place on the reply (carrying either an IAADDR or
// a STATUS_CODE) and the lease the transition produced, or nil if none.
func (s *State) allocateIA(ss *subnetState, duidBytes []byte, ia *dhcpv6.IANA, state lease.State, now time.Time) (*dhcpv6.IANA, *lease.Lease6) {
	leaseTime := effectiveLeaseTime(ss)

	if existing := s.Leases.GetByIA(duidBytes, ia.IAID); existing != nil {
		existing.State = state
		existing.Start = now
		existing.ValidLifetime = leaseTime
		existing.PreferredLifetime = preferredLifetime(leaseTime)
		existing.LastUpdated = now
		existing.UpdateSeq = s.Leases.NextSeq()
		s.Leases.Put(existing)
		return successIANA(ia.IAID, existing), existing
	}

	if res := ss.findReservation(duidBytes, ia.IAID); res != nil {
		l := s.commitLease(ss, res.IP, duidBytes, ia.IAID, res.Hostname, leaseTime, state, now)
		return successIANA(ia.IAID, l), l
	}

	var ip net.IP
	if addrs, err := ia.Addrs(); err == nil {
		for _, a := range addrs {
			if ss.Pool.Contains(a.Address) && ss.findReservationByIP(a.Address) == nil && ss.Pool.AllocateSpecific(a.Address) {
				ip = a.Address
				break
			}
		}
	}
	if ip == nil {
		for {
			candidate := ss.Pool.Allocate()
			if candidate == nil {
				break
			}
			if ss.findReservationByIP(candidate) != nil {
				ss.Pool.Release(candidate)
				continue
			}
			ip = candidate
			break
		}
	}
	if ip == nil {
		return noAddrsIANA(ia.IAID), nil
	}

	l := s.commitLease(ss, ip, duidBytes, ia.IAID, "", leaseTime, state, now)
	return successIANA(ia.IAID, l), l
}

func (s *State) commitLease(ss *subnetState, ip net.IP, duidBytes []byte, iaid uint32, hostname string, leaseTime time.Duration, state lease.State, now time.Time) *lease.Lease6 {
	l := &lease.Lease6{
		IP:                ip,
		DUID:              duidBytes,
		IAID:              iaid,
		Hostname:          hostname,
		Subnet:            ss.Cfg.Prefix,
		State:             state,
		Start:             now,
		ValidLifetime:     leaseTime,
		PreferredLifetime: preferredLifetime(leaseTime),
		LastUpdated:       now,
		UpdateSeq:         s.Leases.NextSeq(),
	}
	s.Leases.Put(l)
	return l
}

func successIANA(iaid uint32, l *lease.Lease6) *dhcpv6.IANA {
	out := &dhcpv6.IANA{IAID: iaid, T1: l.PreferredLifetime / 2, T2: l.PreferredLifetime}
	out.Options.Add(dhcpv6.OptionIAAddr, (&dhcpv6.IAAddr{
		Address:           l.IP,
		PreferredLifetime: l.PreferredLifetime,
		ValidLifetime:     l.ValidLifetime,
	}).Encode())
	out.Options.Add(dhcpv6.OptionStatusCode, dhcpv6.NewStatusCodeOption(dhcpv6.StatusSuccess, "").Data)
	return out
}

func noAddrsIANA(iaid uint32) *dhcpv6.IANA {
	out := &dhcpv6.IANA{IAID: iaid}
	out.Options.Add(dhcpv6.OptionStatusCode, dhcpv6.NewStatusCodeOption(dhcpv6.StatusNoAddrsAvail, "no addresses available").Data)
	return out
}

func (s *State) handleConfirm(m *dhcpv6.Message, now time.Time) ([]*dhcpv6.Message, []events.Event, error) {
	duidBytes := m.ClientID()
	if len(duidBytes) == 0 {
		return nil, nil, nil
	}
	ias, err := m.IANAs()
	if err != nil || len(ias) == 0 {
		return nil, nil, nil
	}

	reply := m.NewReply(dhcpv6.MessageTypeReply)
	reply.Options.Set(dhcpv6.OptionClientID, duidBytes)
	reply.Options.Set(dhcpv6.OptionServerID, s.ServerID)

	for _, ia := range ias {
		addrs, err := ia.Addrs()
		if err != nil {
			continue
		}
		out := &dhcpv6.IANA{IAID: ia.IAID}
		status := dhcpv6.StatusSuccess
		for _, a := range addrs {
			if s.findSubnetForIP(a.Address) == nil {
				status = dhcpv6.StatusNotOnLink
				break
			}
		}
		out.Options.Add(dhcpv6.OptionStatusCode, dhcpv6.NewStatusCodeOption(status, "").Data)
		reply.Options.Add(dhcpv6.OptionIANA, out.Encode())
	}

	return []*dhcpv6.Message{reply}, nil, nil
}

// handleRenew serves both RENEW and REBIND: requireServerMatch is true
// only for RENEW, per spec's "wrong server: RENEW drops, REBIND
// accepts" rule.
func (s *State) handleRenew(m *dhcpv6.Message, now time.Time, requireServerMatch bool) ([]*dhcpv6.Message, []events.Event, error) {
	if requireServerMatch && s.wrongServer(m) {
		return nil, nil, nil
	}
	duidBytes := m.ClientID()
	if len(duidBytes) == 0 {
		return nil, nil, nil
	}
	ias, err := m.IANAs()
	if err != nil || len(ias) == 0 {
		return nil, nil, nil
	}

	reply := m.NewReply(dhcpv6.MessageTypeReply)
	reply.Options.Set(dhcpv6.OptionClientID, duidBytes)
	reply.Options.Set(dhcpv6.OptionServerID, s.ServerID)

	var evts []events.Event
	for _, ia := range ias {
		existing := s.Leases.GetByIA(duidBytes, ia.IAID)
		if existing == nil {
			out := &dhcpv6.IANA{IAID: ia.IAID}
			out.Options.Add(dhcpv6.OptionStatusCode, dhcpv6.NewStatusCodeOption(dhcpv6.StatusNoBinding, "no binding for this IA").Data)
			reply.Options.Add(dhcpv6.OptionIANA, out.Encode())
			continue
		}

		ss := s.findSubnetForIP(existing.IP)
		leaseTime := effectiveLeaseTime(ss)
		existing.Start = now
		existing.ValidLifetime = leaseTime
		existing.PreferredLifetime = preferredLifetime(leaseTime)
		existing.LastUpdated = now
		existing.UpdateSeq = s.Leases.NextSeq()
		s.Leases.Put(existing)

		reply.Options.Add(dhcpv6.OptionIANA, successIANA(ia.IAID, existing).Encode())
		evts = append(evts, leaseEvents6(events.EventLeaseRenew, existing, "")...)
	}

	return []*dhcpv6.Message{reply}, evts, nil
}

func (s *State) handleRelease(m *dhcpv6.Message, now time.Time) ([]*dhcpv6.Message, []events.Event, error) {
	duidBytes := m.ClientID()
	if len(duidBytes) == 0 {
		return nil, nil, nil
	}
	ias, err := m.IANAs()
	if err != nil {
		return nil, nil, nil
	}

	reply := m.NewReply(dhcpv6.MessageTypeReply)
	reply.Options.Set(dhcpv6.OptionClientID, duidBytes)
	reply.Options.Set(dhcpv6.OptionServerID, s.ServerID)
	reply.Options.Set(dhcpv6.OptionStatusCode, dhcpv6.NewStatusCodeOption(dhcpv6.StatusSuccess, "").Data)

	var evts []events.Event
	for _, ia := range ias {
		existing := s.Leases.GetByIA(duidBytes, ia.IAID)
		if existing == nil {
			continue
		}
		s.Leases.Delete(existing.IP)
		if ss := s.findSubnetForIP(existing.IP); ss != nil {
			ss.Pool.Release(existing.IP)
		}
		evts = append(evts, leaseEvents6(events.EventLeaseRelease, existing, "")...)
	}

	return []*dhcpv6.Message{reply}, evts, nil
}

// handleDecline withholds declared-bad addresses from future
// allocation, mirroring dhcp4's decline-quarantine handling of the
// same client behavior (RFC 3315 §18.1.7).
func (s *State) handleDecline(m *dhcpv6.Message, now time.Time) ([]*dhcpv6.Message, []events.Event, error) {
	duidBytes := m.ClientID()
	if len(duidBytes) == 0 {
		return nil, nil, nil
	}
	ias, err := m.IANAs()
	if err != nil {
		return nil, nil, nil
	}

	reply := m.NewReply(dhcpv6.MessageTypeReply)
	reply.Options.Set(dhcpv6.OptionClientID, duidBytes)
	reply.Options.Set(dhcpv6.OptionServerID, s.ServerID)
	reply.Options.Set(dhcpv6.OptionStatusCode, dhcpv6.NewStatusCodeOption(dhcpv6.StatusSuccess, "").Data)

	var evts []events.Event
	for _, ia := range ias {
		existing := s.Leases.GetByIA(duidBytes, ia.IAID)
		if existing == nil {
			continue
		}
		s.Leases.Delete(existing.IP)
		if ss := s.findSubnetForIP(existing.IP); ss != nil {
			ss.Pool.Decline(existing.IP)
		}
		existing.State = lease.StateDeclined
		existing.LastUpdated = now
		evts = append(evts, leaseEvents6(events.EventLeaseDecline, existing, "")...)
	}

	return []*dhcpv6.Message{reply}, evts, nil
}

func (s *State) handleInformationRequest(m *dhcpv6.Message, now time.Time) ([]*dhcpv6.Message, []events.Event, error) {
	duidBytes := m.ClientID()

	var ss *subnetState
	if len(s.Subnets) == 1 {
		ss = s.Subnets[0]
	}

	reply := m.NewReply(dhcpv6.MessageTypeReply)
	if len(duidBytes) > 0 {
		reply.Options.Set(dhcpv6.OptionClientID, duidBytes)
	}
	reply.Options.Set(dhcpv6.OptionServerID, s.ServerID)
	s.setInformationOptions(reply, ss, m)

	return []*dhcpv6.Message{reply}, nil, nil
}

// setInformationOptions appends the configuration options an
// INFORMATION-REQUEST, SOLICIT, or REQUEST asked for via option 6
// (ORO), or all of them when the request carries no ORO — today just
// DNS servers, the only v6 option spec.md names beyond identity/IA
// plumbing.
func (s *State) setInformationOptions(reply *dhcpv6.Message, ss *subnetState, request *dhcpv6.Message) {
	if ss == nil {
		return
	}
	requested := request.RequestedOptions()
	if len(requested) == 0 || containsOption(requested, dhcpv6.OptionDNSServers) {
		if len(ss.DNSServers) > 0 {
			reply.Options.Set(dhcpv6.OptionDNSServers, encodeIP6List(ss.DNSServers))
		}
	}
}

func containsOption(codes []dhcpv6.OptionCode, want dhcpv6.OptionCode) bool {
	for _, c := range codes {
		if c == want {
			return true
		}
	}
	return false
}

func encodeIP6List(ips []net.IP) []byte {
	buf := make([]byte, 0, 16*len(ips))
	for _, ip := range ips {
		buf = append(buf, ip.To16()...)
	}
	return buf
}

func effectiveLeaseTime(ss *subnetState) time.Duration {
	if ss != nil && ss.Cfg.LeaseTime != "" {
		if d, err := time.ParseDuration(ss.Cfg.LeaseTime); err == nil {
			return d
		}
	}
	return 1 * time.Hour
}

// preferredLifetime follows RFC 3315's common convention of setting
// the preferred lifetime to 80% of the valid lifetime absent a
// separately-configured value.
func preferredLifetime(valid time.Duration) time.Duration {
	return valid * 4 / 5
}

func leaseEvents6(t events.EventType, l *lease.Lease6, reason string) []events.Event {
	if l == nil {
		return nil
	}
	ld := &events.LeaseData{
		IP:       l.IP,
		DUID:     l.DUIDKey(),
		IAID:     l.IAID,
		Hostname: l.Hostname,
		Subnet:   l.Subnet,
		Pool:     l.Pool,
		Start:    l.Start.Unix(),
		Expiry:   l.Expiry().Unix(),
		State:    l.State.String(),
	}
	return []events.Event{{Type: t, Family: "v6", Lease: ld, Reason: reason}}
}
