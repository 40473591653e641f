package dhcp4

import (
	"net"
	"time"

	"github.com/nullwatt/dhcpcore/internal/events"
	"github.com/nullwatt/dhcpcore/internal/lease"
	"github.com/nullwatt/dhcpcore/pkg/dhcpv4"
)

// ResponseHint tells the transport how to pick a destination for a
// reply, without the core ever touching a socket itself (§9's
// "broadcast-vs-unicast... the core only tags its response with
// intent, the transport decides destination").
type ResponseHint int

const (
	// HintRelay sends the reply back to giaddr:67, for a relayed request.
	HintRelay ResponseHint = iota
	// HintBroadcast sends the reply to the IPv4 limited broadcast address.
	HintBroadcast
	// HintUnicast sends the reply directly to the client's own address
	// (yiaddr for a fresh lease, ciaddr when renewing).
	HintUnicast
)

// Response pairs an encoded reply with the destination hint the
// transport needs to route it per RFC 2131 §4.1.
type Response struct {
	Data    []byte
	Hint    ResponseHint
	Dest    net.IP
	Port    int
	MsgType string
}

// Process decodes one inbound datagram, advances state, and returns
// the encoded replies plus the lease events the transition produced.
// It implements process_v4 from the external interface: state is
// mutated and returned in place (§5 permits in-place mutation when the
// caller serializes calls), and now is the only clock the core reads.
func Process(state *State, data []byte, peerIP net.IP, peerPort int, now time.Time) (*State, []Response, []events.Event, error) {
	msg, err := dhcpv4.Decode(data)
	if err != nil {
		// Malformed wire: §4.8 says the transport silently drops it.
		return state, nil, nil, nil
	}

	replies, evts, err := state.dispatch(msg, now)
	if err != nil {
		return state, nil, nil, err
	}

	responses := make([]Response, 0, len(replies))
	for _, reply := range replies {
		encoded, err := reply.Encode()
		if err != nil {
			return state, nil, nil, invariantf("encoding %s reply: %v", reply.MessageType(), err)
		}
		responses = append(responses, Response{
			Data:    encoded,
			Hint:    destinationHint(msg, reply),
			Dest:    destinationIP(msg, reply),
			Port:    destinationPort(msg),
			MsgType: reply.MessageType().String(),
		})
	}

	return state, responses, evts, nil
}

// destinationHint implements spec.md §4.6's broadcast-vs-unicast rule:
// a relayed request always goes back through the relay; otherwise the
// client's BROADCAST flag decides.
func destinationHint(request, reply *dhcpv4.Message) ResponseHint {
	if request.IsRelayed() {
		return HintRelay
	}
	if request.IsBroadcast() {
		return HintBroadcast
	}
	return HintUnicast
}

func destinationIP(request, reply *dhcpv4.Message) net.IP {
	switch destinationHint(request, reply) {
	case HintRelay:
		return request.GIAddr
	case HintBroadcast:
		return dhcpv4.BroadcastIP
	default:
		if reply.YIAddr != nil && !reply.YIAddr.Equal(net.IPv4zero) {
			return reply.YIAddr
		}
		return request.CIAddr
	}
}

func destinationPort(request *dhcpv4.Message) int {
	if request.IsRelayed() {
		return dhcpv4.ServerPort
	}
	return dhcpv4.ClientPort
}

// Sweep drops every lease whose expiry is at or before now, releasing
// its address back to the owning pool. It is the only way leases leave
// the table outside an explicit RELEASE/DECLINE.
func Sweep(state *State, now time.Time) *State {
	var expired []*lease.Lease
	state.Leases.ForEach(func(l *lease.Lease) bool {
		if l.IsExpired(now) {
			expired = append(expired, l)
		}
		return true
	})

	for _, l := range expired {
		state.Leases.Delete(l.IP)
		if ss := state.findSubnetForIP(l.IP); ss != nil {
			for _, p := range ss.Pools {
				if p.Contains(l.IP) {
					p.Release(l.IP)
					break
				}
			}
		}
	}

	return state
}
