package dhcp6

import (
	"fmt"
	"net"
	"time"

	"github.com/nullwatt/dhcpcore/internal/events"
	"github.com/nullwatt/dhcpcore/internal/lease"
	"github.com/nullwatt/dhcpcore/pkg/dhcpv6"
)

// InvariantError marks a programmer-error-class failure, mirroring
// dhcp4.InvariantError: an encode failure on a reply the core itself
// built should never happen.
type InvariantError struct {
	msg string
}

func (e *InvariantError) Error() string { return e.msg }

func invariantf(format string, args ...interface{}) error {
	return &InvariantError{msg: fmt.Sprintf(format, args...)}
}

// Response pairs an encoded reply with where the transport should send
// it. Unlike v4, DHCPv6 has no broadcast concept — every reply goes
// straight back to the client's source address on the DHCPv6 client
// port (546), which is all the transport needs here; relay framing is
// not handled.
type Response struct {
	Data    []byte
	Dest    net.IP
	Port    int
	MsgType string
}

// Process decodes one inbound datagram, advances state, and returns
// the encoded replies plus the lease events the transition produced.
// It implements process_v6: state is mutated and returned in place,
// and now is the only clock the core reads.
func Process(state *State, data []byte, peerIP net.IP, peerPort int, now time.Time) (*State, []Response, []events.Event, error) {
	msg, err := dhcpv6.Decode(data)
	if err != nil {
		// Malformed wire: silently dropped, matching dhcp4's §4.8 rule.
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
			return state, nil, nil, invariantf("encoding %s reply: %v", reply.Type, err)
		}
		responses = append(responses, Response{
			Data:    encoded,
			Dest:    peerIP,
			Port:    dhcpv6.ClientPort,
			MsgType: reply.Type.String(),
		})
	}

	return state, responses, evts, nil
}

// Sweep drops every lease whose valid lifetime has elapsed as of now,
// releasing its address back to the owning pool.
func Sweep(state *State, now time.Time) *State {
	var expired []*lease.Lease6
	state.Leases.ForEach(func(l *lease.Lease6) bool {
		if l.IsExpired(now) {
			expired = append(expired, l)
		}
		return true
	})

	for _, l := range expired {
		state.Leases.Delete(l.IP)
		if ss := state.findSubnetForIP(l.IP); ss != nil {
			ss.Pool.Release(l.IP)
		}
	}

	return state
}
