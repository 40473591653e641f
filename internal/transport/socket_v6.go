package transport

import (
	"fmt"
	"net"

	"golang.org/x/net/ipv6"
)

// AllDHCPRelayAgentsAndServers is the multicast group DHCPv6 servers and
// relay agents listen on (RFC 3315 §5.1).
var AllDHCPRelayAgentsAndServers = net.ParseIP("ff02::1:2")

// V6Conn wraps a UDP socket joined to the All_DHCP_Relay_Agents_and_
// Servers multicast group on one or more interfaces.
type V6Conn struct {
	pc *ipv6.PacketConn
}

// ListenV6 opens a UDP listener on addr (":547" typically), joins the
// DHCPv6 multicast group on every interface in ifaceNames (or every
// multicast-capable interface if ifaceNames is empty), and enables
// receive interface control messages.
func ListenV6(addr string, ifaceNames []string) (*V6Conn, error) {
	udpAddr, err := net.ResolveUDPAddr("udp6", addr)
	if err != nil {
		return nil, fmt.Errorf("resolving UDP address %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp6", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	pc := ipv6.NewPacketConn(conn)
	if err := pc.SetControlMessage(ipv6.FlagInterface, true); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling interface control messages on %s: %w", addr, err)
	}

	group := &net.UDPAddr{IP: AllDHCPRelayAgentsAndServers}
	ifaces, err := resolveInterfaces(ifaceNames)
	if err != nil {
		conn.Close()
		return nil, err
	}
	for _, iface := range ifaces {
		if err := pc.JoinGroup(iface, group); err != nil {
			conn.Close()
			return nil, fmt.Errorf("joining %s on %s: %w", AllDHCPRelayAgentsAndServers, iface.Name, err)
		}
	}

	return &V6Conn{pc: pc}, nil
}

func resolveInterfaces(names []string) ([]*net.Interface, error) {
	if len(names) == 0 {
		all, err := net.Interfaces()
		if err != nil {
			return nil, fmt.Errorf("listing interfaces: %w", err)
		}
		var out []*net.Interface
		for i := range all {
			if all[i].Flags&net.FlagMulticast != 0 && all[i].Flags&net.FlagUp != 0 {
				out = append(out, &all[i])
			}
		}
		return out, nil
	}

	out := make([]*net.Interface, 0, len(names))
	for _, name := range names {
		iface, err := net.InterfaceByName(name)
		if err != nil {
			return nil, fmt.Errorf("resolving interface %s: %w", name, err)
		}
		out = append(out, iface)
	}
	return out, nil
}

// ReadFrom reads one datagram, returning the payload, the source
// address, and the index of the interface it arrived on.
func (c *V6Conn) ReadFrom(buf []byte) (n int, src *net.UDPAddr, ifIndex int, err error) {
	n, cm, addr, err := c.pc.ReadFrom(buf)
	if err != nil {
		return 0, nil, 0, err
	}
	udpAddr, _ := addr.(*net.UDPAddr)
	if cm != nil {
		ifIndex = cm.IfIndex
	}
	return n, udpAddr, ifIndex, nil
}

// WriteTo sends a datagram, pinning the outgoing interface when ifIndex
// is non-zero (needed to reach a client's link-local destination).
func (c *V6Conn) WriteTo(b []byte, dst *net.UDPAddr, ifIndex int) (int, error) {
	var cm *ipv6.ControlMessage
	if ifIndex != 0 {
		cm = &ipv6.ControlMessage{IfIndex: ifIndex}
	}
	return c.pc.WriteTo(b, cm, dst)
}

// Close closes the underlying socket.
func (c *V6Conn) Close() error {
	return c.pc.Close()
}
