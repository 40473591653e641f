package transport

import (
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
)

// V4Conn wraps a UDP socket with golang.org/x/net/ipv4's packet-info
// control messages, so the v4 transport adapter can learn which local
// interface a datagram arrived on (for subnet selection on multi-homed
// servers) without resorting to raw syscalls.
type V4Conn struct {
	pc *ipv4.PacketConn
}

// ListenV4 opens a UDP listener on addr (":67" typically) with receive
// interface/destination control messages enabled.
func ListenV4(addr string) (*V4Conn, error) {
	udpAddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("resolving UDP address %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp4", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetControlMessage(ipv4.FlagInterface|ipv4.FlagDst, true); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling IP_PKTINFO on %s: %w", addr, err)
	}

	return &V4Conn{pc: pc}, nil
}

// ReadFrom reads one datagram, returning the payload, the source
// address, and the index of the interface it arrived on (0 if unknown).
func (c *V4Conn) ReadFrom(buf []byte) (n int, src *net.UDPAddr, ifIndex int, err error) {
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

// WriteTo sends a datagram, optionally pinning the outgoing interface
// (ifIndex == 0 lets the kernel route it normally — required for plain
// broadcast replies on a single-homed host).
func (c *V4Conn) WriteTo(b []byte, dst *net.UDPAddr, ifIndex int) (int, error) {
	var cm *ipv4.ControlMessage
	if ifIndex != 0 {
		cm = &ipv4.ControlMessage{IfIndex: ifIndex}
	}
	return c.pc.WriteTo(b, cm, dst)
}

// Close closes the underlying socket.
func (c *V4Conn) Close() error {
	return c.pc.Close()
}
