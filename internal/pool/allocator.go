// Package pool implements free-address allocation for DHCPv4 and DHCPv6.
package pool

import (
	"fmt"
	"net"
	"sync"

	"github.com/nullwatt/dhcpcore/pkg/dhcpv4"
)

// Pool is an IPv4 address range allocated with a bitmap for O(1)
// allocate/release, plus a second bitmap tracking addresses withheld
// after a client DHCPDECLINE until an operator clears them.
type Pool struct {
	Name    string
	Start   net.IP
	End     net.IP
	Network *net.IPNet

	startU uint32
	endU   uint32
	size   uint32

	mu        sync.Mutex
	bitmap    []uint64 // 1 bit per IP: 1=allocated, 0=free
	declined  []uint64 // 1 bit per IP: 1=withheld after DHCPDECLINE
	allocated uint32

	// Match criteria let a subnet declare several pools, each serving a
	// different class of client (RFC 3046 circuit/remote-id, vendor
	// class, or a catch-all default pool).
	MatchCircuitID   string
	MatchRemoteID    string
	MatchVendorClass string
	MatchUserClass   string
}

// NewPool creates an IPv4 pool from an inclusive [start, end] range
// within network.
func NewPool(name string, start, end net.IP, network *net.IPNet) (*Pool, error) {
	startU := dhcpv4.IPToUint32(start.To4())
	endU := dhcpv4.IPToUint32(end.To4())

	if endU < startU {
		return nil, fmt.Errorf("pool %s: end %s is before start %s", name, end, start)
	}
	if !network.Contains(start) {
		return nil, fmt.Errorf("pool %s: start %s not in network %s", name, start, network)
	}
	if !network.Contains(end) {
		return nil, fmt.Errorf("pool %s: end %s not in network %s", name, end, network)
	}

	size := endU - startU + 1
	words := (size + 63) / 64

	return &Pool{
		Name:     name,
		Start:    start.To4(),
		End:      end.To4(),
		Network:  network,
		startU:   startU,
		endU:     endU,
		size:     size,
		bitmap:   make([]uint64, words),
		declined: make([]uint64, words),
	}, nil
}

// Size returns the total number of addresses in the pool.
func (p *Pool) Size() uint32 { return p.size }

// Allocated returns the number of allocated addresses (excludes declined).
func (p *Pool) Allocated() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocated
}

// Available returns the number of addresses free for allocation.
func (p *Pool) Available() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size - p.allocated
}

// Utilization returns allocation percentage, excluding declined addresses.
func (p *Pool) Utilization() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.size == 0 {
		return 0
	}
	return float64(p.allocated) / float64(p.size) * 100
}

func (p *Pool) ipToOffset(ip net.IP) (uint32, bool) {
	u := dhcpv4.IPToUint32(ip.To4())
	if u < p.startU || u > p.endU {
		return 0, false
	}
	return u - p.startU, true
}

func (p *Pool) offsetToIP(offset uint32) net.IP {
	return dhcpv4.Uint32ToIP(p.startU + offset)
}

func bitSet(bm []uint64, offset uint32) bool {
	return bm[offset/64]&(1<<(offset%64)) != 0
}

func bitSetOn(bm []uint64, offset uint32) {
	bm[offset/64] |= 1 << (offset % 64)
}

func bitSetOff(bm []uint64, offset uint32) {
	bm[offset/64] &^= 1 << (offset % 64)
}

func (p *Pool) isAllocatedOrDeclined(offset uint32) bool {
	return bitSet(p.bitmap, offset) || bitSet(p.declined, offset)
}

// Allocate finds the next free, non-declined address. Returns nil if the
// pool is exhausted.
func (p *Pool) Allocate() net.IP {
	p.mu.Lock()
	defer p.mu.Unlock()

	for w := uint32(0); w < uint32(len(p.bitmap)); w++ {
		combined := p.bitmap[w] | p.declined[w]
		if combined == ^uint64(0) {
			continue
		}
		for bit := uint32(0); bit < 64; bit++ {
			offset := w*64 + bit
			if offset >= p.size {
				return nil
			}
			if combined&(1<<bit) == 0 {
				bitSetOn(p.bitmap, offset)
				p.allocated++
				return p.offsetToIP(offset)
			}
		}
	}
	return nil
}

// AllocateSpecific allocates ip if it is in range, free, and not declined.
func (p *Pool) AllocateSpecific(ip net.IP) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	offset, ok := p.ipToOffset(ip)
	if !ok || p.isAllocatedOrDeclined(offset) {
		return false
	}
	bitSetOn(p.bitmap, offset)
	p.allocated++
	return true
}

// Release frees a previously allocated address back to the pool. A
// declined address is not touched — use ClearDeclined for that.
func (p *Pool) Release(ip net.IP) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	offset, ok := p.ipToOffset(ip)
	if !ok || !bitSet(p.bitmap, offset) {
		return false
	}
	bitSetOff(p.bitmap, offset)
	p.allocated--
	return true
}

// Decline withholds an address from allocation after a client DHCPDECLINE,
// distinct from a plain Release: the address stays unavailable until an
// operator calls ClearDeclined, even though it is not counted against the
// pool's normal "allocated" utilization.
func (p *Pool) Decline(ip net.IP) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	offset, ok := p.ipToOffset(ip)
	if !ok {
		return false
	}
	if bitSet(p.bitmap, offset) {
		bitSetOff(p.bitmap, offset)
		p.allocated--
	}
	bitSetOn(p.declined, offset)
	return true
}

// ClearDeclined returns a previously declined address to the free set.
func (p *Pool) ClearDeclined(ip net.IP) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	offset, ok := p.ipToOffset(ip)
	if !ok || !bitSet(p.declined, offset) {
		return false
	}
	bitSetOff(p.declined, offset)
	return true
}

// IsDeclined reports whether ip is currently withheld.
func (p *Pool) IsDeclined(ip net.IP) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	offset, ok := p.ipToOffset(ip)
	return ok && bitSet(p.declined, offset)
}

// Contains reports whether ip falls within this pool's range.
func (p *Pool) Contains(ip net.IP) bool {
	u := dhcpv4.IPToUint32(ip.To4())
	return u >= p.startU && u <= p.endU
}

// IsAllocated reports whether ip is currently allocated.
func (p *Pool) IsAllocated(ip net.IP) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	offset, ok := p.ipToOffset(ip)
	return ok && bitSet(p.bitmap, offset)
}

// String returns a human-readable pool summary.
func (p *Pool) String() string {
	return fmt.Sprintf("%s (%s-%s, %d/%d used)", p.Name, p.Start, p.End, p.allocated, p.size)
}

// RangeString returns the pool range as "start-end".
func (p *Pool) RangeString() string {
	return fmt.Sprintf("%s-%s", p.Start, p.End)
}
