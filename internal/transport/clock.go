// Package transport holds the shared, non-pure plumbing both address
// families' server adapters reuse: a wall-clock source, a token-bucket
// rate limiter, and low-level datagram helpers. Nothing here is part of
// a server core — within internal/dhcp4 and internal/dhcp6 only the
// server.go adapters import this package; the cores only accept the
// values it produces (a time.Time for `now`).
package transport

import "time"

// Clock returns the current time. Production code uses RealClock; tests
// inject a fixed or stepped function so lease expiry is deterministic.
type Clock func() time.Time

// RealClock reads the wall clock, for use outside the server cores.
func RealClock() time.Time {
	return time.Now()
}
