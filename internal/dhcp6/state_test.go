package dhcp6

import (
	"net"
	"testing"

	"github.com/nullwatt/dhcpcore/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{ServerDUID: "00:03:00:01:aa:bb:cc:dd:ee:ff"},
		V6: config.V6Config{
			Subnets: []config.V6SubnetConfig{
				{
					Prefix:       "2001:db8::",
					PrefixLength: 64,
					RangeStart:   "2001:db8::100",
					RangeEnd:     "2001:db8::110",
					DNSServers:   []string{"2001:db8::1"},
					LeaseTime:    "1h",
					RapidCommit:  false,
					Reservations: []config.V6ReservationConfig{
						{DUID: "00:03:00:01:11:22:33:44:55:66", IAID: 99, IP: "2001:db8::50", Hostname: "pinned6"},
					},
				},
			},
		},
	}
}

func TestInit6BuildsSubnetsAndPools(t *testing.T) {
	state, err := Init(testConfig())
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	if len(state.Subnets) != 1 {
		t.Fatalf("Subnets = %d, want 1", len(state.Subnets))
	}
	ss := state.Subnets[0]
	if ss.Pool == nil {
		t.Fatal("expected pool to be built")
	}
	if ss.Pool.Size() != 17 {
		t.Errorf("pool size = %d, want 17", ss.Pool.Size())
	}
	if len(ss.Reservations) != 1 {
		t.Fatalf("Reservations = %d, want 1", len(ss.Reservations))
	}
}

func TestInit6UsesConfiguredServerDUID(t *testing.T) {
	state, err := Init(testConfig())
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	if len(state.ServerID) == 0 {
		t.Fatal("expected non-empty ServerID")
	}
}

func TestInit6RejectsBadServerDUID(t *testing.T) {
	cfg := testConfig()
	cfg.Server.ServerDUID = "zz"
	if _, err := Init(cfg); err == nil {
		t.Error("expected error for malformed server_duid")
	}
}

func TestFindSubnetForIP6(t *testing.T) {
	state, err := Init(testConfig())
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	if ss := state.findSubnetForIP(net.ParseIP("2001:db8::50")); ss == nil {
		t.Error("expected subnet match for in-prefix address")
	}
	if ss := state.findSubnetForIP(net.ParseIP("2001:db9::1")); ss != nil {
		t.Error("expected no subnet match for out-of-prefix address")
	}
}

func TestFindReservation6(t *testing.T) {
	state, err := Init(testConfig())
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	ss := state.Subnets[0]
	duid, _ := parseColonHex("00:03:00:01:11:22:33:44:55:66")
	res := ss.findReservation(duid, 99)
	if res == nil {
		t.Fatal("expected reservation match")
	}
	if !res.IP.Equal(net.ParseIP("2001:db8::50")) {
		t.Errorf("reservation IP = %s, want 2001:db8::50", res.IP)
	}
	if res := ss.findReservation(duid, 1); res != nil {
		t.Error("expected no match for a different IAID")
	}
}
