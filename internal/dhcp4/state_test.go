package dhcp4

import (
	"net"
	"testing"

	"github.com/nullwatt/dhcpcore/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{ServerID: "192.0.2.1"},
		Defaults: config.DefaultsConfig{
			LeaseTime:   "1h",
			RenewalTime: "30m",
			RebindTime:  "52m30s",
		},
		V4: config.V4Config{
			Subnets: []config.V4SubnetConfig{
				{
					Network:    "192.0.2.0/24",
					Gateway:    "192.0.2.1",
					DNSServers: []string{"192.0.2.1"},
					Pools: []config.V4PoolConfig{
						{RangeStart: "192.0.2.100", RangeEnd: "192.0.2.110"},
					},
					Reservations: []config.V4ReservationConfig{
						{MAC: "aa:bb:cc:dd:ee:ff", IP: "192.0.2.50", Hostname: "pinned"},
					},
				},
			},
		},
	}
}

func TestInitBuildsSubnetsAndPools(t *testing.T) {
	s, err := Init(testConfig())
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	if len(s.Subnets) != 1 {
		t.Fatalf("Subnets = %d, want 1", len(s.Subnets))
	}
	ss := s.Subnets[0]
	if len(ss.Pools) != 1 {
		t.Fatalf("Pools = %d, want 1", len(ss.Pools))
	}
	if ss.Pools[0].Size() != 11 {
		t.Errorf("pool size = %d, want 11", ss.Pools[0].Size())
	}
	if len(ss.Reservations) != 1 {
		t.Fatalf("Reservations = %d, want 1", len(ss.Reservations))
	}
}

func TestInitRejectsBadNetwork(t *testing.T) {
	cfg := testConfig()
	cfg.V4.Subnets[0].Network = "not-a-cidr"
	if _, err := Init(cfg); err == nil {
		t.Error("expected error for invalid network, got nil")
	}
}

func TestFindSubnetForIP(t *testing.T) {
	s, err := Init(testConfig())
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	if ss := s.findSubnetForIP(net.ParseIP("192.0.2.100")); ss == nil {
		t.Error("expected subnet match for 192.0.2.100")
	}
	if ss := s.findSubnetForIP(net.ParseIP("203.0.113.1")); ss != nil {
		t.Error("expected no subnet match for address outside any configured network")
	}
}

func TestFindReservationByMACAndIdentifier(t *testing.T) {
	s, err := Init(testConfig())
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	ss := s.Subnets[0]

	mac, _ := net.ParseMAC("aa:bb:cc:dd:ee:ff")
	if r := ss.findReservation("", mac); r == nil {
		t.Error("expected reservation match by MAC")
	}
	if r := ss.findReservation("", nil); r != nil {
		t.Error("expected no match with empty client id and nil mac")
	}
}
