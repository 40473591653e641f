// Package config handles TOML configuration parsing and validation for
// the dhcpcore server.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the top-level configuration, covering both address families.
type Config struct {
	Server     ServerConfig      `toml:"server"`
	RateLimit  RateLimitConfig   `toml:"rate_limit"`
	DDNS       DDNSConfig        `toml:"ddns"`
	Accounting AccountingConfig  `toml:"accounting"`
	Audit      AuditConfig       `toml:"audit"`
	V4         V4Config          `toml:"v4"`
	V6         V6Config          `toml:"v6"`
	Defaults   DefaultsConfig    `toml:"defaults"`
}

// ServerConfig holds process-wide server settings.
type ServerConfig struct {
	Interface   string `toml:"interface"`
	BindAddress string `toml:"bind_address"`
	ServerID    string `toml:"server_id"`
	ServerDUID  string `toml:"server_duid"`
	LogLevel    string `toml:"log_level"`
	PIDFile     string `toml:"pid_file"`
}

// RateLimitConfig holds anti-starvation settings, applied by the
// transport adapter before a datagram ever reaches a server core.
type RateLimitConfig struct {
	Enabled               bool `toml:"enabled"`
	MaxDiscoversPerSecond int  `toml:"max_discovers_per_second"`
	MaxPerClientPerSecond int  `toml:"max_per_client_per_second"`
}

// AuditConfig holds settings for the durable lease-event log.
type AuditConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// AccountingConfig holds RADIUS accounting sink settings.
type AccountingConfig struct {
	Enabled     bool   `toml:"enabled"`
	ServerAddr  string `toml:"server_addr"`
	Secret      string `toml:"secret"`
	NASIdentity string `toml:"nas_identity"`
}

// DDNSConfig holds dynamic DNS settings.
type DDNSConfig struct {
	Enabled       bool   `toml:"enabled"`
	Forward       string `toml:"forward_zone"`
	Reverse       string `toml:"reverse_zone"`
	Server        string `toml:"server"`
	TSIGName      string `toml:"tsig_name"`
	TSIGAlgorithm string `toml:"tsig_algorithm"`
	TSIGSecret    string `toml:"tsig_secret"`
	TTL           int    `toml:"ttl"`
}

// V4Config holds every DHCPv4 subnet the server answers for.
type V4Config struct {
	Subnets []V4SubnetConfig `toml:"subnet"`
}

// V4SubnetConfig is one DHCPv4 subnet (spec.md §4.4's v4 config fields).
type V4SubnetConfig struct {
	Network      string                `toml:"network"`
	Gateway      string                `toml:"gateway"`
	DNSServers   []string              `toml:"dns_servers"`
	DomainName   string                `toml:"domain_name"`
	LeaseTime    string                `toml:"lease_time"`
	RenewalTime  string                `toml:"renewal_time"`
	RebindTime   string                `toml:"rebind_time"`
	Pools        []V4PoolConfig        `toml:"pool"`
	Reservations []V4ReservationConfig `toml:"reservation"`
	Options      []OptionConfig        `toml:"option"`
}

// V4PoolConfig holds one IPv4 address range within a subnet.
type V4PoolConfig struct {
	RangeStart       string `toml:"range_start"`
	RangeEnd         string `toml:"range_end"`
	MatchCircuitID   string `toml:"match_circuit_id"`
	MatchRemoteID    string `toml:"match_remote_id"`
	MatchVendorClass string `toml:"match_vendor_class"`
	MatchUserClass   string `toml:"match_user_class"`
}

// V4ReservationConfig pins a client to a fixed IPv4 address.
type V4ReservationConfig struct {
	MAC        string `toml:"mac"`
	Identifier string `toml:"identifier"`
	IP         string `toml:"ip"`
	Hostname   string `toml:"hostname"`
}

// V6Config holds every DHCPv6 subnet the server answers for.
type V6Config struct {
	Subnets []V6SubnetConfig `toml:"subnet"`
}

// V6SubnetConfig is one DHCPv6 subnet (spec.md §4.4's v6 config fields).
type V6SubnetConfig struct {
	Prefix       string                `toml:"prefix"`
	PrefixLength int                   `toml:"prefix_length"`
	RangeStart   string                `toml:"range_start"`
	RangeEnd     string                `toml:"range_end"`
	DNSServers   []string              `toml:"dns_servers"`
	LeaseTime    string                `toml:"lease_time"`
	RapidCommit  bool                  `toml:"rapid_commit"`
	Reservations []V6ReservationConfig `toml:"reservation"`
	Options      []OptionConfig        `toml:"option"`
}

// V6ReservationConfig pins a client to a fixed IPv6 address.
type V6ReservationConfig struct {
	DUID     string `toml:"duid"`
	IAID     uint32 `toml:"iaid"`
	IP       string `toml:"ip"`
	Hostname string `toml:"hostname"`
}

// OptionConfig holds a custom fixed DHCP option value.
type OptionConfig struct {
	Code  int         `toml:"code"`
	Type  string      `toml:"type"`
	Value interface{} `toml:"value"`
}

// DefaultsConfig holds global default option values shared by every
// subnet that does not set its own.
type DefaultsConfig struct {
	LeaseTime   string   `toml:"lease_time"`
	RenewalTime string   `toml:"renewal_time"`
	RebindTime  string   `toml:"rebind_time"`
	DNSServers  []string `toml:"dns_servers"`
	DomainName  string   `toml:"domain_name"`
}

// Load reads and parses a TOML config file, applies defaults, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills in default values for unset fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Interface == "" {
		cfg.Server.Interface = DefaultInterface
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = DefaultLogLevel
	}
	if cfg.Server.PIDFile == "" {
		cfg.Server.PIDFile = DefaultPIDFile
	}
	if cfg.RateLimit.MaxDiscoversPerSecond == 0 {
		cfg.RateLimit.MaxDiscoversPerSecond = DefaultRateLimitDiscovers
	}
	if cfg.RateLimit.MaxPerClientPerSecond == 0 {
		cfg.RateLimit.MaxPerClientPerSecond = DefaultRateLimitPerMAC
	}
	if cfg.Defaults.LeaseTime == "" {
		cfg.Defaults.LeaseTime = DefaultLeaseTime.String()
	}
	if cfg.Defaults.RenewalTime == "" {
		cfg.Defaults.RenewalTime = DefaultRenewalTime.String()
	}
	if cfg.Defaults.RebindTime == "" {
		cfg.Defaults.RebindTime = DefaultRebindTime.String()
	}
	if cfg.DDNS.TTL == 0 {
		cfg.DDNS.TTL = DefaultDDNSTTL
	}
	if cfg.Audit.Path == "" {
		cfg.Audit.Path = DefaultAuditDB
	}
	for i := range cfg.V6.Subnets {
		if cfg.V6.Subnets[i].PrefixLength == 0 {
			cfg.V6.Subnets[i].PrefixLength = DefaultV6PrefixLength
		}
	}
}

// validate checks the configuration for errors, per spec.md §4.4.
func validate(cfg *Config) error {
	if cfg.Server.ServerID != "" {
		if ip := net.ParseIP(cfg.Server.ServerID); ip == nil {
			return fmt.Errorf("server.server_id %q is not a valid IP address", cfg.Server.ServerID)
		}
	}

	for i, sub := range cfg.V4.Subnets {
		if err := validateV4Subnet(i, sub); err != nil {
			return err
		}
	}
	for i, sub := range cfg.V6.Subnets {
		if err := validateV6Subnet(i, sub); err != nil {
			return err
		}
	}

	if cfg.DDNS.Enabled && cfg.DDNS.Forward == "" {
		return fmt.Errorf("ddns.forward_zone is required when DDNS is enabled")
	}
	if cfg.Accounting.Enabled && cfg.Accounting.ServerAddr == "" {
		return fmt.Errorf("accounting.server_addr is required when accounting is enabled")
	}

	return nil
}

func validateV4Subnet(i int, sub V4SubnetConfig) error {
	if sub.Network == "" {
		return fmt.Errorf("v4.subnet[%d]: network is required", i)
	}
	_, network, err := net.ParseCIDR(sub.Network)
	if err != nil {
		return fmt.Errorf("v4.subnet[%d]: invalid network %q: %w", i, sub.Network, err)
	}
	if sub.Gateway != "" && net.ParseIP(sub.Gateway) == nil {
		return fmt.Errorf("v4.subnet[%d]: invalid gateway %q", i, sub.Gateway)
	}
	for _, dns := range sub.DNSServers {
		if net.ParseIP(dns) == nil {
			return fmt.Errorf("v4.subnet[%d]: invalid dns_server %q", i, dns)
		}
	}

	for j, pool := range sub.Pools {
		start := net.ParseIP(pool.RangeStart)
		if start == nil {
			return fmt.Errorf("v4.subnet[%d].pool[%d]: invalid range_start %q", i, j, pool.RangeStart)
		}
		end := net.ParseIP(pool.RangeEnd)
		if end == nil {
			return fmt.Errorf("v4.subnet[%d].pool[%d]: invalid range_end %q", i, j, pool.RangeEnd)
		}
		if !network.Contains(start) {
			return fmt.Errorf("v4.subnet[%d].pool[%d]: range_start %s is not in network %s", i, j, start, network)
		}
		if !network.Contains(end) {
			return fmt.Errorf("v4.subnet[%d].pool[%d]: range_end %s is not in network %s", i, j, end, network)
		}
	}

	for j, res := range sub.Reservations {
		if res.MAC == "" && res.Identifier == "" {
			return fmt.Errorf("v4.subnet[%d].reservation[%d]: mac or identifier is required", i, j)
		}
		if res.IP == "" {
			return fmt.Errorf("v4.subnet[%d].reservation[%d]: ip is required", i, j)
		}
		ip := net.ParseIP(res.IP)
		if ip == nil {
			return fmt.Errorf("v4.subnet[%d].reservation[%d]: invalid ip %q", i, j, res.IP)
		}
		if !network.Contains(ip) {
			return fmt.Errorf("v4.subnet[%d].reservation[%d]: ip %s is not in network %s", i, j, ip, network)
		}
	}

	if sub.LeaseTime != "" {
		d, err := time.ParseDuration(sub.LeaseTime)
		if err != nil {
			return fmt.Errorf("v4.subnet[%d].lease_time: %w", i, err)
		}
		if d < 60*time.Second {
			return fmt.Errorf("v4.subnet[%d].lease_time: must be at least 60s, got %s", i, d)
		}
	}

	return nil
}

func validateV6Subnet(i int, sub V6SubnetConfig) error {
	if sub.Prefix == "" {
		return fmt.Errorf("v6.subnet[%d]: prefix is required", i)
	}
	prefixIP := net.ParseIP(sub.Prefix)
	if prefixIP == nil || prefixIP.To4() != nil {
		return fmt.Errorf("v6.subnet[%d]: invalid IPv6 prefix %q", i, sub.Prefix)
	}
	if sub.PrefixLength < 0 || sub.PrefixLength > 128 {
		return fmt.Errorf("v6.subnet[%d]: prefix_length %d out of range 0..128", i, sub.PrefixLength)
	}
	network := &net.IPNet{IP: prefixIP, Mask: net.CIDRMask(sub.PrefixLength, 128)}

	start := net.ParseIP(sub.RangeStart)
	if start == nil || start.To4() != nil {
		return fmt.Errorf("v6.subnet[%d]: invalid range_start %q", i, sub.RangeStart)
	}
	end := net.ParseIP(sub.RangeEnd)
	if end == nil || end.To4() != nil {
		return fmt.Errorf("v6.subnet[%d]: invalid range_end %q", i, sub.RangeEnd)
	}
	if !network.Contains(start) {
		return fmt.Errorf("v6.subnet[%d]: range_start %s does not share prefix %s", i, start, network)
	}
	if !network.Contains(end) {
		return fmt.Errorf("v6.subnet[%d]: range_end %s does not share prefix %s", i, end, network)
	}

	for _, dns := range sub.DNSServers {
		if ip := net.ParseIP(dns); ip == nil || ip.To4() != nil {
			return fmt.Errorf("v6.subnet[%d]: invalid IPv6 dns_server %q", i, dns)
		}
	}

	if sub.LeaseTime != "" {
		d, err := time.ParseDuration(sub.LeaseTime)
		if err != nil {
			return fmt.Errorf("v6.subnet[%d].lease_time: %w", i, err)
		}
		if d < 60*time.Second {
			return fmt.Errorf("v6.subnet[%d].lease_time: must be at least 60s, got %s", i, d)
		}
	}

	for j, res := range sub.Reservations {
		if res.DUID == "" {
			return fmt.Errorf("v6.subnet[%d].reservation[%d]: duid is required", i, j)
		}
		if res.IP == "" {
			return fmt.Errorf("v6.subnet[%d].reservation[%d]: ip is required", i, j)
		}
		ip := net.ParseIP(res.IP)
		if ip == nil || ip.To4() != nil {
			return fmt.Errorf("v6.subnet[%d].reservation[%d]: invalid IPv6 ip %q", i, j, res.IP)
		}
	}

	return nil
}

// ParseDuration is a helper for parsing Go-style duration strings.
func ParseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}

// LeaseTime returns the effective lease time for a v4 subnet, falling
// back to the global default.
func (cfg *Config) LeaseTime(subnetIdx int) time.Duration {
	if subnetIdx >= 0 && subnetIdx < len(cfg.V4.Subnets) {
		if s := cfg.V4.Subnets[subnetIdx].LeaseTime; s != "" {
			if d, err := time.ParseDuration(s); err == nil {
				return d
			}
		}
	}
	d, err := time.ParseDuration(cfg.Defaults.LeaseTime)
	if err != nil {
		return DefaultLeaseTime
	}
	return d
}

// RenewalTime returns the effective renewal time (T1) for a v4 subnet.
func (cfg *Config) RenewalTime(subnetIdx int) time.Duration {
	if subnetIdx >= 0 && subnetIdx < len(cfg.V4.Subnets) {
		if s := cfg.V4.Subnets[subnetIdx].RenewalTime; s != "" {
			if d, err := time.ParseDuration(s); err == nil {
				return d
			}
		}
	}
	d, err := time.ParseDuration(cfg.Defaults.RenewalTime)
	if err != nil {
		return DefaultRenewalTime
	}
	return d
}

// RebindTime returns the effective rebind time (T2) for a v4 subnet.
func (cfg *Config) RebindTime(subnetIdx int) time.Duration {
	if subnetIdx >= 0 && subnetIdx < len(cfg.V4.Subnets) {
		if s := cfg.V4.Subnets[subnetIdx].RebindTime; s != "" {
			if d, err := time.ParseDuration(s); err == nil {
				return d
			}
		}
	}
	d, err := time.ParseDuration(cfg.Defaults.RebindTime)
	if err != nil {
		return DefaultRebindTime
	}
	return d
}

// ServerIP returns the parsed server identifier IP, or nil if unset.
func (cfg *Config) ServerIP() net.IP {
	if cfg.Server.ServerID == "" {
		return nil
	}
	return net.ParseIP(cfg.Server.ServerID)
}
