package config

import "time"

// Default configuration values.
const (
	DefaultInterface          = "eth0"
	DefaultLogLevel           = "info"
	DefaultPIDFile            = "/run/dhcpcored.pid"
	DefaultLeaseTime          = 12 * time.Hour
	DefaultRenewalTime        = 6 * time.Hour
	DefaultRebindTime         = 10*time.Hour + 30*time.Minute
	DefaultEventBufferSize    = 10000
	DefaultRateLimitDiscovers = 100
	DefaultRateLimitPerMAC    = 5
	DefaultDDNSTTL            = 300
	DefaultAuditDB            = "/var/lib/dhcpcored/audit.db"
	DefaultV6PrefixLength     = 64
)
