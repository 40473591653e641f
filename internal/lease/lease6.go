package lease

import (
	"encoding/hex"
	"encoding/json"
	"net"
	"time"
)

// Lease6 represents a DHCPv6 lease: one leased address bound to an
// IA_NA identified by the pair (DUID, IAID), mirroring Lease's v4
// shape but keyed the way RFC 3315 identifies a client's identity
// association rather than by MAC/client-id alone.
type Lease6 struct {
	IP                net.IP            `json:"ip"`
	DUID              []byte            `json:"duid"`
	IAID              uint32            `json:"iaid"`
	Hostname          string            `json:"hostname,omitempty"`
	FQDN              string            `json:"fqdn,omitempty"`
	Subnet            string            `json:"subnet"`
	Pool              string            `json:"pool,omitempty"`
	State             State             `json:"state"`
	Start             time.Time         `json:"start"`
	PreferredLifetime time.Duration     `json:"preferred_lifetime"`
	ValidLifetime     time.Duration     `json:"valid_lifetime"`
	LastUpdated       time.Time         `json:"last_updated"`
	UpdateSeq         uint64            `json:"update_seq"`
	Options           map[string]string `json:"options,omitempty"`
	RelayInfo         *RelayInfo        `json:"relay_info,omitempty"`
}

// Expiry returns the moment the lease's valid lifetime runs out.
func (l *Lease6) Expiry() time.Time {
	return l.Start.Add(l.ValidLifetime)
}

// IsExpired reports whether the lease had expired as of now; a lease
// whose expiry equals now counts as expired.
func (l *Lease6) IsExpired(now time.Time) bool {
	return !now.Before(l.Expiry())
}

// Remaining returns the lease's remaining valid lifetime as of now,
// floored at 0.
func (l *Lease6) Remaining(now time.Time) time.Duration {
	r := l.Expiry().Sub(now)
	if r < 0 {
		return 0
	}
	return r
}

// DUIDKey returns the hex-encoded DUID used to index the lease table.
func (l *Lease6) DUIDKey() string {
	return hex.EncodeToString(l.DUID)
}

// MarshalJSON implements custom JSON marshalling.
func (l *Lease6) MarshalJSON() ([]byte, error) {
	type Alias Lease6
	return json.Marshal(&struct {
		IP   string `json:"ip"`
		DUID string `json:"duid"`
		*Alias
	}{
		IP:    l.IP.String(),
		DUID:  hex.EncodeToString(l.DUID),
		Alias: (*Alias)(l),
	})
}

// UnmarshalJSON implements custom JSON unmarshalling.
func (l *Lease6) UnmarshalJSON(data []byte) error {
	type Alias Lease6
	aux := &struct {
		IP   string `json:"ip"`
		DUID string `json:"duid"`
		*Alias
	}{
		Alias: (*Alias)(l),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	l.IP = net.ParseIP(aux.IP)
	duid, err := hex.DecodeString(aux.DUID)
	if err != nil {
		return err
	}
	l.DUID = duid
	return nil
}

// Clone returns a deep copy of the lease.
func (l *Lease6) Clone() *Lease6 {
	c := *l
	c.IP = make(net.IP, len(l.IP))
	copy(c.IP, l.IP)
	c.DUID = make([]byte, len(l.DUID))
	copy(c.DUID, l.DUID)
	if l.Options != nil {
		c.Options = make(map[string]string, len(l.Options))
		for k, v := range l.Options {
			c.Options[k] = v
		}
	}
	if l.RelayInfo != nil {
		ri := *l.RelayInfo
		c.RelayInfo = &ri
	}
	return &c
}
