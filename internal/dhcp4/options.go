package dhcp4

import (
	"net"

	"github.com/nullwatt/dhcpcore/internal/config"
	"github.com/nullwatt/dhcpcore/pkg/dhcpv4"
)

// applyFixedOption encodes one operator-configured fixed option onto a
// reply, per config.OptionConfig's "code/type/value" shape.
// internal/config.Load does not check option entries, so a malformed
// one is silently dropped here rather than rejected.
func applyFixedOption(reply *dhcpv4.Message, opt config.OptionConfig) {
	code := dhcpv4.OptionCode(opt.Code)

	switch opt.Type {
	case "ip":
		s, ok := opt.Value.(string)
		if !ok {
			return
		}
		ip := net.ParseIP(s)
		if ip == nil {
			return
		}
		reply.Options.Set(code, dhcpv4.IPToBytes(ip))

	case "iplist":
		items, ok := opt.Value.([]interface{})
		if !ok {
			return
		}
		var ips []net.IP
		for _, it := range items {
			s, ok := it.(string)
			if !ok {
				continue
			}
			if ip := net.ParseIP(s); ip != nil {
				ips = append(ips, ip)
			}
		}
		if len(ips) > 0 {
			reply.Options.Set(code, dhcpv4.IPListToBytes(ips))
		}

	case "string":
		s, ok := opt.Value.(string)
		if !ok {
			return
		}
		reply.Options.SetString(code, s)

	case "uint32":
		v, ok := toUint32(opt.Value)
		if !ok {
			return
		}
		reply.Options.SetUint32(code, v)

	case "uint16":
		v, ok := toUint32(opt.Value)
		if !ok {
			return
		}
		reply.Options.SetUint16(code, uint16(v))

	case "bool":
		b, ok := opt.Value.(bool)
		if !ok {
			return
		}
		reply.Options.SetBool(code, b)

	default:
		// Unknown type: ignore silently, matching config.Load's
		// decision to leave option typing to this layer rather than
		// fail validation over a forward-compatible type name.
	}
}

func toUint32(v interface{}) (uint32, bool) {
	switch n := v.(type) {
	case int64:
		return uint32(n), true
	case int:
		return uint32(n), true
	case float64:
		return uint32(n), true
	default:
		return 0, false
	}
}
