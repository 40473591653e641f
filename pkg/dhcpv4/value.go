package dhcpv4

import (
	"fmt"
	"net"
)

// Value is a decoded DHCPv4 option value. Each option kind has exactly
// one concrete Value type, so callers switch on a static Go type instead
// of inspecting a runtime tag alongside an untyped byte slice.
type Value interface {
	// Encode returns the wire bytes for this value.
	Encode() []byte
}

type IPValue net.IP

func (v IPValue) Encode() []byte { return IPToBytes(net.IP(v)) }

type IPListValue []net.IP

func (v IPListValue) Encode() []byte { return IPListToBytes(v) }

type StringValue string

func (v StringValue) Encode() []byte { return []byte(v) }

type Uint8Value byte

func (v Uint8Value) Encode() []byte { return []byte{byte(v)} }

type Uint16Value uint16

func (v Uint16Value) Encode() []byte { return Uint16ToBytes(uint16(v)) }

type Uint32Value uint32

func (v Uint32Value) Encode() []byte { return Uint32ToBytes(uint32(v)) }

type Int32Value int32

func (v Int32Value) Encode() []byte { return Int32ToBytes(int32(v)) }

type BoolValue bool

func (v BoolValue) Encode() []byte {
	if v {
		return []byte{0x01}
	}
	return []byte{0x00}
}

type BytesValue []byte

func (v BytesValue) Encode() []byte { return v }

// IPPair is one (router, subnet-mask) style 8-byte pair used by options
// 21 (Policy Filter) and 33 (Static Route).
type IPPair struct {
	First  net.IP
	Second net.IP
}

type IPPairListValue []IPPair

func (v IPPairListValue) Encode() []byte {
	buf := make([]byte, 0, len(v)*8)
	for _, p := range v {
		buf = append(buf, IPToBytes(p.First)...)
		buf = append(buf, IPToBytes(p.Second)...)
	}
	return buf
}

type Uint16ListValue []uint16

func (v Uint16ListValue) Encode() []byte {
	buf := make([]byte, 0, len(v)*2)
	for _, u := range v {
		buf = append(buf, Uint16ToBytes(u)...)
	}
	return buf
}

// CIDRRouteListValue is option 121 (Classless Static Route, RFC 3442).
type CIDRRouteListValue []CIDRRoute

func (v CIDRRouteListValue) Encode() []byte { return CIDRRoutesToBytes(v) }

// OptionType enumerates the wire representations the registry recognizes.
type OptionType int

const (
	TypeIP OptionType = iota
	TypeIPList
	TypeUint8
	TypeUint16
	TypeUint32
	TypeInt32
	TypeBool
	TypeString
	TypeBytes
	TypeIPPairs
	TypeCIDRRoutes
	TypeUint16List
)

// OptionDef describes an option's wire shape for validation and typed decode.
type OptionDef struct {
	Code   OptionCode
	Name   string
	Type   OptionType
	MinLen int
	MaxLen int
}

var optionRegistry = map[OptionCode]OptionDef{
	OptionSubnetMask:             {OptionSubnetMask, "Subnet Mask", TypeIP, 4, 4},
	OptionTimeOffset:             {OptionTimeOffset, "Time Offset", TypeInt32, 4, 4},
	OptionRouter:                 {OptionRouter, "Router", TypeIPList, 4, 252},
	OptionTimeServer:             {OptionTimeServer, "Time Server", TypeIPList, 4, 252},
	OptionNameServer:             {OptionNameServer, "Name Server", TypeIPList, 4, 252},
	OptionDomainNameServer:       {OptionDomainNameServer, "Domain Name Server", TypeIPList, 4, 252},
	OptionLogServer:              {OptionLogServer, "Log Server", TypeIPList, 4, 252},
	OptionCookieServer:           {OptionCookieServer, "Cookie Server", TypeIPList, 4, 252},
	OptionLPRServer:              {OptionLPRServer, "LPR Server", TypeIPList, 4, 252},
	OptionImpressServer:          {OptionImpressServer, "Impress Server", TypeIPList, 4, 252},
	OptionResourceLocationServer: {OptionResourceLocationServer, "Resource Location Server", TypeIPList, 4, 252},
	OptionHostname:               {OptionHostname, "Host Name", TypeString, 1, 255},
	OptionBootFileSize:           {OptionBootFileSize, "Boot File Size", TypeUint16, 2, 2},
	OptionMeritDumpFile:          {OptionMeritDumpFile, "Merit Dump File", TypeString, 1, 255},
	OptionDomainName:             {OptionDomainName, "Domain Name", TypeString, 1, 255},
	OptionSwapServer:             {OptionSwapServer, "Swap Server", TypeIP, 4, 4},
	OptionRootPath:               {OptionRootPath, "Root Path", TypeString, 1, 255},
	OptionExtensionsPath:         {OptionExtensionsPath, "Extensions Path", TypeString, 1, 255},
	OptionIPForwarding:           {OptionIPForwarding, "IP Forwarding", TypeBool, 1, 1},
	OptionNonLocalSourceRouting:  {OptionNonLocalSourceRouting, "Non-Local Source Routing", TypeBool, 1, 1},
	OptionPolicyFilter:           {OptionPolicyFilter, "Policy Filter", TypeIPPairs, 8, 252},
	OptionMaxDatagramReassembly:  {OptionMaxDatagramReassembly, "Max Datagram Reassembly Size", TypeUint16, 2, 2},
	OptionDefaultIPTTL:           {OptionDefaultIPTTL, "Default IP TTL", TypeUint8, 1, 1},
	OptionPathMTUAgingTimeout:    {OptionPathMTUAgingTimeout, "Path MTU Aging Timeout", TypeUint32, 4, 4},
	OptionPathMTUPlateauTable:    {OptionPathMTUPlateauTable, "Path MTU Plateau Table", TypeUint16List, 2, 252},
	OptionInterfaceMTU:           {OptionInterfaceMTU, "Interface MTU", TypeUint16, 2, 2},
	OptionAllSubnetsLocal:        {OptionAllSubnetsLocal, "All Subnets Local", TypeBool, 1, 1},
	OptionBroadcastAddress:       {OptionBroadcastAddress, "Broadcast Address", TypeIP, 4, 4},
	OptionPerformMaskDiscovery:   {OptionPerformMaskDiscovery, "Perform Mask Discovery", TypeBool, 1, 1},
	OptionMaskSupplier:           {OptionMaskSupplier, "Mask Supplier", TypeBool, 1, 1},
	OptionPerformRouterDiscovery: {OptionPerformRouterDiscovery, "Perform Router Discovery", TypeBool, 1, 1},
	OptionRouterSolicitAddr:      {OptionRouterSolicitAddr, "Router Solicitation Address", TypeIP, 4, 4},
	OptionStaticRoute:            {OptionStaticRoute, "Static Route", TypeIPPairs, 8, 252},
	OptionTrailerEncapsulation:   {OptionTrailerEncapsulation, "Trailer Encapsulation", TypeBool, 1, 1},
	OptionARPCacheTimeout:        {OptionARPCacheTimeout, "ARP Cache Timeout", TypeUint32, 4, 4},
	OptionEthernetEncapsulation:  {OptionEthernetEncapsulation, "Ethernet Encapsulation", TypeBool, 1, 1},
	OptionTCPDefaultTTL:          {OptionTCPDefaultTTL, "TCP Default TTL", TypeUint8, 1, 1},
	OptionTCPKeepaliveInterval:   {OptionTCPKeepaliveInterval, "TCP Keepalive Interval", TypeUint32, 4, 4},
	OptionTCPKeepaliveGarbage:    {OptionTCPKeepaliveGarbage, "TCP Keepalive Garbage", TypeBool, 1, 1},
	OptionNISDomain:              {OptionNISDomain, "NIS Domain", TypeString, 1, 255},
	OptionNISServers:             {OptionNISServers, "NIS Servers", TypeIPList, 4, 252},
	OptionNTPServers:             {OptionNTPServers, "NTP Servers", TypeIPList, 4, 252},
	OptionVendorSpecific:         {OptionVendorSpecific, "Vendor Specific", TypeBytes, 1, 255},
	OptionNetBIOSNameServer:      {OptionNetBIOSNameServer, "NetBIOS Name Server", TypeIPList, 4, 252},
	OptionNetBIOSDatagramDist:    {OptionNetBIOSDatagramDist, "NetBIOS Datagram Distribution", TypeIPList, 4, 252},
	OptionNetBIOSNodeType:        {OptionNetBIOSNodeType, "NetBIOS Node Type", TypeUint8, 1, 1},
	OptionNetBIOSScope:           {OptionNetBIOSScope, "NetBIOS Scope", TypeString, 1, 255},
	OptionXWindowFontServer:      {OptionXWindowFontServer, "X Window Font Server", TypeIPList, 4, 252},
	OptionXWindowDisplayManager:  {OptionXWindowDisplayManager, "X Window Display Manager", TypeIPList, 4, 252},
	OptionRequestedIP:            {OptionRequestedIP, "Requested IP", TypeIP, 4, 4},
	OptionIPLeaseTime:            {OptionIPLeaseTime, "IP Lease Time", TypeUint32, 4, 4},
	OptionOverload:               {OptionOverload, "Overload", TypeUint8, 1, 1},
	OptionDHCPMessageType:        {OptionDHCPMessageType, "DHCP Message Type", TypeUint8, 1, 1},
	OptionServerIdentifier:       {OptionServerIdentifier, "Server Identifier", TypeIP, 4, 4},
	OptionParameterRequestList:   {OptionParameterRequestList, "Parameter Request List", TypeBytes, 1, 255},
	OptionMessage:                {OptionMessage, "Message", TypeString, 1, 255},
	OptionMaxDHCPMessageSize:     {OptionMaxDHCPMessageSize, "Max DHCP Message Size", TypeUint16, 2, 2},
	OptionRenewalTime:            {OptionRenewalTime, "Renewal Time (T1)", TypeUint32, 4, 4},
	OptionRebindingTime:          {OptionRebindingTime, "Rebinding Time (T2)", TypeUint32, 4, 4},
	OptionVendorClassID:          {OptionVendorClassID, "Vendor Class Identifier", TypeString, 1, 255},
	OptionClientIdentifier:       {OptionClientIdentifier, "Client Identifier", TypeBytes, 2, 255},
	OptionTFTPServerName:         {OptionTFTPServerName, "TFTP Server Name", TypeString, 1, 255},
	OptionBootfileName:           {OptionBootfileName, "Bootfile Name", TypeString, 1, 255},
	OptionUserClass:              {OptionUserClass, "User Class", TypeBytes, 1, 255},
	OptionClientFQDN:             {OptionClientFQDN, "Client FQDN", TypeBytes, 3, 255},
	OptionRelayAgentInfo:         {OptionRelayAgentInfo, "Relay Agent Information", TypeBytes, 2, 255},
	OptionSubnetSelection:        {OptionSubnetSelection, "Subnet Selection", TypeIP, 4, 4},
	OptionClasslessStaticRoute:   {OptionClasslessStaticRoute, "Classless Static Route", TypeCIDRRoutes, 5, 255},
	OptionPCode:                  {OptionPCode, "POSIX Timezone", TypeString, 1, 255},
	OptionTCode:                  {OptionTCode, "Olson Timezone Name", TypeString, 1, 255},
	OptionTFTPServerAddress:      {OptionTFTPServerAddress, "TFTP Server Address", TypeIPList, 4, 252},
}

// GetOptionDef returns the definition for code, or nil if unregistered.
func GetOptionDef(code OptionCode) *OptionDef {
	def, ok := optionRegistry[code]
	if !ok {
		return nil
	}
	return &def
}

// ValidateOption checks raw option bytes against the registry's length rules.
func ValidateOption(code OptionCode, data []byte) error {
	def := GetOptionDef(code)
	if def == nil {
		return nil
	}
	if len(data) < def.MinLen {
		return fmt.Errorf("option %d (%s): data too short (%d < %d)", code, def.Name, len(data), def.MinLen)
	}
	if def.MaxLen > 0 && len(data) > def.MaxLen {
		return fmt.Errorf("option %d (%s): data too long (%d > %d)", code, def.Name, len(data), def.MaxLen)
	}
	return nil
}

// DecodeValue decodes raw option bytes into a typed Value per the registry.
// Unknown option codes decode as BytesValue.
func DecodeValue(code OptionCode, data []byte) (Value, error) {
	def := GetOptionDef(code)
	if def == nil {
		return BytesValue(data), nil
	}
	if err := ValidateOption(code, data); err != nil {
		return nil, err
	}

	switch def.Type {
	case TypeIP:
		return IPValue(BytesToIP(data)), nil
	case TypeIPList:
		ips, err := BytesToIPList(data)
		if err != nil {
			return nil, err
		}
		return IPListValue(ips), nil
	case TypeUint8:
		return Uint8Value(data[0]), nil
	case TypeUint16:
		v, err := BytesToUint16(data)
		if err != nil {
			return nil, err
		}
		return Uint16Value(v), nil
	case TypeUint32:
		v, err := BytesToUint32(data)
		if err != nil {
			return nil, err
		}
		return Uint32Value(v), nil
	case TypeInt32:
		v, err := BytesToInt32(data)
		if err != nil {
			return nil, err
		}
		return Int32Value(v), nil
	case TypeBool:
		return BoolValue(data[0] != 0), nil
	case TypeString:
		return StringValue(data), nil
	case TypeIPPairs:
		if len(data)%8 != 0 {
			return nil, fmt.Errorf("option %d (%s): IP pair length %d not multiple of 8", code, def.Name, len(data))
		}
		pairs := make(IPPairListValue, 0, len(data)/8)
		for i := 0; i < len(data); i += 8 {
			pairs = append(pairs, IPPair{
				First:  BytesToIP(data[i : i+4]),
				Second: BytesToIP(data[i+4 : i+8]),
			})
		}
		return pairs, nil
	case TypeCIDRRoutes:
		routes, err := BytesToCIDRRoutes(data)
		if err != nil {
			return nil, err
		}
		return CIDRRouteListValue(routes), nil
	case TypeUint16List:
		if len(data)%2 != 0 {
			return nil, fmt.Errorf("option %d (%s): uint16 list length %d not even", code, def.Name, len(data))
		}
		out := make(Uint16ListValue, 0, len(data)/2)
		for i := 0; i < len(data); i += 2 {
			v, _ := BytesToUint16(data[i : i+2])
			out = append(out, v)
		}
		return out, nil
	default:
		return BytesValue(data), nil
	}
}
