package util

import (
	"fmt"
	"net/netip"
	"strings"
)

// ParseIPv4Prefix parses "a.b.c.d/len" into a host prefix (address bits are
// kept, not masked). A bare address is treated as /32.
func ParseIPv4Prefix(s string) (netip.Prefix, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "/") {
		addr, err := ParseIPv4Addr(s)
		if err != nil {
			return netip.Prefix{}, err
		}
		return netip.PrefixFrom(addr, 32), nil
	}
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: invalid CIDR notation %q", ErrInvalidConfig, s)
	}
	if !p.Addr().Is4() {
		return netip.Prefix{}, fmt.Errorf("%w: %q is not IPv4", ErrInvalidConfig, s)
	}
	return p, nil
}

// ParseIPv4Addr parses a dotted-quad IPv4 address
func ParseIPv4Addr(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: invalid IP address %q", ErrInvalidConfig, s)
	}
	if !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("%w: %q is not IPv4", ErrInvalidConfig, s)
	}
	return addr, nil
}

// Netmask returns the dotted IPv4 mask for a prefix length
func Netmask(bits int) netip.Addr {
	if bits < 0 {
		bits = 0
	}
	if bits > 32 {
		bits = 32
	}
	var m uint32
	if bits > 0 {
		m = ^uint32(0) << (32 - bits)
	}
	return netip.AddrFrom4([4]byte{byte(m >> 24), byte(m >> 16), byte(m >> 8), byte(m)})
}

// BroadcastAddr returns the last address of the prefix's network
func BroadcastAddr(p netip.Prefix) netip.Addr {
	b := p.Masked().Addr().As4()
	m := Netmask(p.Bits()).As4()
	for i := range b {
		b[i] |= ^m[i]
	}
	return netip.AddrFrom4(b)
}

// HostRange returns the first and last usable host of an IPv4 prefix.
// /31 uses both addresses (RFC 3021); /32 has no usable hosts.
func HostRange(p netip.Prefix) (first, last netip.Addr, ok bool) {
	network := p.Masked().Addr()
	switch p.Bits() {
	case 32:
		return netip.Addr{}, netip.Addr{}, false
	case 31:
		return network, network.Next(), true
	default:
		return network.Next(), BroadcastAddr(p).Prev(), true
	}
}

// FirstHostExcept walks the usable hosts of p in ascending order and returns
// the first one that is not self.
func FirstHostExcept(p netip.Prefix, self netip.Addr) (netip.Addr, bool) {
	first, last, ok := HostRange(p)
	if !ok {
		return netip.Addr{}, false
	}
	for a := first; a.IsValid() && a.Compare(last) <= 0; a = a.Next() {
		if a != self {
			return a, true
		}
	}
	return netip.Addr{}, false
}

const maxASN = 4294967295 // max uint32, 4-byte ASN range

// IsPointToPoint reports whether a prefix length describes a two-host link
func IsPointToPoint(bits int) bool {
	return bits == 30 || bits == 31
}

// ValidateASN checks if an AS number is valid (1 to 4294967295).
func ValidateASN(asn int64) error {
	if asn < 1 || asn > maxASN {
		return fmt.Errorf("%w: AS number must be between 1 and %d, got %d", ErrInvalidConfig, maxASN, asn)
	}
	return nil
}
