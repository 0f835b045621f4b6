package state

import (
	"net"
	"strings"
)

// DefaultPort is appended to addresses that do not carry one.
const DefaultPort = "4000"

// Address identifies a node by host:port. It is the only identity a node has.
type Address string

func (a Address) String() string { return string(a) }

// NormalizeAddress cuts the http:// https:// prefixes from the input address
// and adds a default port when none is given.
func NormalizeAddress(addr, defPort string) Address {
	addr = strings.TrimSpace(addr)
	if rest, ok := strings.CutPrefix(addr, "http://"); ok {
		addr = rest
	} else if rest, ok := strings.CutPrefix(addr, "https://"); ok {
		addr = rest
	}
	addr = strings.TrimSuffix(addr, "/")

	if addr == "" {
		return ""
	}
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return Address(addr)
	}
	return Address(net.JoinHostPort(addr, defPort))
}

// ParseAddressList splits a comma separated list, normalizes every entry and
// drops blanks and duplicates while keeping the input order.
func ParseAddressList(s, defPort string) []Address {
	var out []Address
	seen := make(map[Address]struct{})
	for _, part := range strings.Split(s, ",") {
		a := NormalizeAddress(part, defPort)
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
