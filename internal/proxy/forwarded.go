package proxy

import "net/netip"

// xForwardedFor is the header recording the chain of client and proxy
// addresses a request has traversed, oldest first.
const xForwardedFor = "X-Forwarded-For"

// appendClientIP returns the updated X-Forwarded-For value: the canonical
// text of ip when no prior value exists, otherwise the prior value with ip
// appended after a comma-space. Prior entries are opaque text; upstream
// proxies may have written non-canonical forms, so they are never re-parsed,
// reordered, or deduplicated. IPv6 addresses are rendered without zone
// identifiers.
func appendClientIP(existing string, ip netip.Addr) string {
	addr := ip.WithZone("").String()
	if existing == "" {
		return addr
	}
	return existing + ", " + addr
}
