package track

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the fetching client's address from the request,
// preferring proxy-supplied headers over the transport peer address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return NormalizeIP(first)
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-Ip")); real != "" {
		return NormalizeIP(real)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return NormalizeIP(host)
}

// NormalizeIP canonicalizes an address for comparison: loopback spellings
// collapse to 127.0.0.1 and the IPv4-mapped IPv6 prefix is stripped.
// Normalization is idempotent.
func NormalizeIP(ip string) string {
	if ip == "::1" || ip == "localhost" {
		return "127.0.0.1"
	}
	return strings.TrimPrefix(ip, "::ffff:")
}

// IsCreator reports whether the viewer address heuristically matches the
// pixel creator's recorded address. An empty creator address never
// matches: if the creator IP was not captured every fetch counts.
//
// This is a best-effort signal only. Shared NAT, mobile carriers, and
// VPN egress points can make distinct people look identical, and the
// creator opening their own mail from another network looks like a
// genuine view. The image fetch is anonymous, so no stronger identity
// signal exists.
func IsCreator(viewerIP, creatorIP string) bool {
	if creatorIP == "" {
		return false
	}
	return NormalizeIP(viewerIP) == NormalizeIP(creatorIP)
}
