package throttle

import (
	"net"
	"net/http"
	"strings"
	"unicode/utf8"
)

// ClientResolver yields a stable identifier for the caller of a request.
type ClientResolver interface {
	ClientID(r *http.Request) string
}

// ClientResolverFunc adapts a function to ClientResolver.
type ClientResolverFunc func(r *http.Request) string

// ClientID implements ClientResolver.
func (f ClientResolverFunc) ClientID(r *http.Request) string {
	return f(r)
}

// RemoteAddrResolver identifies callers by network address. Run it behind
// chi's RealIP middleware when the service sits behind a proxy.
type RemoteAddrResolver struct{}

// ClientID returns the host part of r.RemoteAddr, or the raw value when it
// carries no port.
func (RemoteAddrResolver) ClientID(r *http.Request) string {
	if r == nil {
		return ""
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// AnonymizeClient truncates an address for logging: the last IPv4 octet or
// the trailing IPv6 groups are dropped.
func AnonymizeClient(clientID string) string {
	ip := net.ParseIP(clientID)
	if ip == nil {
		if utf8.RuneCountInString(clientID) > 8 {
			return string([]rune(clientID)[:8]) + "…"
		}
		return clientID
	}
	if v4 := ip.To4(); v4 != nil {
		return net.IPv4(v4[0], v4[1], v4[2], 0).String() + "/24"
	}
	masked := ip.Mask(net.CIDRMask(48, 128))
	return masked.String() + "/48"
}
