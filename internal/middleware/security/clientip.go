package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

var defaultTrusted = []string{
	"127.0.0.0/8",
	"::1/128",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
}

// Resolver extracts the client IP, honoring forwarding headers only when the
// direct peer is a trusted proxy.
type Resolver struct {
	trusted []*net.IPNet
}

// NewResolver trusts the given networks, or loopback and private ranges when
// none are given.
func NewResolver(cidrs ...string) (*Resolver, error) {
	if len(cidrs) == 0 {
		cidrs = defaultTrusted
	}
	r := &Resolver{}
	for _, c := range cidrs {
		_, network, err := net.ParseCIDR(c)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy CIDR %s: %w", c, err)
		}
		r.trusted = append(r.trusted, network)
	}
	return r, nil
}

func (res *Resolver) ClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}
	ip := net.ParseIP(directIP)
	if ip == nil || !res.isTrusted(ip) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

func (res *Resolver) isTrusted(ip net.IP) bool {
	for _, network := range res.trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

var probePatterns = []string{
	"../", "..\\", ".env", ".git", "wp-admin", "phpmyadmin",
	"etc/passwd", "<script", "union select",
}

// Suspicious reports requests that look like scanner probes rather than
// traffic from the tracker page.
func Suspicious(r *http.Request) bool {
	switch r.Method {
	case "TRACE", "TRACK", "CONNECT":
		return true
	}
	if len(r.URL.String()) > 2048 {
		return true
	}
	target := strings.ToLower(r.URL.Path + "?" + r.URL.RawQuery)
	for _, p := range probePatterns {
		if strings.Contains(target, p) {
			return true
		}
	}
	return false
}
