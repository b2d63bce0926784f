package http

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// defaultTrustedProxies are the networks allowed to set forwarding headers
// when none are configured.
var defaultTrustedProxies = []string{
	"127.0.0.0/8",    // localhost
	"::1/128",        // localhost
	"10.0.0.0/8",     // private networks
	"172.16.0.0/12",  // private networks
	"192.168.0.0/16", // private networks
}

// ClientIPExtractor resolves the caller address, honouring X-Forwarded-For
// and X-Real-IP only from trusted proxies.
type ClientIPExtractor struct {
	trusted []*net.IPNet
}

// NewClientIPExtractor accepts CIDRs or bare IPs. Empty input selects the
// private and loopback ranges.
func NewClientIPExtractor(proxies []string) (*ClientIPExtractor, error) {
	if len(proxies) == 0 {
		proxies = defaultTrustedProxies
	}
	e := &ClientIPExtractor{}
	for _, p := range proxies {
		if !strings.Contains(p, "/") {
			if ip := net.ParseIP(p); ip != nil && ip.To4() != nil {
				p += "/32"
			} else {
				p += "/128"
			}
		}
		_, network, err := net.ParseCIDR(p)
		if err != nil {
			return nil, fmt.Errorf("parse trusted proxy %q: %w", p, err)
		}
		e.trusted = append(e.trusted, network)
	}
	return e, nil
}

func (e *ClientIPExtractor) isTrustedProxy(ip net.IP) bool {
	for _, network := range e.trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// Extract returns the real client IP, validating forwarded headers.
func (e *ClientIPExtractor) Extract(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsedDirectIP := net.ParseIP(directIP)
	if parsedDirectIP == nil || !e.isTrustedProxy(parsedDirectIP) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		clientIP := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(clientIP) != nil {
			return clientIP
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}
	return directIP
}
