package netutil

import (
	"net"
	"net/url"

	"golang.org/x/net/publicsuffix"
)

// UpstreamDomain reduces a subscription URL to its eTLD+1 so that counters
// and log fields stay bounded per provider rather than per mirror host.
//
//	"https://sub.cdn.example.co.uk/api?token=x" -> "example.co.uk"
//	"http://192.168.1.1:8080/sub"                -> "192.168.1.1"
//	"http://localhost:3000/sub"                  -> "localhost"
//
// It returns "" when rawURL has no host.
func UpstreamDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := u.Hostname()
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	if domain, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return domain
	}
	return host
}
