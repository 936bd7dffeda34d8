package crawler

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// RegistrableDomain returns the effective second-level domain plus public
// suffix of host ("docs.example.co.uk" -> "example.co.uk"). IP literals and
// hosts without a registrable part are returned as-is.
func RegistrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// SameSite reports whether both URLs share a registrable domain.
func SameSite(a, b *url.URL) bool {
	return RegistrableDomain(a.Hostname()) == RegistrableDomain(b.Hostname())
}
