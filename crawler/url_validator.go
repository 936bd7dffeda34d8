package crawler

import (
	"net/url"
	"slices"
	"strings"
)

type URLValidator struct {
	allowedSchemes []string
}

// NewURLValidator creates a new URL validator with the given configuration
func NewURLValidator(config *CrawlerConfig) *URLValidator {
	return &URLValidator{
		allowedSchemes: config.AllowedSchemes,
	}
}

// Parse returns the parsed URL when raw has an allowed scheme and a host.
func (v *URLValidator) Parse(raw string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, false
	}
	if !v.IsFollowable(u) {
		return nil, false
	}
	return u, true
}

// IsFollowable reports whether u can be fetched at all.
func (v *URLValidator) IsFollowable(u *url.URL) bool {
	if u.Host == "" || u.Hostname() == "" {
		return false
	}
	return slices.Contains(v.allowedSchemes, strings.ToLower(u.Scheme))
}

// IsValidSeedURL reports whether raw is an absolute http(s) URL.
func IsValidSeedURL(raw string) bool {
	_, ok := NewURLValidator(DefaultConfig()).Parse(raw)
	return ok
}
