package urlguard

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strings"
)

var (
	// ErrInvalidURL is returned for any URL that fails validation. Callers
	// map it to a 400 without retrying.
	ErrInvalidURL = errors.New("invalid url")

	errUnsupportedScheme = errors.New("only https urls are supported")
	errPathTraversal     = errors.New("path traversal sequences are not allowed")
	errDomainNotAllowed  = errors.New("domain is not on the allow-list")
	errLoopbackAddress   = errors.New("loopback addresses are not allowed")
	errNonPublicAddress  = errors.New("non-public ip addresses are not allowed")
)

// Guard validates candidate URLs before any network access happens.
type Guard struct {
	allowedDomains  []string
	skipDomainCheck bool
}

// New creates a Guard. allowedDomains entries are matched exactly, or as
// wildcard subdomains when prefixed with "*." (e.g. "*.example.com"). An
// empty list disables the allow-list check entirely; skipDomainCheck
// disables it even when entries are configured (local/dev use only).
func New(allowedDomains []string, skipDomainCheck bool) *Guard {
	domains := make([]string, 0, len(allowedDomains))
	for _, d := range allowedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			domains = append(domains, d)
		}
	}
	return &Guard{allowedDomains: domains, skipDomainCheck: skipDomainCheck}
}

// Validate normalizes raw into an https URL or rejects it. A missing scheme
// defaults to https and plain http is upgraded; every other scheme fails.
func (g *Guard) Validate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty url", ErrInvalidURL)
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	} else if strings.HasPrefix(strings.ToLower(raw), "http://") {
		raw = "https://" + raw[len("http://"):]
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "https" {
		return "", fmt.Errorf("%w: %v: %s", ErrInvalidURL, errUnsupportedScheme, u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	if strings.Contains(u.Path, "../") || strings.Contains(u.Path, "/..") {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, errPathTraversal)
	}

	host := strings.ToLower(u.Hostname())
	if addr, err := netip.ParseAddr(host); err == nil {
		if err := checkIPAddr(addr); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
		}
	}
	// An IP literal can never equal a domain entry or match a wildcard, so
	// an enforced allow-list rejects numeric hosts outright.
	if !g.domainAllowed(host) {
		return "", fmt.Errorf("%w: %v: %s", ErrInvalidURL, errDomainNotAllowed, host)
	}

	return u.String(), nil
}

// domainAllowed reports whether host passes the configured allow-list.
func (g *Guard) domainAllowed(host string) bool {
	if g.skipDomainCheck || len(g.allowedDomains) == 0 {
		return true
	}
	for _, domain := range g.allowedDomains {
		if host == domain {
			return true
		}
		if suffix, ok := strings.CutPrefix(domain, "*"); ok {
			// Suffix match with a length check so that "evildomain.com"
			// cannot satisfy "*.domain.com".
			if strings.HasSuffix(host, suffix) && len(host) > len(suffix) {
				return true
			}
		}
	}
	return false
}

// ValidateIP rejects literal IP fetch targets that resolve to loopback or
// otherwise non-public address space. Dial-time checks in the fetcher cover
// the DNS-rebinding case; this covers URLs written as numeric IPs up front.
func ValidateIP(host string) error {
	addr, err := netip.ParseAddr(strings.Trim(host, "[]"))
	if err != nil {
		return fmt.Errorf("%w: not an ip literal: %q", ErrInvalidURL, host)
	}
	if err := checkIPAddr(addr); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return nil
}

func checkIPAddr(addr netip.Addr) error {
	// Unmap IPv4-in-IPv6 (::ffff:127.0.0.1) so mapped addresses cannot
	// bypass the IPv4 checks.
	addr = addr.Unmap()
	if addr.IsLoopback() {
		return errLoopbackAddress
	}
	if !addr.IsGlobalUnicast() || addr.IsPrivate() {
		return errNonPublicAddress
	}
	return nil
}
