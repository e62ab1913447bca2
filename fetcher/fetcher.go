package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"
)

// ErrFetchFailed is returned after every variant and attempt has been
// exhausted without a 200 response.
var ErrFetchFailed = errors.New("fetch failed")

const (
	maxAttempts = 2
	retryDelay  = 500 * time.Millisecond
	userAgent   = "SEOInsightBot/1.0"

	// Response bodies are capped to keep a hostile or misconfigured target
	// from exhausting memory.
	maxBodyBytes = 10 << 20
)

// Fetcher retrieves the live HTML of a page. Variants and attempts run
// strictly in sequence so a single analysis never hammers the target host.
type Fetcher struct {
	client *http.Client
	sleep  func(time.Duration)
}

// New returns a Fetcher whose transport refuses connections to private and
// reserved address ranges after DNS resolution.
func New() *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext:         safeDialer().DialContext,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		sleep: time.Sleep,
	}
}

// NewWithClient returns a Fetcher backed by the given client. Tests use it
// to install fake transports and to eliminate retry delays.
func NewWithClient(client *http.Client, sleep func(time.Duration)) *Fetcher {
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Fetcher{client: client, sleep: sleep}
}

// Fetch tries the URL and its www/non-www twin, up to two attempts each,
// and returns the body of the first 200 response. Responses are requested
// uncached so the analysis reflects the live page.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	variants, err := urlVariants(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	var lastErr error
	for _, variant := range variants {
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			body, err := f.fetchOnce(ctx, variant)
			if err == nil {
				return body, nil
			}
			lastErr = err

			// A confirmed-missing resource or an unreachable host will not
			// recover on retry; move straight to the next variant.
			if isTerminal(err) || attempt == maxAttempts {
				break
			}
			f.sleep(time.Duration(attempt) * retryDelay)
		}
	}

	return "", fmt.Errorf("%w: %v", ErrFetchFailed, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{url: target, status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// statusError records a non-200 response for retry classification.
type statusError struct {
	url    string
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.url, e.status)
}

// isTerminal reports whether retrying the same variant is pointless:
// the resource is confirmed gone, the hostname does not resolve, or the
// host actively refuses connections.
func isTerminal(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.status == http.StatusNotFound || se.status == http.StatusGone
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}

// urlVariants returns the URL itself plus its www/non-www toggle, in that
// order, so the normalized form is always tried first.
func urlVariants(rawURL string) ([]string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("missing host in %q", rawURL)
	}

	toggled := *u
	if strings.HasPrefix(strings.ToLower(host), "www.") {
		toggled.Host = swapHost(u, host[len("www."):])
	} else {
		toggled.Host = swapHost(u, "www."+host)
	}

	return []string{u.String(), toggled.String()}, nil
}

func swapHost(u *url.URL, host string) string {
	if port := u.Port(); port != "" {
		return net.JoinHostPort(host, port)
	}
	return host
}
