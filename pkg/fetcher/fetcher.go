// Package fetcher downloads HTML documents with bounded size, bounded
// retries, and a hostname guard applied to every hop.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrPayloadTooLarge means the body exceeded the byte cap; the page is
// treated as untrustworthy rather than partially processed.
var ErrPayloadTooLarge = errors.New("page too large to scrape")

// ErrUnsupportedContentType means the response was not text/html.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// FetchError wraps a transport failure or non-2xx upstream status.
type FetchError struct {
	Status int // 0 when no response was received
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch failed: upstream returned %d", e.Status)
	}
	return fmt.Sprintf("fetch failed: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// hopBlockedError marks a host-guard rejection raised inside CheckRedirect
// so it can be told apart from transport errors after client.Do.
type hopBlockedError struct {
	err error
}

func (e *hopBlockedError) Error() string { return e.err.Error() }
func (e *hopBlockedError) Unwrap() error { return e.err }

// HostChecker validates hostnames before requests; safeurl.Guard
// implements it.
type HostChecker interface {
	Check(ctx context.Context, host string) error
}

// Config bounds a Fetcher. Zero values fall back to defaults.
type Config struct {
	ConnectTimeout time.Duration // default 5s
	Timeout        time.Duration // whole-request cap, default 15s
	MaxBytes       int64         // default 2 MiB
	MaxAttempts    int           // total GET attempts, default 3
	Backoff        time.Duration // base backoff, default 500ms
	UserAgent      string
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 2 << 20
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 500 * time.Millisecond
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (compatible; ClearWebBot/1.0)"
	}
	return c
}

type Fetcher struct {
	client  *http.Client
	checker HostChecker
	cfg     Config
}

// New builds a Fetcher whose client re-runs the host check on every
// redirect hop.
func New(checker HostChecker, cfg Config) *Fetcher {
	cfg = cfg.withDefaults()
	f := &Fetcher{checker: checker, cfg: cfg}
	f.client = &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: cfg.ConnectTimeout,
			}).DialContext,
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 50,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			if err := f.checkHost(req.Context(), req.URL.Hostname()); err != nil {
				return &hopBlockedError{err: err}
			}
			return nil
		},
	}
	return f
}

func (f *Fetcher) checkHost(ctx context.Context, host string) error {
	if f.checker == nil {
		return nil
	}
	return f.checker.Check(ctx, host)
}

var retryStatus = map[int]struct{}{
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

// Fetch GETs rawURL and parses the body into a goquery document.
// Retryable upstream statuses and transport errors are retried with
// exponential backoff up to MaxAttempts.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*goquery.Document, error) {
	var lastErr error
	for attempt := 0; attempt < f.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := f.cfg.Backoff * (1 << (attempt - 1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
		doc, retryable, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			return doc, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (*goquery.Document, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, &FetchError{Err: err}
	}
	if err := f.checkHost(ctx, req.URL.Hostname()); err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		// A guard rejection on a redirect hop is final, not a flaky upstream.
		var hb *hopBlockedError
		if errors.As(err, &hb) {
			return nil, false, hb.err
		}
		return nil, true, &FetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, retryable := retryStatus[resp.StatusCode]
		return nil, retryable, &FetchError{Status: resp.StatusCode}
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "text/html") {
		return nil, false, fmt.Errorf("%w: %s", ErrUnsupportedContentType, contentType)
	}

	// Read one byte past the cap to tell "exactly at cap" from "over".
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBytes+1))
	if err != nil {
		return nil, true, &FetchError{Err: err}
	}
	if int64(len(body)) > f.cfg.MaxBytes {
		return nil, false, ErrPayloadTooLarge
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, false, nil
}
