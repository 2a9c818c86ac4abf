package core

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	requestTimeout = 60 * time.Second
	userAgent      = "ducnote"
)

// Fetcher is the HTTP transport used for downloads and link validation.
type Fetcher interface {
	// Get returns a stream of the remote content and its length (-1 if unknown).
	Get(ctx context.Context, url string) (io.ReadCloser, int64, error)
	// Head returns the status code of a HEAD request.
	Head(ctx context.Context, url string) (int, error)
}

// StatusError reports a non-success HTTP status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// HTTPFetcher implements Fetcher over net/http. Connection setup and
// response headers are bounded; bodies stream without a total deadline so
// large model files are not cut off.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates an HTTPFetcher with bounded dial and header timeouts.
func NewHTTPFetcher() *HTTPFetcher {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: requestTimeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConnsPerHost:   MaxConcurrency,
	}
	return &HTTPFetcher{client: &http.Client{Transport: transport}}
}

// NewHTTPFetcherWithClient wraps an existing client. Useful for testing.
func NewHTTPFetcherWithClient(c *http.Client) *HTTPFetcher {
	return &HTTPFetcher{client: c}
}

// Get issues a GET request. Non-2xx responses are returned as *StatusError.
func (f *HTTPFetcher) Get(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, 0, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return resp.Body, resp.ContentLength, nil
}

// Head issues a HEAD request bounded by the request timeout.
func (f *HTTPFetcher) Head(ctx context.Context, url string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

// HeadProbe validates links with a HEAD request.
type HeadProbe struct {
	Fetcher Fetcher
}

// Probe implements LinkProbe. Local paths must exist; URLs must answer 2xx.
func (p HeadProbe) Probe(ctx context.Context, locator string) error {
	if isLocalPath(locator) {
		if _, err := statLocal(locator); err != nil {
			return err
		}
		return nil
	}
	status, err := p.Fetcher.Head(ctx, locator)
	if err != nil {
		return fmt.Errorf("link unreachable: %w", err)
	}
	if status < 200 || status > 299 {
		return &StatusError{URL: locator, StatusCode: status}
	}
	return nil
}
