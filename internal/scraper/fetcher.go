package scraper

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	// UserAgent identifies the scraper to source hosts.
	UserAgent = "Mozilla/5.0 (compatible; CollegeIncomeScraper/1.0)"

	maxBodyBytes = 32 << 20
)

// Fetcher retrieves the body of a source. Implementations make exactly one
// attempt bounded by timeout.
type Fetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) (string, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string, timeout time.Duration) (string, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string, timeout time.Duration) (string, error) {
	return f(ctx, url, timeout)
}

// HTTPFetcher fetches sources over HTTP(S).
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher returns a fetcher backed by a pooled transport. A nil client
// selects the default pooled client.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = newHTTPClientWithPooling()
	}
	return &HTTPFetcher{client: client, userAgent: UserAgent}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return "", fmt.Errorf("response from %s exceeds %d bytes", url, maxBodyBytes)
	}
	return string(body), nil
}

// newHTTPClientWithPooling keeps connections to the source hosts alive
// between runs. Per-request deadlines come from the context.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{Transport: transport}
}
