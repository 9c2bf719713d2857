package host

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultTimeout is the default timeout for a single fetch.
	DefaultTimeout = 15 * time.Second

	// MaxResponseSize is the maximum allowed asset size (50MB).
	MaxResponseSize = 50 * 1024 * 1024

	// UserAgent is the user agent string for asset fetches.
	UserAgent = "go-cdnmod/1.0"
)

// Fetcher retrieves asset bodies.
type Fetcher interface {
	// Fetch performs a GET request and returns the response body.
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	StatusCode int
	URL        string
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// HTTPFetcher is the default Fetcher.
type HTTPFetcher struct {
	client  *http.Client
	baseURL *url.URL
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient sets the HTTP client used for fetches.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithBaseURL sets the origin that root-relative asset URLs are resolved against.
func WithBaseURL(base string) FetcherOption {
	return func(f *HTTPFetcher) {
		if u, err := url.Parse(base); err == nil && u.IsAbs() {
			f.baseURL = u
		}
	}
}

// NewHTTPFetcher creates a fetcher with DefaultTimeout.
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs an HTTP GET request.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	target, err := f.resolve(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: rawURL, Message: resp.Status}
	}

	if resp.ContentLength > MaxResponseSize {
		return nil, fmt.Errorf("response size %d bytes exceeds maximum allowed size of %d bytes",
			resp.ContentLength, MaxResponseSize)
	}

	// +1 to detect an oversized body without Content-Length
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response size exceeds maximum allowed size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

func (f *HTTPFetcher) resolve(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if !u.IsAbs() && f.baseURL != nil {
		u = f.baseURL.ResolveReference(u)
	}
	return u.String(), nil
}
