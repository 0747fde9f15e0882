package lazy

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPFetcher retrieves external content over HTTP(S). The manifest ref
// is the full URL.
type HTTPFetcher struct {
	client *resty.Client
}

// HTTPFetcherConfig configures the HTTP fetcher.
type HTTPFetcherConfig struct {
	// Timeout bounds a single fetch. Zero means 30s.
	Timeout time.Duration `mapstructure:"timeout"`

	// RetryCount is how many times a failed fetch is retried with
	// backoff before giving up. Zero disables retries.
	RetryCount int `mapstructure:"retry_count"`
}

// NewHTTPFetcher creates an HTTP fetcher.
func NewHTTPFetcher(cfg HTTPFetcherConfig) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount)
	return &HTTPFetcher{client: client}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	resp, err := f.client.R().SetContext(ctx).Get(ref)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", ref, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("GET %s: unexpected status %s", ref, resp.Status())
	}
	return resp.Body(), nil
}

// FetcherFunc adapts a function to the Fetcher interface. Tests use it
// to count fetches and inject failures.
type FetcherFunc func(ctx context.Context, ref string) ([]byte, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, ref string) ([]byte, error) {
	return f(ctx, ref)
}
