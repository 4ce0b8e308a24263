// Package http provides HTTP request stages and response-body sources for
// parflow computations.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/lguimbarda/parflow/flow/core"
	pio "github.com/lguimbarda/parflow/flow/io"
)

// Response contains HTTP response data.
type Response struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// FetchOption configures Fetch.
type FetchOption func(*fetchConfig)

type fetchConfig struct {
	client    *http.Client
	strict    bool
	userAgent string
}

// WithClient sets the client requests are sent with (default
// http.DefaultClient).
func WithClient(c *http.Client) FetchOption {
	return func(cfg *fetchConfig) {
		cfg.client = c
	}
}

// WithStrictStatus makes non-2xx responses fail the computation with a
// *StatusError.
func WithStrictStatus() FetchOption {
	return func(cfg *fetchConfig) {
		cfg.strict = true
	}
}

// WithUserAgent sets the User-Agent header of every request.
func WithUserAgent(ua string) FetchOption {
	return func(cfg *fetchConfig) {
		cfg.userAgent = ua
	}
}

// Fetch appends a stage issuing a GET request for each URL and reading
// the whole response body. Requests run concurrently across workers and
// are bound to ctx. A transport error fails the computation at that URL.
func Fetch[T any](ctx context.Context, p core.Pipeline[T, string], opts ...FetchOption) core.Pipeline[T, Response] {
	cfg := fetchConfig{client: http.DefaultClient}
	for _, opt := range opts {
		opt(&cfg)
	}

	return core.PipeTryMap(p, func(url string) (Response, error) {
		resp, err := get(ctx, cfg, url)
		if err != nil {
			return Response{}, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return Response{}, fmt.Errorf("reading %s: %w", url, err)
		}
		return Response{
			URL:        url,
			StatusCode: resp.StatusCode,
			Headers:    resp.Header,
			Body:       body,
		}, nil
	})
}

func get(ctx context.Context, cfg fetchConfig, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if cfg.userAgent != "" {
		req.Header.Set("User-Agent", cfg.userAgent)
	}
	resp, err := cfg.client.Do(req)
	if err != nil {
		return nil, err
	}
	if cfg.strict && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		resp.Body.Close()
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

// Lines issues a GET request for url and returns a source over the lines
// of the response body. Non-2xx responses are returned as a *StatusError.
// The body is closed when the source ends or is stopped.
func Lines(ctx context.Context, url string, opts ...FetchOption) (*pio.Reader[string], error) {
	cfg := fetchConfig{client: http.DefaultClient, strict: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	resp, err := get(ctx, cfg, url)
	if err != nil {
		return nil, err
	}
	return pio.Lines(resp.Body), nil
}
