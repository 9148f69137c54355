// Package httpsource fetches JSON documents over HTTP for caches whose data
// lives behind another service's API.
package httpsource

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dailyyoga/cacheorch/logger"
	"github.com/dailyyoga/cacheorch/source"
	"github.com/hashicorp/go-retryablehttp"
)

// Fetcher issues retried GET requests against a base URL
type Fetcher struct {
	client  *retryablehttp.Client
	base    *url.URL
	headers map[string]string
}

// NewFetcher creates a Fetcher for config.BaseURL
func NewFetcher(config *Config, log logger.Logger) (*Fetcher, error) {
	if config == nil {
		config = DefaultConfig()
	} else {
		config = config.MergeDefaults()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, ErrInvalidConfig(err.Error())
	}

	client := &retryablehttp.Client{
		HTTPClient:     &http.Client{Timeout: config.Timeout},
		Logger:         leveledLogger{log: log},
		RetryWaitMin:   config.RetryWaitMin,
		RetryWaitMax:   config.RetryWaitMax,
		RetryMax:       max(config.RetryMax, 0),
		CheckRetry:     retryablehttp.DefaultRetryPolicy,
		Backoff:        retryablehttp.DefaultBackoff,
		ErrorHandler:   retryablehttp.PassthroughErrorHandler,
		RequestLogHook: retryLogHook(log),
	}
	return &Fetcher{client: client, base: base, headers: config.Headers}, nil
}

// Provider returns a singleton source that builds the Fetcher when the
// orchestrator starts and drops idle connections when it stops
func Provider(config *Config, log logger.Logger) source.Provider[*Fetcher] {
	return source.SingletonCloser(func(context.Context) (*Fetcher, func() error, error) {
		f, err := NewFetcher(config, log)
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	})
}

// URL resolves path against the base URL
func (f *Fetcher) URL(path string) string {
	ref, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return f.base.String() + path
	}
	base := *f.base
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return base.ResolveReference(ref).String()
}

// Get fetches path and decodes the JSON body into out
func (f *Fetcher) Get(ctx context.Context, path string, out any) error {
	target := f.URL(path)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return ErrRequest(target, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return ErrRequest(target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return ErrStatus(resp.StatusCode, target)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return ErrDecode(target, err)
	}
	return nil
}

// Close releases idle connections
func (f *Fetcher) Close() error {
	f.client.HTTPClient.CloseIdleConnections()
	return nil
}

// GetJSON fetches path and decodes it into a T
func GetJSON[T any](ctx context.Context, f *Fetcher, path string) (T, error) {
	var out T
	err := f.Get(ctx, path, &out)
	return out, err
}
