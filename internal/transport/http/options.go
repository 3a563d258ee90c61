package http

import (
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Options configures the subgraph HTTP transport.
//
// Defaults:
// - MaxConnsPerHost: 32 (shared pooled http.Client)
// - RequestTimeout:  10s (the pooled http.Client's Timeout, applied alongside
//   any context deadline; unused when Client is supplied)
// - MaxRetries:      2, with backoff.ExponentialBackOff between attempts
//
// Provider must be supplied (see StaticEndpoints for a simple config-driven
// implementation).
type Options struct {
	Provider EndpointProvider

	MaxConnsPerHost int
	RequestTimeout  time.Duration
	MaxRetries      int
	BackOff         func() backoff.BackOff

	Client *http.Client
}

type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		MaxConnsPerHost: 32,
		RequestTimeout:  10 * time.Second,
		MaxRetries:      2,
		BackOff:         func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
}

func WithProvider(p EndpointProvider) Option { return func(o *Options) { o.Provider = p } }
func WithMaxConnsPerHost(n int) Option       { return func(o *Options) { o.MaxConnsPerHost = n } }
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Options) { o.RequestTimeout = d }
}
func WithMaxRetries(n int) Option { return func(o *Options) { o.MaxRetries = n } }
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) { o.Client = c }
}
