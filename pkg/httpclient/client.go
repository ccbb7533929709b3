// Package httpclient provides the HTTP client used for every coordinator-
// to-worker and worker-to-worker call (health, reset, execute_map,
// execute_shuffle, shuffle, execute_reduce, get_results). Every request is
// wrapped in an otelhttp round tripper, so each call gets a client span that
// is a child of whatever span its request context carries; no per-job span
// is started anywhere, so calls of one job are not grouped under a common
// root.
package httpclient

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Client struct {
	*http.Client
}

// Config controls per-call timeout. Coordinator and worker calls use
// different budgets: health checks should fail fast, reduce calls over a
// large value list should not.
type Config struct {
	Timeout time.Duration
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	base := &http.Transport{
		MaxIdleConns:       100,
		IdleConnTimeout:    90 * time.Second,
		DisableCompression: true,
	}

	return &Client{
		Client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(base),
		},
	}
}
