package arr

import (
	"net"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds a single attempt.
	DefaultTimeout = 30 * time.Second

	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second
	defaultTLSHandshakeTimeout = 10 * time.Second
	defaultDialTimeout         = 10 * time.Second
)

// ClientConfig configures the shared HTTP client.
type ClientConfig struct {
	// Timeout bounds one attempt (dial through response headers). Zero
	// means DefaultTimeout.
	Timeout time.Duration
	Retry   RetryPolicy
}

// NewHTTPClient returns the pooled, retrying client every service call
// shares. The overall client timeout covers all attempts and backoff waits.
func NewHTTPClient(cfg ClientConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   defaultDialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: time.Second,
	}

	attempts := time.Duration(cfg.Retry.MaxRetries + 1)
	return &http.Client{
		Timeout:   timeout*attempts + cfg.Retry.TotalDelay(),
		Transport: &RetryTransport{Base: transport, Policy: cfg.Retry},
	}
}
