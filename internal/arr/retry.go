package arr

import (
	"context"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"
)

// retryableStatus lists the transient statuses worth another attempt.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// IsRetryableStatus reports whether code is a transient HTTP status.
func IsRetryableStatus(code int) bool { return retryableStatus[code] }

// RetryPolicy configures [RetryTransport].
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps exponential growth and Retry-After values.
	MaxDelay time.Duration
	// Multiplier is the backoff growth factor.
	Multiplier float64
}

// DefaultRetryPolicy retries three times after the first request, waiting
// 1s, 2s, then 4s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// Delay returns the wait before retry number n (1-based).
func (p RetryPolicy) Delay(n int) time.Duration {
	if n < 1 || p.InitialDelay <= 0 {
		return 0
	}
	mult := p.Multiplier
	if mult <= 0 {
		mult = 2.0
	}
	d := time.Duration(float64(p.InitialDelay) * math.Pow(mult, float64(n-1)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// TotalDelay is the sum of every backoff wait when all retries are used.
func (p RetryPolicy) TotalDelay() time.Duration {
	var total time.Duration
	for n := 1; n <= p.MaxRetries; n++ {
		total += p.Delay(n)
	}
	return total
}

// RetryTransport retries GET and POST requests that come back with a
// transient status. Transport errors and every other status are returned
// to the caller unchanged. Request bodies are replayed through GetBody.
type RetryTransport struct {
	Base   http.RoundTripper
	Policy RetryPolicy

	// Sleep waits for d or until ctx is done. Nil means a real timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (t *RetryTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	attempt := req
	for n := 0; ; n++ {
		resp, err := t.base().RoundTrip(attempt)
		if err != nil || n >= t.Policy.MaxRetries || !t.retryable(req, resp) {
			return resp, err
		}

		wait := t.Policy.Delay(n + 1)
		if ra, ok := retryAfter(resp, t.Policy.MaxDelay); ok {
			wait = ra
		}
		drain(resp)

		if err := t.sleep(req.Context(), wait); err != nil {
			return nil, err
		}
		next, err := rewind(req)
		if err != nil {
			return nil, err
		}
		attempt = next
	}
}

func (t *RetryTransport) retryable(req *http.Request, resp *http.Response) bool {
	if req.Method != http.MethodGet && req.Method != http.MethodPost {
		return false
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return false
	}
	return IsRetryableStatus(resp.StatusCode)
}

func (t *RetryTransport) sleep(ctx context.Context, d time.Duration) error {
	if t.Sleep != nil {
		return t.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// rewind clones req with a fresh body for another attempt.
func rewind(req *http.Request) (*http.Request, error) {
	next := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		next.Body = body
	}
	return next, nil
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(resp *http.Response, limit time.Duration) (time.Duration, bool) {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	d := time.Duration(secs) * time.Second
	if limit > 0 && d > limit {
		d = limit
	}
	return d, true
}

// drain discards a bounded amount of the body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
