package transport

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/shoplens/extractor/internal/product"
)

// RetryPolicy decides whether and when a failed attempt is retried.
type RetryPolicy struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewRetryPolicy builds the default policy: up to two extra attempts with
// exponential backoff from 200ms, capped at 5s.
func NewRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		maxRetries: 2,
		baseDelay:  200 * time.Millisecond,
		maxDelay:   5 * time.Second,
	}
}

// ShouldRetry reports whether another attempt is warranted after a failure.
// retries is the number of retries already spent.
func (p *RetryPolicy) ShouldRetry(err error, statusCode, retries int) bool {
	if retries >= p.maxRetries {
		return false
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return false
		}
		var fe *product.FetchError
		if errors.As(err, &fe) {
			return fe.Kind == product.FetchErrTimeout || fe.Kind == product.FetchErrNetwork
		}
		return true
	}
	switch {
	case statusCode == http.StatusTooManyRequests:
		return true
	case statusCode >= 500:
		return true
	default:
		return false
	}
}

// Backoff returns the jittered wait before retry number retries (0-based).
func (p *RetryPolicy) Backoff(retries int) time.Duration {
	delay := float64(p.baseDelay) * math.Pow(2, float64(retries))
	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}
	half := time.Duration(delay / 2)
	return half + randomJitter(half)
}

// RetryAfter extracts a server-provided retry hint from a 429 response.
// Both delta-seconds and HTTP-date forms are accepted; zero means no hint.
func RetryAfter(headerValue string, now time.Time) time.Duration {
	if headerValue == "" {
		return 0
	}
	if secs, err := strconv.Atoi(headerValue); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(headerValue); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
