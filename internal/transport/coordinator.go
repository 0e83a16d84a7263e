// Package transport implements the transport coordinator: a bounded-
// concurrency, cached, retrying fetch layer shared by the page and image
// pipelines.
package transport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/shoplens/extractor/internal/clock/system"
	"github.com/shoplens/extractor/internal/metrics"
	"github.com/shoplens/extractor/internal/product"
)

// Config controls coordinator behavior.
type Config struct {
	Timeout     time.Duration // per-attempt timeout, default 10s
	CacheTTL    time.Duration // default 180s
	PerHostMax  int           // default 3
	PerHostQPS  float64       // 0 disables politeness throttling
	MaxBodySize int           // advisory; enforced by the inner fetcher
}

// Coordinator fetches a URL exactly once per logical request while enforcing
// the per-host concurrency cap, response cache, and retry policy.
type Coordinator struct {
	fetcher product.Fetcher
	cache   product.ResponseCache
	policy  *RetryPolicy
	limiter *hostLimiter
	clock   product.Clock
	sleeper product.Sleeper
	logger  *zap.Logger
	cfg     Config
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithClock injects a deterministic time source.
func WithClock(clock product.Clock) Option {
	return func(c *Coordinator) { c.clock = clock }
}

// WithSleeper injects the backoff waiter, so retry tests run instantly.
func WithSleeper(sleeper product.Sleeper) Option {
	return func(c *Coordinator) { c.sleeper = sleeper }
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(policy *RetryPolicy) Option {
	return func(c *Coordinator) { c.policy = policy }
}

// New constructs a Coordinator around an inner fetcher and cache.
func New(fetcher product.Fetcher, cache product.ResponseCache, cfg Config, logger *zap.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 180 * time.Second
	}
	c := &Coordinator{
		fetcher: fetcher,
		cache:   cache,
		policy:  NewRetryPolicy(),
		limiter: newHostLimiter(cfg.PerHostMax, cfg.PerHostQPS),
		clock:   system.New(),
		sleeper: timerSleeper{},
		logger:  logger,
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the body and content type for url. Cache hits return
// instantly and bypass the per-host cap. A nil error guarantees a 2xx
// response.
func (c *Coordinator) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	key, err := product.NormalizeURL(url)
	if err != nil {
		return nil, "", &product.FetchError{Kind: product.FetchErrInvalidURL, URL: url, Err: err}
	}

	if cached, ok := c.cache.Get(ctx, key); ok {
		metrics.ObserveCacheLookup(true)
		c.logger.Debug("cache hit",
			zap.String("url", key),
		)
		return cached.Body, cached.ContentType, nil
	}
	metrics.ObserveCacheLookup(false)

	host := product.HostOf(key)
	if err := c.limiter.acquire(ctx, host); err != nil {
		return nil, "", &product.FetchError{Kind: product.FetchErrNetwork, URL: key, Err: err}
	}
	metrics.IncInflight(host)
	defer func() {
		c.limiter.release(host)
		metrics.DecInflight(host)
	}()

	start := c.clock.Now()
	resp, attempts, err := c.fetchWithRetry(ctx, key, host)
	latency := c.clock.Now().Sub(start)

	outcome := "success"
	if err != nil {
		var fe *product.FetchError
		if errors.As(err, &fe) {
			outcome = string(fe.Kind)
		} else {
			outcome = "error"
		}
	}
	metrics.ObserveFetch(host, outcome, latency)
	c.logger.Info("fetch completed",
		zap.String("url", key),
		zap.String("outcome", outcome),
		zap.Duration("latency", latency),
		zap.Int("attempts", attempts),
		zap.Bool("cache_hit", false),
	)

	if err != nil {
		return nil, "", err
	}

	c.cache.Set(ctx, key, product.CachedResponse{
		URL:         key,
		Body:        resp.Body,
		ContentType: resp.ContentType,
		FetchedAt:   c.clock.Now(),
		TTL:         c.cfg.CacheTTL,
	})
	return resp.Body, resp.ContentType, nil
}

func (c *Coordinator) fetchWithRetry(ctx context.Context, url, host string) (product.FetchResponse, int, error) {
	var (
		lastErr    error
		lastStatus int
		retryAfter time.Duration
	)

	attempts := 0
	for {
		attempts++
		resp, err := c.attempt(ctx, url)

		switch {
		case err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, attempts, nil
		case err == nil:
			lastErr, lastStatus = nil, resp.StatusCode
			retryAfter = 0
			if resp.StatusCode == http.StatusTooManyRequests {
				retryAfter = RetryAfter(resp.RetryAfter, c.clock.Now())
			}
		default:
			lastErr, lastStatus = err, 0
			retryAfter = 0
		}

		retries := attempts - 1
		if !c.policy.ShouldRetry(lastErr, lastStatus, retries) {
			break
		}
		metrics.ObserveRetry()

		wait := c.policy.Backoff(retries)
		if retryAfter > 0 {
			wait = retryAfter
		}
		c.logger.Debug("retrying fetch",
			zap.String("url", url),
			zap.String("host", host),
			zap.Int("status", lastStatus),
			zap.Duration("backoff", wait),
			zap.Int("attempt", attempts),
		)
		if err := c.sleeper.Sleep(ctx, wait); err != nil {
			return product.FetchResponse{}, attempts, &product.FetchError{
				Kind: product.FetchErrNetwork, URL: url, Attempts: attempts, Err: err,
			}
		}
	}

	if lastErr != nil {
		var fe *product.FetchError
		if errors.As(lastErr, &fe) {
			fe.Attempts = attempts
			return product.FetchResponse{}, attempts, fe
		}
		return product.FetchResponse{}, attempts, &product.FetchError{
			Kind: product.FetchErrNetwork, URL: url, Attempts: attempts, Err: lastErr,
		}
	}
	return product.FetchResponse{}, attempts, &product.FetchError{
		Kind: product.FetchErrHTTPStatus, URL: url, StatusCode: lastStatus, Attempts: attempts,
	}
}

func (c *Coordinator) attempt(ctx context.Context, url string) (product.FetchResponse, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	return c.fetcher.Fetch(attemptCtx, product.FetchRequest{
		URL:     url,
		Host:    product.HostOf(url),
		Timeout: c.cfg.Timeout,
	})
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
