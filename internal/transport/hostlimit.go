package transport

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// hostLimiter enforces the per-host concurrency cap. A request against a
// host whose slots are exhausted blocks until one frees rather than failing.
type hostLimiter struct {
	mu      sync.Mutex
	perHost int64
	slots   map[string]*semaphore.Weighted

	// Optional per-host QPS politeness; nil disables it.
	qps      rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newHostLimiter(perHost int, qps float64) *hostLimiter {
	if perHost <= 0 {
		perHost = 3
	}
	l := &hostLimiter{
		perHost: int64(perHost),
		slots:   make(map[string]*semaphore.Weighted),
	}
	if qps > 0 {
		l.qps = rate.Limit(qps)
		l.burst = perHost
		l.limiters = make(map[string]*rate.Limiter)
	}
	return l
}

// acquire blocks until a slot for host is free, then applies the politeness
// limiter if one is configured.
func (l *hostLimiter) acquire(ctx context.Context, host string) error {
	l.mu.Lock()
	sem, ok := l.slots[host]
	if !ok {
		sem = semaphore.NewWeighted(l.perHost)
		l.slots[host] = sem
	}
	var limiter *rate.Limiter
	if l.limiters != nil {
		limiter, ok = l.limiters[host]
		if !ok {
			limiter = rate.NewLimiter(l.qps, l.burst)
			l.limiters[host] = limiter
		}
	}
	l.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire host slot: %w", err)
	}
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			sem.Release(1)
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}
	return nil
}

func (l *hostLimiter) release(host string) {
	l.mu.Lock()
	sem := l.slots[host]
	l.mu.Unlock()
	if sem != nil {
		sem.Release(1)
	}
}
