package scraper

import (
	"context"
	"time"

	"github.com/aluiziolira/books-crawler/config"
)

// retryPolicy decides whether and when a failed fetch is attempted again.
type retryPolicy struct {
	cfg     *config.Config
	metrics *Metrics

	attempts     map[string]int
	totalRetries int
}

func newRetryPolicy(cfg *config.Config, metrics *Metrics) *retryPolicy {
	return &retryPolicy{
		cfg:      cfg,
		metrics:  metrics,
		attempts: make(map[string]int),
	}
}

// Schedule records a retry for url and returns the delay to wait before it,
// or false once the url has used its retry budget.
func (rp *retryPolicy) Schedule(url string) (time.Duration, bool) {
	if rp.cfg.MaxRetries == 0 {
		return 0, false
	}

	attempt := rp.attempts[url]
	if attempt >= rp.cfg.MaxRetries {
		return 0, false
	}

	attempt++
	rp.attempts[url] = attempt
	rp.totalRetries++
	rp.metrics.IncRetries()

	return rp.backoff(attempt), true
}

func (rp *retryPolicy) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := rp.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := rp.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

// TotalRetries returns how many retries were scheduled so far.
func (rp *retryPolicy) TotalRetries() int {
	return rp.totalRetries
}

// wait blocks for d or until ctx ends.
func wait(ctx context.Context, d time.Duration) error {
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
