package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// CrawlRateLimiter applies a global request budget plus per-domain pacing so
// the crawler stays polite toward individual sites
type CrawlRateLimiter struct {
	globalLimiter     *rate.Limiter
	perDomainLimiters *sync.Map // map[string]*rate.Limiter
	mu                sync.RWMutex
}

// NewCrawlRateLimiter creates a new rate limiter with the given global budget
func NewCrawlRateLimiter(globalRate float64) *CrawlRateLimiter {
	return &CrawlRateLimiter{
		globalLimiter:     rate.NewLimiter(rate.Limit(globalRate), int(globalRate*2)),
		perDomainLimiters: &sync.Map{},
	}
}

// Wait blocks until both the global and the domain limiter admit a request.
// crawlDelay is the minimum spacing for the domain, typically from robots.txt
// or the source's configured crawl_delay.
func (rl *CrawlRateLimiter) Wait(ctx context.Context, domain string, crawlDelay time.Duration) error {
	if err := rl.globalLimiter.Wait(ctx); err != nil {
		return err
	}

	domainLimiter := rl.getOrCreateDomainLimiter(domain, crawlDelay)
	return domainLimiter.Wait(ctx)
}

func (rl *CrawlRateLimiter) getOrCreateDomainLimiter(domain string, crawlDelay time.Duration) *rate.Limiter {
	if limiter, ok := rl.perDomainLimiters.Load(domain); ok {
		return limiter.(*rate.Limiter)
	}

	requestsPerSecond := 1.0
	if crawlDelay > 0 {
		requestsPerSecond = 1.0 / crawlDelay.Seconds()
	}
	if requestsPerSecond > 5.0 {
		requestsPerSecond = 5.0
	}
	if requestsPerSecond < 0.2 {
		requestsPerSecond = 0.2 // at most one request per 5 seconds
	}

	newLimiter := rate.NewLimiter(rate.Limit(requestsPerSecond), 1)

	// Another goroutine may have created one in the meantime
	actual, _ := rl.perDomainLimiters.LoadOrStore(domain, newLimiter)
	return actual.(*rate.Limiter)
}

// SetGlobalRate updates the global rate limit
func (rl *CrawlRateLimiter) SetGlobalRate(requestsPerSecond float64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.globalLimiter.SetLimit(rate.Limit(requestsPerSecond))
	rl.globalLimiter.SetBurst(int(requestsPerSecond * 2))
}
