package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/PortfolioChat/internal/adapter/utils"
	"github.com/akolanti/PortfolioChat/internal/config"
	"golang.org/x/time/rate"
)

var limiterInstance = NewIPRateLimiter(config.RateLimitRequests, config.RateLimitWindow, config.RateLimiterIdleTTL)

// InitRateLimiter replaces the chat limiter with one allowing requests per window for each client.
func InitRateLimiter(requests int, window time.Duration) *IPRateLimiter {
	limiterInstance = NewIPRateLimiter(requests, window, config.RateLimiterIdleTTL)
	return limiterInstance
}

// WindowBackend keeps the sliding windows outside the process so every replica shares one quota.
// *redisStore.Store implements it.
type WindowBackend interface {
	SlidingWindowHit(ctx context.Context, key string, now time.Time, window time.Duration, limit int, member string) (bool, time.Duration, error)
}

type clientLog struct {
	hits     []time.Time
	lastSeen time.Time
}

// IPRateLimiter admits at most requests calls per client within any window-long span.
// Hits are kept in the shared backend when one is set, and in a per-client log otherwise
// or whenever the backend fails.
type IPRateLimiter struct {
	ips      map[string]*clientLog
	mu       sync.Mutex
	requests int
	window   time.Duration
	idleTTL  time.Duration
	now      func() time.Time

	backend      WindowBackend
	fallbackWarn rate.Sometimes
}

func NewIPRateLimiter(requests int, window time.Duration, idleTTL time.Duration) *IPRateLimiter {
	if requests <= 0 {
		requests = 1
	}
	return &IPRateLimiter{
		ips:          make(map[string]*clientLog),
		requests:     requests,
		window:       window,
		idleTTL:      idleTTL,
		now:          time.Now,
		fallbackWarn: rate.Sometimes{First: 1, Interval: time.Minute},
	}
}

// UseBackend moves the windows to b. Nil returns to process memory.
func (i *IPRateLimiter) UseBackend(b WindowBackend) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.backend = b
}

// Allow records a request for ip. When the window is full it reports how long until the oldest request leaves it.
func (i *IPRateLimiter) Allow(ctx context.Context, ip string) (bool, time.Duration) {
	now := i.now()

	i.mu.Lock()
	backend := i.backend
	i.mu.Unlock()
	if backend != nil {
		bctx, cancel := context.WithTimeout(ctx, config.RedisRateLimitTimeout)
		ok, wait, err := backend.SlidingWindowHit(bctx, "ratelimit:"+ip, now, i.window, i.requests, now.Format(time.RFC3339Nano)+"-"+utils.GetNewUUID())
		cancel()
		if err == nil {
			return ok, wait
		}
		i.fallbackWarn.Do(func() {
			logger.Warn("Rate limit backend unavailable, counting in memory", "error", err)
		})
	}
	return i.allowLocal(ip, now)
}

func (i *IPRateLimiter) allowLocal(ip string, now time.Time) (bool, time.Duration) {
	i.mu.Lock()
	defer i.mu.Unlock()
	entry, exists := i.ips[ip]
	if !exists {
		entry = &clientLog{}
		i.ips[ip] = entry
	}
	entry.lastSeen = now

	cutoff := now.Add(-i.window)
	kept := entry.hits[:0]
	for _, t := range entry.hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	entry.hits = kept

	if len(entry.hits) >= i.requests {
		return false, entry.hits[0].Add(i.window).Sub(now)
	}
	entry.hits = append(entry.hits, now)
	return true, 0
}

// Run evicts clients idle for longer than the TTL until ctx ends.
func (i *IPRateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(i.idleTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			i.evictIdle()
		}
	}
}

func (i *IPRateLimiter) evictIdle() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	cutoff := i.now().Add(-max(i.idleTTL, i.window))
	evicted := 0
	for ip, entry := range i.ips {
		if entry.lastSeen.Before(cutoff) {
			delete(i.ips, ip)
			evicted++
		}
	}
	return evicted
}

func (i *IPRateLimiter) size() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.ips)
}
