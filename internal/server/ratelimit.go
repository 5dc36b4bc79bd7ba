package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether another attempt under key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// MemoryLimiter is a per-key token bucket refilled at perMinute tokens per
// minute, holding at most perMinute tokens.
type MemoryLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	perMinute float64
	now       func() time.Time
}

func NewMemoryLimiter(perMinute int) *MemoryLimiter {
	return &MemoryLimiter{
		buckets:   make(map[string]*bucket),
		perMinute: float64(perMinute),
		now:       time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.perMinute, lastSeen: now}
		l.buckets[key] = b
	}

	b.tokens += now.Sub(b.lastSeen).Minutes() * l.perMinute
	if b.tokens > l.perMinute {
		b.tokens = l.perMinute
	}
	b.lastSeen = now

	l.sweep(now)

	if b.tokens < 1 {
		return false, nil
	}
	b.tokens--
	return true, nil
}

// sweep drops buckets that have been idle long enough to be full again.
func (l *MemoryLimiter) sweep(now time.Time) {
	if len(l.buckets) < 1024 {
		return
	}
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > time.Minute {
			delete(l.buckets, key)
		}
	}
}

// RedisLimiter counts attempts per key in fixed one-minute windows shared by
// every instance using the same Redis.
type RedisLimiter struct {
	client    *redis.Client
	prefix    string
	perMinute int64
	now       func() time.Time
}

func NewRedisLimiter(client *redis.Client, prefix string, perMinute int) *RedisLimiter {
	return &RedisLimiter{
		client:    client,
		prefix:    prefix,
		perMinute: int64(perMinute),
		now:       time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	window := l.now().Unix() / 60
	k := fmt.Sprintf("ratelimit:%s:%s:%d", l.prefix, key, window)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, 2*time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("counting attempts: %w", err)
	}
	return incr.Val() <= l.perMinute, nil
}

// allow reports whether the request may proceed and writes a 429 when it may
// not. Limiter failures let the request through.
func (d *deps) allow(w http.ResponseWriter, r *http.Request, l Limiter, key string) bool {
	if l == nil {
		return true
	}
	ok, err := l.Allow(r.Context(), key)
	if err != nil {
		d.logger.Warn("rate limiter unavailable", "key", key, "error", err)
		return true
	}
	if !ok {
		d.logger.Info("rate limited", "key", key, "path", r.URL.Path)
		writeError(w, http.StatusTooManyRequests, "Too many attempts, try again shortly")
		return false
	}
	return true
}

// rateLimitByIP limits requests per client address. Run after
// middleware.RealIP.
func (d *deps) rateLimitByIP(l Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !d.allow(w, r, l, "ip:"+clientIP(r)) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
