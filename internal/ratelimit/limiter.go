package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// LimitResult is the outcome of a rate limit check.
type LimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter performs sliding-window rate limiting backed by Redis sorted sets.
// Without Redis it falls back to an in-process token bucket per key.
type Limiter struct {
	rdb        *redis.Client
	localBurst int

	mu    sync.Mutex
	local map[string]*rate.Limiter
	now   func() time.Time
}

// NewLimiter creates a rate limiter. rdb may be nil.
func NewLimiter(rdb *redis.Client, localBurst int) *Limiter {
	return &Limiter{
		rdb:        rdb,
		localBurst: localBurst,
		local:      make(map[string]*rate.Limiter),
		now:        time.Now,
	}
}

// slidingWindowScript atomically removes expired entries, adds the current one and counts.
// KEYS[1] = sorted set key
// ARGV[1] = window start (unix micro)
// ARGV[2] = now (unix micro)
// ARGV[3] = limit
// ARGV[4] = TTL seconds for the key
// Returns: [current_count, 1=allowed/0=denied]
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local window_start = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, now .. ':' .. math.random(1000000))
    redis.call('EXPIRE', key, ttl)
    return {count + 1, 1}
end

redis.call('EXPIRE', key, ttl)
return {count, 0}
`)

// Check admits or denies one request for key, allowing limit requests per window.
func (l *Limiter) Check(ctx context.Context, key string, limit int64, window time.Duration) (LimitResult, error) {
	if l.rdb == nil {
		return l.checkLocal(key, limit, window), nil
	}

	now := l.now()
	ttlSecs := int64(window.Seconds()) + 1
	result, err := slidingWindowScript.Run(ctx, l.rdb, []string{"imgr:rl:" + key},
		now.Add(-window).UnixMicro(), now.UnixMicro(), limit, ttlSecs,
	).Int64Slice()
	if err != nil {
		slog.Warn("rate limit check failed, using local limiter", "error", err)
		return l.checkLocal(key, limit, window), nil
	}

	count := result[0]
	allowed := result[1] == 1
	res := LimitResult{
		Allowed:   allowed,
		Remaining: max(limit-count, 0),
		ResetAt:   now.Add(window),
	}
	if !allowed {
		res.RetryAfter = window / 2
	}
	return res, nil
}

func (l *Limiter) checkLocal(key string, limit int64, window time.Duration) LimitResult {
	now := l.now()
	every := rate.Every(window / time.Duration(max(limit, 1)))
	burst := l.localBurst
	if burst <= 0 || int64(burst) > limit {
		burst = int(max(limit, 1))
	}

	l.mu.Lock()
	lim, ok := l.local[key]
	if !ok {
		lim = rate.NewLimiter(every, burst)
		l.local[key] = lim
	} else if lim.Limit() != every || lim.Burst() != burst {
		lim.SetLimitAt(now, every)
		lim.SetBurstAt(now, burst)
	}
	l.mu.Unlock()

	if lim.AllowN(now, 1) {
		return LimitResult{
			Allowed:   true,
			Remaining: int64(lim.TokensAt(now)),
			ResetAt:   now.Add(window),
		}
	}
	r := lim.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return LimitResult{
		Allowed:    false,
		ResetAt:    now.Add(delay),
		RetryAfter: delay,
	}
}

func (l *Limiter) String() string {
	if l.rdb == nil {
		return fmt.Sprintf("local(burst=%d)", l.localBurst)
	}
	return "redis"
}
