// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/carterperez-dev/sheetsense/internal/core"
)

const keyPrefix = "sheetsense:ratelimit:"

var errLimiterUnavailable = errors.New("rate limiter unavailable")

// Policy is one named limit. Buckets are keyed by policy name plus the
// subject Key returns, so two policies never share a bucket.
type Policy struct {
	Name     string
	Limit    redis_rate.Limit
	Key      func(*http.Request) string
	Skip     func(*http.Request) bool
	FailOpen bool
}

// RateLimiter enforces a Policy through Redis GCRA so every replica shares
// one budget. While Redis is unreachable each process keeps a token bucket
// with the same rate.
type RateLimiter struct {
	policy Policy
	shared *redis_rate.Limiter
	local  *localLimiter
}

func NewRateLimiter(rdb *redis.Client, p Policy) *RateLimiter {
	if p.Key == nil {
		p.Key = ByIP
	}
	if p.Name == "" {
		p.Name = "default"
	}

	rl := &RateLimiter{policy: p, local: &localLimiter{}}
	if rdb != nil {
		rl.shared = redis_rate.NewLimiter(rdb)
	}
	return rl
}

// UploadRateLimiter bounds uploads per account. It runs behind the user gate
// and lets requests through if neither backend can decide.
func UploadRateLimiter(rdb *redis.Client, limit redis_rate.Limit) func(http.Handler) http.Handler {
	return NewRateLimiter(rdb, Policy{
		Name:     "upload",
		Limit:    limit,
		Key:      ByUser,
		FailOpen: true,
	}).Handler
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.policy.Skip != nil && rl.policy.Skip(r) {
			next.ServeHTTP(w, r)
			return
		}

		key := keyPrefix + rl.policy.Name + ":" + rl.policy.Key(r)

		res, err := rl.allow(r.Context(), key)
		if err != nil {
			slog.Warn("rate limit undecided",
				"policy", rl.policy.Name,
				"fail_open", rl.policy.FailOpen,
				"error", err,
			)
			if rl.policy.FailOpen {
				next.ServeHTTP(w, r)
				return
			}
			core.JSONError(w, core.NewAppError(
				fmt.Errorf("%w: %w", errLimiterUnavailable, err),
				"Service temporarily unavailable",
				http.StatusServiceUnavailable,
				"SERVICE_UNAVAILABLE",
			))
			return
		}

		writeLimitHeaders(w.Header(), rl.policy.Limit, res)

		if res.Allowed == 0 {
			retryAfter := max(int(res.RetryAfter.Seconds()), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			core.JSONError(w, core.RateLimitedError(retryAfter))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(ctx context.Context, key string) (*redis_rate.Result, error) {
	if rl.shared != nil {
		res, err := rl.shared.Allow(ctx, key, rl.policy.Limit)
		if err == nil {
			return res, nil
		}
		slog.Debug("redis rate limit failed, using local bucket", "error", err)
	}
	return rl.local.allow(key, rl.policy.Limit)
}

// Per builds a limit of requests per window with the given burst.
func Per(requests, burst int, window time.Duration) redis_rate.Limit {
	return redis_rate.Limit{Rate: requests, Burst: burst, Period: window}
}

func ByIP(r *http.Request) string {
	return "ip:" + clientIP(r)
}

// ByUser keys by account and falls back to the client address for
// anonymous requests.
func ByUser(r *http.Request) string {
	if id := GetUserID(r.Context()); id != "" {
		return "user:" + id
	}
	return ByIP(r)
}

// clientIP reads RemoteAddr only. The server's RealIP middleware has
// already rewritten it from the proxy headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeLimitHeaders(h http.Header, limit redis_rate.Limit, res *redis_rate.Result) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(res.Remaining, 0)))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(res.ResetAfter).Unix(), 10))
}

const (
	bucketIdleTTL  = 10 * time.Minute
	sweepInterval  = time.Minute
	sweepThreshold = 1024
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// localLimiter holds one token bucket per key. Idle buckets are swept
// inline once enough new keys arrived or enough time passed.
type localLimiter struct {
	buckets   sync.Map
	added     atomic.Int64
	lastSweep atomic.Int64
	sweeping  sync.Mutex
}

func (l *localLimiter) allow(key string, limit redis_rate.Limit) (*redis_rate.Result, error) {
	if limit.Rate <= 0 || limit.Period <= 0 {
		return nil, fmt.Errorf("limit %d per %s is not enforceable", limit.Rate, limit.Period)
	}

	perSecond := float64(limit.Rate) / limit.Period.Seconds()
	now := time.Now()

	b := l.bucketFor(key, perSecond, max(limit.Burst, 1), now)
	b.lastSeen.Store(now.Unix())

	interval := time.Duration(float64(time.Second) / perSecond)
	res := &redis_rate.Result{
		Limit:      limit,
		ResetAfter: interval,
		RetryAfter: -1,
	}

	if b.limiter.AllowN(now, 1) {
		res.Allowed = 1
	} else {
		res.RetryAfter = interval
	}
	res.Remaining = int(b.limiter.TokensAt(now))

	return res, nil
}

func (l *localLimiter) bucketFor(key string, perSecond float64, burst int, now time.Time) *bucket {
	if v, ok := l.buckets.Load(key); ok {
		return v.(*bucket) //nolint:forcetypeassert // only *bucket is stored
	}

	fresh := &bucket{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
	fresh.lastSeen.Store(now.Unix())
	v, loaded := l.buckets.LoadOrStore(key, fresh)
	if !loaded {
		l.maybeSweep(now)
	}
	return v.(*bucket) //nolint:forcetypeassert // only *bucket is stored
}

func (l *localLimiter) maybeSweep(now time.Time) {
	added := l.added.Add(1)
	due := now.Unix()-l.lastSweep.Load() >= int64(sweepInterval/time.Second)
	if added < sweepThreshold && !due {
		return
	}
	if !l.sweeping.TryLock() {
		return
	}
	defer l.sweeping.Unlock()

	l.added.Store(0)
	l.lastSweep.Store(now.Unix())

	cutoff := now.Add(-bucketIdleTTL).Unix()
	l.buckets.Range(func(k, v any) bool {
		if b, ok := v.(*bucket); ok && b.lastSeen.Load() < cutoff {
			l.buckets.Delete(k)
		}
		return true
	})
}
