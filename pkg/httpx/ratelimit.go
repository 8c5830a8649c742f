package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimit allows count requests per user per period using a Redis counter.
// A nil client or a Redis failure lets the request through.
func RateLimit(log *slog.Logger, rdb redis.Cmdable, scope string, count int, period time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rdb == nil {
				next.ServeHTTP(w, r)
				return
			}
			key := "rate_limit:" + scope + ":" + UserID(r.Context())

			n, err := rdb.Incr(r.Context(), key).Result()
			if err != nil {
				log.Warn("rate limiter unavailable", "err", err)
				next.ServeHTTP(w, r)
				return
			}
			ensureWindow(r.Context(), log, rdb, key, n, period)
			if n > int64(count) {
				WriteJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: "RATE_LIMITED", Message: "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ensureWindow gives the counter its expiry. The first hit sets it; later
// hits repair a counter left without one, which would otherwise block the
// user for good.
func ensureWindow(ctx context.Context, log *slog.Logger, rdb redis.Cmdable, key string, n int64, period time.Duration) {
	if n > 1 {
		ttl, err := rdb.TTL(ctx, key).Result()
		if err != nil {
			log.Warn("rate limit ttl check failed", "key", key, "err", err)
			return
		}
		// -1 means the key exists without an expiry.
		if ttl >= 0 || ttl == -2 {
			return
		}
	}
	if err := rdb.Expire(ctx, key, period).Err(); err != nil {
		log.Warn("rate limit expire failed", "key", key, "err", err)
	}
}
