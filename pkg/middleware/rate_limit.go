package middleware

import (
	"net"
	"net/http"
	"time"

	apperrors "caravan/pkg/errors"
	"caravan/pkg/logger"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// KeyExtractor picks the bucket a request is counted against.
type KeyExtractor func(r *http.Request) string

// UserRateLimiter keeps one token bucket per caller. Idle buckets expire
// after a few windows.
type UserRateLimiter struct {
	limiters  *gocache.Cache
	limit     rate.Limit
	burst     int
	extractor KeyExtractor
	log       *logger.Logger
}

// NewUserRateLimiter allows requests per window for every key.
func NewUserRateLimiter(requests int, window time.Duration, extractor KeyExtractor, log *logger.Logger) *UserRateLimiter {
	if extractor == nil {
		extractor = DefaultKeyExtractor
	}
	idle := 3 * window
	if idle < time.Minute {
		idle = time.Minute
	}
	return &UserRateLimiter{
		limiters:  gocache.New(idle, 2*idle),
		limit:     rate.Every(window / time.Duration(max(requests, 1))),
		burst:     max(requests, 1),
		extractor: extractor,
		log:       log,
	}
}

func (rl *UserRateLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	return rl.limiterFor(key).Allow()
}

func (rl *UserRateLimiter) limiterFor(key string) *rate.Limiter {
	if v, found := rl.limiters.Get(key); found {
		rl.limiters.SetDefault(key, v)
		return v.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(rl.limit, rl.burst)
	if err := rl.limiters.Add(key, limiter, gocache.DefaultExpiration); err != nil {
		// lost the race with a concurrent request for the same key
		if v, found := rl.limiters.Get(key); found {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

// Stop drops all buckets.
func (rl *UserRateLimiter) Stop() {
	rl.limiters.Flush()
}

func UserRateLimit(limiter *UserRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := limiter.extractor(r)

			if !limiter.Allow(key) {
				rejectRateLimited(w, limiter.log, r, key)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(w http.ResponseWriter, log *logger.Logger, r *http.Request, key string) {
	log.Warn("Rate limit exceeded",
		"request_id", RequestIDFromContext(r.Context()),
		"key", key,
		"path", r.URL.Path,
	)

	w.Header().Set("Retry-After", "1")
	err := apperrors.New("RATE_LIMITED", "Rate limit exceeded", http.StatusTooManyRequests)
	if writeErr := apperrors.WriteError(w, err); writeErr != nil {
		log.Error("failed to write error response", "middleware", "UserRateLimit", "error", writeErr)
	}
}

// DefaultKeyExtractor counts authenticated callers by user id and
// everyone else by remote address.
func DefaultKeyExtractor(r *http.Request) string {
	if identity, ok := IdentityFromContext(r.Context()); ok && identity.UserID != "" {
		return "user:" + identity.UserID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "addr:" + r.RemoteAddr
	}
	return "addr:" + host
}
