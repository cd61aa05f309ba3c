package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/recipebox/recipebox/internal/auth"
	"github.com/recipebox/recipebox/internal/cache"
	"github.com/recipebox/recipebox/internal/metrics"
	"github.com/recipebox/recipebox/internal/model"
)

// RateLimiter runs token bucket checks. *cache.Cache satisfies it.
type RateLimiter interface {
	CheckAPIRateLimit(ctx context.Context, keyID string, ratePerMinute, burst int) (*cache.RateLimitResult, error)
	CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*cache.RateLimitResult, error)
}

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter RateLimiter
	Metrics metrics.Recorder
	// Per credential limits on authenticated routes.
	APIEnabled bool
	// Per IP limits on public routes such as registration and login.
	PublicEnabled bool
	PublicRPS     int
	PublicBurst   int
}

func (cfg RateLimitConfig) recorder() metrics.Recorder {
	if cfg.Metrics == nil {
		return metrics.NewNoop()
	}
	return cfg.Metrics
}

// RateLimitAPI returns middleware that rate limits authenticated requests.
// API keys are limited per key and tier; session tokens per user on the
// free tier. Must be applied after Auth.
func RateLimitAPI(cfg RateLimitConfig) func(http.Handler) http.Handler {
	recorder := cfg.recorder()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.APIEnabled || cfg.Limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			authCtx := auth.AuthFromContext(r.Context())
			if authCtx == nil {
				next.ServeHTTP(w, r)
				return
			}

			tier, ok := model.TierConfigs[authCtx.RateLimitTier]
			if !ok {
				tier = model.TierConfigs[model.TierFree]
			}
			if tier.RequestsPerMinute == 0 {
				next.ServeHTTP(w, r)
				return
			}

			bucket := authCtx.KeyID
			if authCtx.Method == model.AuthMethodToken {
				bucket = "user:" + authCtx.UserID
			}

			result, err := cfg.Limiter.CheckAPIRateLimit(r.Context(), bucket, tier.RequestsPerMinute, tier.Burst)
			if err != nil {
				cfg.Logger.Error("rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("user_id", authCtx.UserID),
				)
				next.ServeHTTP(w, r)
				return
			}
			if result.FailedOpen {
				cfg.Logger.Warn("rate limiter unavailable, allowing request",
					slog.String("type", "api"),
					slog.String("request_id", GetRequestID(r.Context())),
				)
			}

			setRateLimitHeaders(w, tier.RequestsPerMinute, result.Remaining, result.ResetAt)

			if !result.Allowed {
				recorder.IncRateLimited()
				cfg.Logger.Warn("rate limit exceeded",
					slog.String("type", "api"),
					slog.String("user_id", authCtx.UserID),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int64("retry_after_seconds", int64(result.RetryAfter.Seconds())),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeRateLimitError(w, result.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitIP returns middleware that rate limits requests per client IP.
// Used on the public user routes.
func RateLimitIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	recorder := cfg.recorder()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.PublicEnabled || cfg.Limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := getClientIP(r)

			result, err := cfg.Limiter.CheckIPRateLimit(r.Context(), ip, cfg.PublicRPS, cfg.PublicBurst)
			if err != nil {
				cfg.Logger.Error("IP rate limit check failed", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}
			if result.FailedOpen {
				cfg.Logger.Warn("rate limiter unavailable, allowing request",
					slog.String("type", "public"),
					slog.String("request_id", GetRequestID(r.Context())),
				)
			}

			if !result.Allowed {
				recorder.IncRateLimited()
				cfg.Logger.Warn("rate limit exceeded",
					slog.String("type", "public"),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int64("retry_after_seconds", int64(result.RetryAfter.Seconds())),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeRateLimitError(w, result.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, limit int, remaining int64, resetAt time.Time) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

// writeRateLimitError writes a 429 Too Many Requests response.
func writeRateLimitError(w http.ResponseWriter, retryAfter time.Duration) {
	seconds := int(retryAfter.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	writeError(w, http.StatusTooManyRequests, "RATE_LIMITED",
		fmt.Sprintf("Request was throttled. Expected available in %d seconds.", seconds))
}

// getClientIP returns the first X-Forwarded-For entry, then X-Real-IP,
// then the host part of RemoteAddr.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
