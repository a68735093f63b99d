package middleware

import (
	"strconv"
	"time"

	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/leadgrid/crawl-gateway/internal/apierr"
	"github.com/leadgrid/crawl-gateway/internal/logger"
	"github.com/leadgrid/crawl-gateway/internal/metrics"
	"github.com/leadgrid/crawl-gateway/internal/ratelimit"
)

type RateLimitConfig struct {
	Store       ratelimit.Store
	MaxRequests int
	Window      time.Duration
	KeyBy       string // "ip" (default) or "account"
	SkipPaths   []string
}

// RateLimit applies a fixed-window limit per (client identity, path).
// Every response within the window carries the X-RateLimit-* headers;
// the first request past the threshold gets a 429 with retry_after.
// Store failures fail open: a broken counter should not take the API
// down with it.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	mw := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.MaxRequests <= 0 || cfg.Store == nil {
				return next(c)
			}

			key := limitKey(c, cfg.KeyBy)
			entry, err := cfg.Store.Incr(c.Request().Context(), key, cfg.Window)
			if err != nil {
				logger.L().Warn("rate limit store unavailable", zap.Error(err))
				return next(c)
			}

			remaining := int64(cfg.MaxRequests) - entry.Count
			if remaining < 0 {
				remaining = 0
			}
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(entry.Reset.Unix(), 10))

			if entry.Count > int64(cfg.MaxRequests) {
				metrics.RateLimitedTotal.WithLabelValues(cfg.KeyBy).Inc()
				retryAfter := int64(time.Until(entry.Reset).Seconds()) + 1
				if retryAfter < 1 {
					retryAfter = 1
				}
				return apierr.TooManyRequests("rate limit exceeded", retryAfter)
			}
			return next(c)
		}
	}
	return SkipPaths(mw, cfg.SkipPaths...)
}

// limitKey derives the counter key. Account keying falls back to the
// client address when the request has no principal yet.
func limitKey(c echo.Context, keyBy string) string {
	identity := c.RealIP()
	if keyBy == "account" {
		if p, ok := PrincipalFromCtx(c); ok {
			identity = "acct:" + strconv.FormatInt(p.AccountID, 10)
		}
	}
	return identity + ":" + c.Request().URL.Path
}
