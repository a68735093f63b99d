package middleware

import (
	"time"

	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/leadgrid/crawl-gateway/internal/audit"
	"github.com/leadgrid/crawl-gateway/internal/logger"
	"github.com/leadgrid/crawl-gateway/internal/model"
)

type LoggingConfig struct {
	Recorder  *audit.Recorder // nil disables the usage-event feed
	SkipPaths []string
}

// Logging runs after the auth stage so the log line and the usage
// event can carry the tenant identity. The handler's error still
// propagates to the pipeline boundary; the status is read back from
// the response after the error handler has committed it.
func Logging(cfg LoggingConfig) echo.MiddlewareFunc {
	mw := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let the error handler write the response so the
				// logged status is the one the client saw
				c.Error(err)
			}

			latency := time.Since(start)
			status := c.Response().Status
			p, _ := PrincipalFromCtx(c)

			logger.L().Info("request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", latency),
				zap.Int64("account_id", p.AccountID),
				zap.Int64("user_id", p.ID),
				zap.String("client_ip", c.RealIP()),
			)

			if cfg.Recorder != nil {
				cfg.Recorder.Record(model.UsageEvent{
					AccountID: p.AccountID,
					UserID:    p.ID,
					Method:    c.Request().Method,
					Path:      c.Request().URL.Path,
					Status:    status,
					LatencyMs: latency.Milliseconds(),
					ClientIP:  c.RealIP(),
				})
			}
			return nil
		}
	}
	return SkipPaths(mw, cfg.SkipPaths...)
}
