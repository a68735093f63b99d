// Package httpapi assembles the gateway: repositories, services, the
// stage pipeline, and the route table.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/jmoiron/sqlx"
	echo "github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/leadgrid/crawl-gateway/internal/apierr"
	"github.com/leadgrid/crawl-gateway/internal/audit"
	"github.com/leadgrid/crawl-gateway/internal/config"
	"github.com/leadgrid/crawl-gateway/internal/httpapi/middleware"
	"github.com/leadgrid/crawl-gateway/internal/logger"
	"github.com/leadgrid/crawl-gateway/internal/metrics"
	"github.com/leadgrid/crawl-gateway/internal/ratelimit"
	"github.com/leadgrid/crawl-gateway/internal/repository"
	"github.com/leadgrid/crawl-gateway/internal/service/admission"
	"github.com/leadgrid/crawl-gateway/internal/service/auth"
	"github.com/leadgrid/crawl-gateway/internal/service/lifecycle"
	"github.com/leadgrid/crawl-gateway/internal/token"
)

type Server struct {
	e        *echo.Echo
	recorder *audit.Recorder
	cancel   context.CancelFunc
}

// deps is the seam between storage and routing; NewServer fills it
// from live connections, tests fill it with fakes.
type deps struct {
	users    repository.UsersRepository
	accounts repository.AccountsRepository
	sources  repository.LeadSourcesRepository
	jobs     repository.CrawlJobsRepository
	events   repository.UsageEventsRepository // nil disables the usage report
	store    ratelimit.Store
	tokens   *token.Manager
	recorder *audit.Recorder // nil disables the usage feed
}

// NewServer wires everything from config and live connections. A nil
// Redis client falls back to the in-process rate-limit counter; a nil
// ClickHouse handle disables the usage feed and the usage report.
func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rds *redis.Client) *Server {
	outboxRepo := repository.NewOutboxRepository(mysqlDB)

	d := deps{
		users:    repository.NewUsersRepository(mysqlDB),
		accounts: repository.NewAccountsRepository(mysqlDB),
		sources:  repository.NewLeadSourcesRepository(mysqlDB),
		jobs:     repository.NewCrawlJobsRepository(mysqlDB, outboxRepo),
		tokens: token.NewManager(token.Config{
			Secret:     cfg.Auth.Secret,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			AccessTTL:  cfg.Auth.AccessTTL,
			RefreshTTL: cfg.Auth.RefreshTTL,
		}),
	}

	if rds != nil {
		d.store = ratelimit.NewRedisStore(rds)
	} else {
		d.store = ratelimit.NewMemoryStore()
	}

	if clickhouseDB != nil {
		d.events = repository.NewUsageEventsRepository(clickhouseDB)
		d.recorder = audit.NewRecorder(d.events, cfg.Audit)
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	return newServerWithDeps(cfg, d)
}

func newServerWithDeps(cfg config.Config, d deps) *Server {
	authSvc := auth.New(d.users, d.accounts, d.tokens)
	admissionSvc := admission.New(d.sources, d.jobs, cfg.Quota.MaxJobsPerDay)
	lifecycleSvc := lifecycle.New(d.jobs)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = errorHandler

	// pipeline: recover boundary, then CORS -> auth -> logging -> rate-limit
	authSkip := []string{"/auth/login", "/healthz", "/metrics"}
	opsSkip := []string{"/healthz", "/metrics"}
	e.Use(middleware.Chain(
		middleware.Stage{Name: "recover", Func: middleware.Recover()},
		middleware.Stage{Name: "cors", Func: middleware.CORS(middleware.CORSConfig{
			Origins:           cfg.CORS.Origins,
			Methods:           cfg.CORS.Methods,
			Headers:           cfg.CORS.Headers,
			ExposeHeaders:     cfg.CORS.ExposeHeaders,
			Credentials:       cfg.CORS.Credentials,
			MaxAge:            cfg.CORS.MaxAge,
			PreflightContinue: cfg.CORS.PreflightContinue,
		})},
		middleware.Stage{Name: "auth", Func: middleware.Auth(middleware.AuthConfig{
			Tokens:    d.tokens,
			SkipPaths: authSkip,
		})},
		middleware.Stage{Name: "logging", Func: middleware.Logging(middleware.LoggingConfig{
			Recorder:  d.recorder,
			SkipPaths: opsSkip,
		})},
		middleware.Stage{Name: "ratelimit", Func: middleware.RateLimit(middleware.RateLimitConfig{
			Store:       d.store,
			MaxRequests: cfg.RateLimit.MaxRequests,
			Window:      cfg.RateLimit.Window,
			KeyBy:       cfg.RateLimit.KeyBy,
			SkipPaths:   append(opsSkip, cfg.RateLimit.SkipPaths...),
		})},
	)...)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	e.POST("/auth/login", loginHandler(authSvc))
	e.POST("/auth/refresh", refreshHandler(authSvc))

	e.GET("/crawl-jobs", listJobsHandler(lifecycleSvc))
	e.POST("/crawl-jobs", createJobHandler(admissionSvc))
	e.PUT("/crawl-jobs/:id", updateJobHandler(lifecycleSvc))
	e.DELETE("/crawl-jobs/:id", deleteJobHandler(lifecycleSvc))

	e.GET("/lead-sources", listSourcesHandler(d.sources))

	if d.events != nil {
		e.GET("/reports/usage", usageReportHandler(d.events), middleware.RequireRoles("admin"))
	}

	return &Server{e: e, recorder: d.recorder}
}

// errorHandler is the single conversion point from typed errors to the
// response envelope. Route handlers never serialize errors themselves.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	if e, ok := apierr.As(err); ok {
		body := map[string]any{"success": false, "message": e.Message}
		for k, v := range e.Extra {
			body[k] = v
		}
		_ = c.JSON(e.Status, body)
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		_ = c.JSON(he.Code, map[string]any{"success": false, "message": msg})
		return
	}

	logger.L().Error("unhandled error",
		zap.String("path", c.Request().URL.Path),
		zap.Error(err),
	)
	_ = c.JSON(http.StatusInternalServerError, map[string]any{
		"success": false,
		"message": "internal server error",
	})
}

func (s *Server) Start(addr string) error {
	if s.recorder != nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		go s.recorder.Run(ctx)
	}
	logger.L().Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.e.Shutdown(ctx)
	if s.cancel != nil {
		s.cancel()
		s.recorder.Wait()
	}
	return err
}
