package middleware

import (
	"strings"

	echo "github.com/labstack/echo/v4"

	"github.com/leadgrid/crawl-gateway/internal/apierr"
	"github.com/leadgrid/crawl-gateway/internal/model"
	"github.com/leadgrid/crawl-gateway/internal/token"
)

const ctxPrincipal = "principal"

// PrincipalFromCtx extracts the authenticated principal set by Auth.
func PrincipalFromCtx(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(ctxPrincipal).(model.Principal)
	return p, ok
}

type AuthConfig struct {
	Tokens    *token.Manager
	SkipPaths []string // e.g. login, health check
}

// Auth verifies the bearer credential and attaches the principal to
// the request context. Both the user status and the embedded account
// status must be active.
func Auth(cfg AuthConfig) echo.MiddlewareFunc {
	mw := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			scheme, raw, found := strings.Cut(header, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
				return apierr.Unauthorized("missing or malformed authorization header")
			}

			claims, err := cfg.Tokens.Verify(strings.TrimSpace(raw))
			if err != nil {
				return apierr.Unauthorized("invalid or expired token")
			}
			p, err := claims.Principal()
			if err != nil {
				return apierr.Unauthorized("invalid or expired token")
			}
			if p.Status != model.StatusActive || p.Account.Status != model.StatusActive {
				return apierr.Unauthorized("account is not active")
			}

			c.Set(ctxPrincipal, p)
			return next(c)
		}
	}
	return SkipPaths(mw, cfg.SkipPaths...)
}

// RequireRoles guards a route with a role allow-list. Runs after Auth.
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFromCtx(c)
			if !ok {
				return apierr.Unauthorized("authentication required")
			}
			for _, r := range roles {
				if p.Role == r {
					return next(c)
				}
			}
			return apierr.Forbidden("insufficient role")
		}
	}
}
