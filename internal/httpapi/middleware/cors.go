package middleware

import (
	"net/http"
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v4"
)

type CORSConfig struct {
	Origins           []string // explicit list, or ["*"] to allow all
	OriginFunc        func(origin string) bool
	Methods           []string
	Headers           []string
	ExposeHeaders     []string
	Credentials       bool
	MaxAge            int // seconds
	PreflightContinue bool
}

// CORS implements the cross-origin policy stage. A disallowed origin
// is not an error here: the stage sets no CORS headers and lets the
// browser enforce the block client-side.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	allowAll := false
	allowed := make(map[string]struct{}, len(cfg.Origins))
	for _, o := range cfg.Origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}

	originAllowed := func(origin string) bool {
		if cfg.OriginFunc != nil {
			return cfg.OriginFunc(origin)
		}
		if allowAll {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}

	methods := strings.Join(cfg.Methods, ",")
	headers := strings.Join(cfg.Headers, ",")
	expose := strings.Join(cfg.ExposeHeaders, ",")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			origin := c.Request().Header.Get("Origin")
			h := c.Response().Header()
			preflight := c.Request().Method == http.MethodOptions

			if origin == "" || !originAllowed(origin) {
				if preflight {
					return c.NoContent(http.StatusNoContent)
				}
				return next(c)
			}

			allowOrigin := origin
			if allowAll && !cfg.Credentials {
				allowOrigin = "*"
			}
			h.Set("Access-Control-Allow-Origin", allowOrigin)
			if cfg.Credentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if expose != "" {
				h.Set("Access-Control-Expose-Headers", expose)
			}

			if !preflight {
				return next(c)
			}

			h.Add("Vary", "Origin")
			if methods != "" {
				h.Set("Access-Control-Allow-Methods", methods)
			}
			if headers != "" {
				h.Set("Access-Control-Allow-Headers", headers)
			} else if req := c.Request().Header.Get("Access-Control-Request-Headers"); req != "" {
				h.Set("Access-Control-Allow-Headers", req)
			}
			if cfg.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
			}

			if cfg.PreflightContinue {
				return next(c)
			}
			return c.NoContent(http.StatusNoContent)
		}
	}
}
