// Package middleware holds the gateway's request pipeline: named
// stages applied in declaration order, each able to halt the chain,
// mutate the request context, or pass control on.
package middleware

import (
	"fmt"

	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/leadgrid/crawl-gateway/internal/apierr"
	"github.com/leadgrid/crawl-gateway/internal/logger"
)

// Stage is one named unit of the pipeline.
type Stage struct {
	Name string
	Func echo.MiddlewareFunc
}

// Chain flattens stages into the middleware list echo applies in
// order. A stage halts the chain by returning an error without calling
// next; nothing downstream runs after a halt.
func Chain(stages ...Stage) []echo.MiddlewareFunc {
	fns := make([]echo.MiddlewareFunc, 0, len(stages))
	for _, s := range stages {
		fns = append(fns, s.Func)
	}
	return fns
}

// SkipPaths exempts the wrapped stage for exact path matches.
func SkipPaths(mw echo.MiddlewareFunc, paths ...string) echo.MiddlewareFunc {
	if len(paths) == 0 {
		return mw
	}
	skip := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		skip[p] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		inner := mw(next)
		return func(c echo.Context) error {
			if _, ok := skip[c.Request().URL.Path]; ok {
				return next(c)
			}
			return inner(c)
		}
	}
}

// Recover is the pipeline boundary: a panic in any downstream stage or
// handler becomes a structured 500, never a crashed process.
func Recover() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.L().Error("panic recovered",
						zap.String("path", c.Request().URL.Path),
						zap.String("panic", fmt.Sprint(r)),
					)
					err = apierr.Internal("internal server error")
				}
			}()
			return next(c)
		}
	}
}
