package httpapi

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"

	"github.com/leadgrid/crawl-gateway/internal/apierr"
	"github.com/leadgrid/crawl-gateway/internal/httpapi/middleware"
	"github.com/leadgrid/crawl-gateway/internal/service/auth"
)

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func loginHandler(authSvc *auth.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginReq
		if err := c.Bind(&req); err != nil {
			return apierr.BadRequest("malformed request body")
		}
		req.Email = strings.TrimSpace(req.Email)
		if req.Email == "" || req.Password == "" {
			return apierr.BadRequest("email and password are required")
		}

		res, err := authSvc.Login(c.Request().Context(), req.Email, req.Password)
		if err != nil {
			return err
		}

		return respond(c, http.StatusOK, map[string]any{
			"user":          newUserDTO(res.User),
			"account":       res.Account.Summary(),
			"token":         res.Token,
			"refresh_token": res.RefreshToken,
			"expires_in":    res.ExpiresIn,
		})
	}
}

func refreshHandler(authSvc *auth.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, ok := middleware.PrincipalFromCtx(c)
		if !ok {
			return apierr.Unauthorized("authentication required")
		}

		access, expiresIn, err := authSvc.Refresh(p)
		if err != nil {
			return err
		}

		return respond(c, http.StatusOK, map[string]any{
			"token":      access,
			"expires_in": expiresIn,
		})
	}
}
