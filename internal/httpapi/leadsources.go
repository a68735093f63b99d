package httpapi

import (
	"net/http"

	echo "github.com/labstack/echo/v4"

	"github.com/leadgrid/crawl-gateway/internal/apierr"
	"github.com/leadgrid/crawl-gateway/internal/httpapi/middleware"
	"github.com/leadgrid/crawl-gateway/internal/repository"
	"github.com/leadgrid/crawl-gateway/internal/schema"
)

type sourceDTO struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Params      []schema.Param `json:"params"`
}

// listSourcesHandler returns the sources enabled for the caller's
// account, each schema flattened into a parameter list the client can
// render as a form.
func listSourcesHandler(sources repository.LeadSourcesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, ok := middleware.PrincipalFromCtx(c)
		if !ok {
			return apierr.Unauthorized("authentication required")
		}

		enabled, err := sources.ListEnabledForAccount(c.Request().Context(), p.AccountID)
		if err != nil {
			return err
		}

		dtos := make([]sourceDTO, 0, len(enabled))
		for _, src := range enabled {
			sch, err := schema.Parse(src.InputSchema)
			if err != nil {
				return err
			}
			dtos = append(dtos, sourceDTO{
				ID:          src.ID,
				Name:        src.Name,
				Description: src.Description.String,
				Params:      sch.Flatten(),
			})
		}
		return respond(c, http.StatusOK, dtos)
	}
}
