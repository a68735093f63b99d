package httpapi

import (
	"net/http"

	echo "github.com/labstack/echo/v4"

	"github.com/leadgrid/crawl-gateway/internal/apierr"
	"github.com/leadgrid/crawl-gateway/internal/httpapi/middleware"
	"github.com/leadgrid/crawl-gateway/internal/service/admission"
	"github.com/leadgrid/crawl-gateway/internal/service/lifecycle"
)

func listJobsHandler(svc *lifecycle.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, ok := middleware.PrincipalFromCtx(c)
		if !ok {
			return apierr.Unauthorized("authentication required")
		}

		jobs, err := svc.List(c.Request().Context(), p.ID)
		if err != nil {
			return err
		}

		dtos := make([]jobDTO, 0, len(jobs))
		for i := range jobs {
			dtos = append(dtos, newJobDTO(&jobs[i]))
		}
		return respond(c, http.StatusOK, dtos)
	}
}

func createJobHandler(svc *admission.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, ok := middleware.PrincipalFromCtx(c)
		if !ok {
			return apierr.Unauthorized("authentication required")
		}

		var req admission.SubmitRequest
		if err := c.Bind(&req); err != nil {
			return apierr.BadRequest("malformed request body")
		}
		if req.SourceID <= 0 {
			return apierr.BadRequest("source_id is required")
		}

		job, params, err := svc.Submit(c.Request().Context(), p, req)
		if err != nil {
			return err
		}

		// echo the validated, typed parameter values rather than the
		// serialized bag the client sent
		dto := newJobDTO(job)
		return c.JSON(http.StatusCreated, map[string]any{
			"success": true,
			"data": map[string]any{
				"job_id":      dto.JobID,
				"account_id":  dto.AccountID,
				"user_id":     dto.UserID,
				"source_id":   dto.SourceID,
				"title":       dto.Title,
				"description": dto.Description,
				"params":      params,
				"status":      dto.Status,
				"created_at":  dto.CreatedAt,
				"updated_at":  dto.UpdatedAt,
			},
		})
	}
}

func updateJobHandler(svc *lifecycle.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, ok := middleware.PrincipalFromCtx(c)
		if !ok {
			return apierr.Unauthorized("authentication required")
		}

		var req lifecycle.UpdateRequest
		if err := c.Bind(&req); err != nil {
			return apierr.BadRequest("malformed request body")
		}

		job, err := svc.Update(c.Request().Context(), p, c.Param("id"), req)
		if err != nil {
			return err
		}
		return respond(c, http.StatusOK, newJobDTO(job))
	}
}

func deleteJobHandler(svc *lifecycle.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, ok := middleware.PrincipalFromCtx(c)
		if !ok {
			return apierr.Unauthorized("authentication required")
		}

		if err := svc.Delete(c.Request().Context(), p, c.Param("id")); err != nil {
			return err
		}
		return respond(c, http.StatusOK, map[string]any{"deleted": true})
	}
}
