package httpapi

import (
	"net/http"
	"strconv"
	"time"

	echo "github.com/labstack/echo/v4"

	"github.com/leadgrid/crawl-gateway/internal/apierr"
	"github.com/leadgrid/crawl-gateway/internal/httpapi/middleware"
	"github.com/leadgrid/crawl-gateway/internal/model"
	"github.com/leadgrid/crawl-gateway/internal/repository"
)

type usageEventDTO struct {
	EventID   string    `json:"event_id"`
	UserID    int64     `json:"user_id"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Status    int       `json:"status"`
	LatencyMs int64     `json:"latency_ms"`
	ClientIP  string    `json:"client_ip"`
	CreatedAt time.Time `json:"created_at"`
}

// usageReportHandler reads the ClickHouse usage feed for the caller's
// account. Admin-only; the role gate is applied at route registration.
func usageReportHandler(events repository.UsageEventsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, ok := middleware.PrincipalFromCtx(c)
		if !ok {
			return apierr.Unauthorized("authentication required")
		}

		limit, _ := strconv.Atoi(c.QueryParam("limit"))
		offset, _ := strconv.Atoi(c.QueryParam("offset"))

		rows, err := events.ListByAccount(c.Request().Context(), p.AccountID, limit, offset)
		if err != nil {
			return err
		}

		dtos := make([]usageEventDTO, 0, len(rows))
		for _, ev := range rows {
			dtos = append(dtos, newUsageEventDTO(ev))
		}
		return respond(c, http.StatusOK, dtos)
	}
}

func newUsageEventDTO(ev model.UsageEvent) usageEventDTO {
	return usageEventDTO{
		EventID:   ev.EventID,
		UserID:    ev.UserID,
		Method:    ev.Method,
		Path:      ev.Path,
		Status:    ev.Status,
		LatencyMs: ev.LatencyMs,
		ClientIP:  ev.ClientIP,
		CreatedAt: ev.CreatedAt,
	}
}
