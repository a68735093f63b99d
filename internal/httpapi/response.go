package httpapi

import (
	"encoding/json"
	"time"

	echo "github.com/labstack/echo/v4"

	"github.com/leadgrid/crawl-gateway/internal/model"
)

// All responses share the {success, message, data} envelope. Error
// responses are built centrally in the error handler; handlers only
// produce the success shape.
func respond(c echo.Context, status int, data any) error {
	return c.JSON(status, map[string]any{
		"success": true,
		"data":    data,
	})
}

type userDTO struct {
	ID        int64      `json:"id"`
	AccountID int64      `json:"account_id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

func newUserDTO(u *model.User) userDTO {
	dto := userDTO{
		ID:        u.ID,
		AccountID: u.AccountID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Status:    u.Status,
	}
	if u.LastLogin.Valid {
		t := u.LastLogin.Time
		dto.LastLogin = &t
	}
	return dto
}

type jobDTO struct {
	JobID          string          `json:"job_id"`
	AccountID      int64           `json:"account_id"`
	UserID         int64           `json:"user_id"`
	SourceID       int64           `json:"source_id"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	Params         json.RawMessage `json:"params"`
	Status         string          `json:"status"`
	StartTime      *time.Time      `json:"start_time,omitempty"`
	EndTime        *time.Time      `json:"end_time,omitempty"`
	RecordsScraped *int64          `json:"records_scraped,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func newJobDTO(j *model.CrawlJob) jobDTO {
	dto := jobDTO{
		JobID:     j.JobID,
		AccountID: j.AccountID,
		UserID:    j.UserID,
		SourceID:  j.SourceID,
		Title:     j.Title,
		Params:    json.RawMessage(j.Params),
		Status:    j.Status.String(),
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	if j.Description.Valid {
		dto.Description = j.Description.String
	}
	if j.StartTime.Valid {
		t := j.StartTime.Time
		dto.StartTime = &t
	}
	if j.EndTime.Valid {
		t := j.EndTime.Time
		dto.EndTime = &t
	}
	if j.RecordsScraped.Valid {
		n := j.RecordsScraped.Int64
		dto.RecordsScraped = &n
	}
	return dto
}
