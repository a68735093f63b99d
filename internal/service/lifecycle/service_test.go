package lifecycle

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadgrid/crawl-gateway/internal/apierr"
	"github.com/leadgrid/crawl-gateway/internal/model"
)

type fakeJobsRepo struct {
	jobs map[string]model.CrawlJob
}

func newFakeJobsRepo() *fakeJobsRepo {
	return &fakeJobsRepo{jobs: make(map[string]model.CrawlJob)}
}

func (f *fakeJobsRepo) CreateWithOutbox(_ context.Context, job model.CrawlJob, _ string, _ []byte) error {
	f.jobs[job.JobID] = job
	return nil
}

func (f *fakeJobsRepo) GetByJobID(_ context.Context, jobID string) (*model.CrawlJob, error) {
	j, ok := f.jobs[jobID]
	if !ok {
		return nil, nil
	}
	return &j, nil
}

func (f *fakeJobsRepo) ListByUser(_ context.Context, userID int64) ([]model.CrawlJob, error) {
	var out []model.CrawlJob
	for _, j := range f.jobs {
		if j.UserID == userID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (f *fakeJobsRepo) CountForAccountSince(_ context.Context, _ int64, _ time.Time) (int64, error) {
	return int64(len(f.jobs)), nil
}

func (f *fakeJobsRepo) UpdateFields(_ context.Context, jobID string, fields map[string]any) error {
	j, ok := f.jobs[jobID]
	if !ok {
		return sql.ErrNoRows
	}
	for col, v := range fields {
		switch col {
		case "status":
			j.Status = model.JobStatus(v.(string))
		case "title":
			j.Title = v.(string)
		case "description":
			j.Description = sql.NullString{String: v.(string), Valid: true}
		case "start_time":
			j.StartTime = sql.NullTime{Time: v.(time.Time), Valid: true}
		case "end_time":
			j.EndTime = sql.NullTime{Time: v.(time.Time), Valid: true}
		case "records_scraped":
			j.RecordsScraped = sql.NullInt64{Int64: v.(int64), Valid: true}
		}
	}
	j.UpdatedAt = time.Now()
	f.jobs[jobID] = j
	return nil
}

func (f *fakeJobsRepo) Delete(_ context.Context, jobID string) error {
	if _, ok := f.jobs[jobID]; !ok {
		return sql.ErrNoRows
	}
	delete(f.jobs, jobID)
	return nil
}

func seedJob(repo *fakeJobsRepo, userID int64) model.CrawlJob {
	job := model.CrawlJob{
		JobID:     uuid.NewString(),
		AccountID: 3,
		UserID:    userID,
		SourceID:  1,
		Title:     "seeded",
		Status:    model.JobPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	repo.jobs[job.JobID] = job
	return job
}

func owner() model.Principal {
	return model.Principal{ID: 7, AccountID: 3}
}

func TestUpdate_PartialFields(t *testing.T) {
	repo := newFakeJobsRepo()
	job := seedJob(repo, 7)
	svc := New(repo)

	status := "running"
	start := time.Now().Truncate(time.Second)
	got, err := svc.Update(context.Background(), owner(), job.JobID, UpdateRequest{
		Status:    &status,
		StartTime: &start,
	})
	require.NoError(t, err)

	assert.Equal(t, model.JobRunning, got.Status)
	require.True(t, got.StartTime.Valid)
	assert.True(t, got.StartTime.Time.Equal(start))
	// untouched fields stay as seeded
	assert.Equal(t, "seeded", got.Title)
	assert.False(t, got.EndTime.Valid)
}

func TestUpdate_InvalidStatus(t *testing.T) {
	repo := newFakeJobsRepo()
	job := seedJob(repo, 7)
	svc := New(repo)

	status := "paused"
	_, err := svc.Update(context.Background(), owner(), job.JobID, UpdateRequest{Status: &status})
	e, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, 400, e.Status)
	assert.Contains(t, e.Message, "paused")
}

func TestUpdate_MalformedID(t *testing.T) {
	svc := New(newFakeJobsRepo())

	_, err := svc.Update(context.Background(), owner(), "not-a-uuid", UpdateRequest{})
	e, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, 400, e.Status)
	assert.Equal(t, "invalid job id format", e.Message)
}

func TestUpdate_NotFound(t *testing.T) {
	svc := New(newFakeJobsRepo())

	_, err := svc.Update(context.Background(), owner(), uuid.NewString(), UpdateRequest{})
	e, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, 404, e.Status)
}

func TestUpdate_NonOwnerForbidden(t *testing.T) {
	repo := newFakeJobsRepo()
	job := seedJob(repo, 7)
	svc := New(repo)

	stranger := model.Principal{ID: 8, AccountID: 3}
	title := "hijacked"
	_, err := svc.Update(context.Background(), stranger, job.JobID, UpdateRequest{Title: &title})
	e, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, 403, e.Status)
	assert.Equal(t, "seeded", repo.jobs[job.JobID].Title)
}

func TestDelete(t *testing.T) {
	repo := newFakeJobsRepo()
	job := seedJob(repo, 7)
	svc := New(repo)

	require.NoError(t, svc.Delete(context.Background(), owner(), job.JobID))
	assert.Empty(t, repo.jobs)

	// a second delete reports not found
	err := svc.Delete(context.Background(), owner(), job.JobID)
	e, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, 404, e.Status)
}

func TestList_ScopedToUser(t *testing.T) {
	repo := newFakeJobsRepo()
	seedJob(repo, 7)
	seedJob(repo, 7)
	seedJob(repo, 8)
	svc := New(repo)

	jobs, err := svc.List(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
	for _, j := range jobs {
		assert.Equal(t, int64(7), j.UserID)
	}
}
