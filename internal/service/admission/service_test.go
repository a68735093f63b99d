package admission

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadgrid/crawl-gateway/internal/apierr"
	"github.com/leadgrid/crawl-gateway/internal/model"
)

type fakeSourcesRepo struct {
	sources map[int64]model.LeadSource
	enabled map[int64]map[int64]bool // account -> source -> enabled
}

func (f *fakeSourcesRepo) GetByID(_ context.Context, id int64) (*model.LeadSource, error) {
	s, ok := f.sources[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeSourcesRepo) IsEnabledForAccount(_ context.Context, accountID, sourceID int64) (bool, error) {
	return f.enabled[accountID][sourceID], nil
}

func (f *fakeSourcesRepo) ListEnabledForAccount(_ context.Context, accountID int64) ([]model.LeadSource, error) {
	var out []model.LeadSource
	for id, on := range f.enabled[accountID] {
		if on {
			if s, ok := f.sources[id]; ok && s.IsActive {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

type fakeJobsRepo struct {
	jobs      map[string]model.CrawlJob
	topics    []string
	createErr error
}

func newFakeJobsRepo() *fakeJobsRepo {
	return &fakeJobsRepo{jobs: make(map[string]model.CrawlJob)}
}

func (f *fakeJobsRepo) CreateWithOutbox(_ context.Context, job model.CrawlJob, topic string, _ []byte) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.jobs[job.JobID] = job
	f.topics = append(f.topics, topic)
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

func (f *fakeJobsRepo) CountForAccountSince(_ context.Context, accountID int64, since time.Time) (int64, error) {
	var n int64
	for _, j := range f.jobs {
		if j.AccountID == accountID && !j.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeJobsRepo) UpdateFields(_ context.Context, jobID string, fields map[string]any) error {
	j := f.jobs[jobID]
	if v, ok := fields["status"]; ok {
		j.Status = model.JobStatus(v.(string))
	}
	if v, ok := fields["title"]; ok {
		j.Title = v.(string)
	}
	f.jobs[jobID] = j
	return nil
}

func (f *fakeJobsRepo) Delete(_ context.Context, jobID string) error {
	delete(f.jobs, jobID)
	return nil
}

const testSchema = `{
	"properties": {
		"keyword":   {"type": "string", "minLength": 2},
		"max_pages": {"type": "number", "maximum": 100}
	},
	"required": ["keyword"]
}`

func testService(jobs *fakeJobsRepo) *Service {
	sources := &fakeSourcesRepo{
		sources: map[int64]model.LeadSource{
			1: {ID: 1, Name: "maps", IsActive: true, InputSchema: []byte(testSchema)},
			2: {ID: 2, Name: "retired", IsActive: false},
		},
		enabled: map[int64]map[int64]bool{
			3: {1: true},
		},
	}
	return New(sources, jobs, DefaultDailyJobLimit)
}

func caller() model.Principal {
	return model.Principal{ID: 7, AccountID: 3, Status: "active"}
}

func TestSubmit_CreatesPendingJob(t *testing.T) {
	jobs := newFakeJobsRepo()
	svc := testService(jobs)

	job, params, err := svc.Submit(context.Background(), caller(), SubmitRequest{
		SourceID: 1,
		Title:    "plumbers in berlin",
		Params:   map[string]any{"keyword": "plumber", "max_pages": float64(5)},
	})
	require.NoError(t, err)

	assert.Equal(t, model.JobPending, job.Status)
	assert.Equal(t, int64(3), job.AccountID)
	assert.Equal(t, int64(7), job.UserID)
	_, uerr := uuid.Parse(job.JobID)
	assert.NoError(t, uerr)

	assert.Equal(t, "plumber", params["keyword"].Str)
	require.Len(t, jobs.topics, 1)
	assert.Equal(t, JobsTopic, jobs.topics[0])
}

func TestSubmit_NoDeduplication(t *testing.T) {
	jobs := newFakeJobsRepo()
	svc := testService(jobs)

	req := SubmitRequest{SourceID: 1, Title: "same", Params: map[string]any{"keyword": "same"}}

	j1, _, err := svc.Submit(context.Background(), caller(), req)
	require.NoError(t, err)
	j2, _, err := svc.Submit(context.Background(), caller(), req)
	require.NoError(t, err)

	assert.NotEqual(t, j1.JobID, j2.JobID)
	assert.Len(t, jobs.jobs, 2)
}

func TestSubmit_SourceErrors(t *testing.T) {
	svc := testService(newFakeJobsRepo())
	ctx := context.Background()

	// unknown source
	_, _, err := svc.Submit(ctx, caller(), SubmitRequest{SourceID: 99, Params: map[string]any{}})
	e, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, 404, e.Status)

	// globally inactive source
	_, _, err = svc.Submit(ctx, caller(), SubmitRequest{SourceID: 2, Params: map[string]any{}})
	e, ok = apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, 404, e.Status)

	// active but not enabled for this account
	other := model.Principal{ID: 8, AccountID: 4}
	_, _, err = svc.Submit(ctx, other, SubmitRequest{SourceID: 1, Params: map[string]any{}})
	e, ok = apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, 403, e.Status)
}

func TestSubmit_AggregatesValidationErrors(t *testing.T) {
	svc := testService(newFakeJobsRepo())

	_, _, err := svc.Submit(context.Background(), caller(), SubmitRequest{
		SourceID: 1,
		Title:    "bad",
		Params:   map[string]any{"max_pages": float64(500)}, // keyword missing AND max_pages over bound
	})
	e, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, 400, e.Status)
	assert.Contains(t, e.Message, "keyword")
	assert.Contains(t, e.Message, "max_pages")
}

func TestSubmit_QuotaBoundary(t *testing.T) {
	jobs := newFakeJobsRepo()
	svc := testService(jobs)

	now := time.Now()
	svc.now = func() time.Time { return now }

	ctx := context.Background()
	req := SubmitRequest{SourceID: 1, Title: "t", Params: map[string]any{"keyword": "kw"}}

	// jobs 1..10 admitted
	for i := 0; i < DefaultDailyJobLimit; i++ {
		_, _, err := svc.Submit(ctx, caller(), req)
		require.NoError(t, err, "job %d should be admitted", i+1)
	}

	// 11th within the window is rejected
	_, _, err := svc.Submit(ctx, caller(), req)
	e, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, 429, e.Status)
	assert.Contains(t, e.Message, "10")

	// a different account is unaffected... but 1 is not enabled for it
	// so instead: advance past the window and the oldest jobs age out
	now = now.Add(25 * time.Hour)
	_, _, err = svc.Submit(ctx, caller(), req)
	assert.NoError(t, err)
}

func TestSubmit_PersistFailureSurfacesInternal(t *testing.T) {
	jobs := newFakeJobsRepo()
	jobs.createErr = assert.AnError
	svc := testService(jobs)

	_, _, err := svc.Submit(context.Background(), caller(), SubmitRequest{
		SourceID: 1, Title: "t", Params: map[string]any{"keyword": "kw"},
	})
	e, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, 500, e.Status)
	assert.Empty(t, jobs.jobs)
}
