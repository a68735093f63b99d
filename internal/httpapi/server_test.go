package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadgrid/crawl-gateway/internal/config"
	"github.com/leadgrid/crawl-gateway/internal/model"
	"github.com/leadgrid/crawl-gateway/internal/ratelimit"
	"github.com/leadgrid/crawl-gateway/internal/token"
)

// ---- fakes ----

type fakeUsersRepo struct {
	byEmail map[string]*model.User
}

func (f *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return f.byEmail[email], nil
}

func (f *fakeUsersRepo) UpdateLastLogin(_ context.Context, userID int64, at time.Time) error {
	for _, u := range f.byEmail {
		if u.ID == userID {
			u.LastLogin = sql.NullTime{Time: at, Valid: true}
		}
	}
	return nil
}

type fakeAccountsRepo struct {
	byID map[int64]*model.Account
}

func (f *fakeAccountsRepo) GetByID(_ context.Context, id int64) (*model.Account, error) {
	return f.byID[id], nil
}

type fakeSourcesRepo struct {
	sources map[int64]model.LeadSource
	enabled map[int64]map[int64]bool
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
	jobs map[string]model.CrawlJob
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

// ---- harness ----

const mapsSchema = `{
	"properties": {
		"keyword":  {"type": "string", "minLength": 2},
		"location": {"type": "string"}
	},
	"required": ["keyword"]
}`

func newTestServer(t *testing.T) *Server {
	t.Helper()

	hash, err := token.HashPassword("correct horse")
	require.NoError(t, err)

	users := &fakeUsersRepo{byEmail: map[string]*model.User{
		"dev@acme.test": {
			ID: 7, AccountID: 3, Name: "Dev", Email: "dev@acme.test",
			PasswordHash: hash, Role: "member", Status: "active",
		},
	}}
	accounts := &fakeAccountsRepo{byID: map[int64]*model.Account{
		3: {ID: 3, Name: "Acme", Domain: sql.NullString{String: "acme.test", Valid: true}, Status: "active"},
	}}
	sources := &fakeSourcesRepo{
		sources: map[int64]model.LeadSource{
			1: {ID: 1, Name: "google-maps", IsActive: true, InputSchema: []byte(mapsSchema)},
		},
		enabled: map[int64]map[int64]bool{3: {1: true}},
	}

	cfg := config.Config{
		Auth: config.AuthConfig{
			Secret:   "test-secret",
			Issuer:   "crawl-gateway",
			Audience: "crawl-gateway-users",
		},
		RateLimit: config.RateLimitConfig{MaxRequests: 100, Window: time.Minute, KeyBy: "ip"},
		CORS:      config.CORSConfig{Origins: []string{"*"}},
		Quota:     config.QuotaConfig{MaxJobsPerDay: 10},
	}

	return newServerWithDeps(cfg, deps{
		users:    users,
		accounts: accounts,
		sources:  sources,
		jobs:     &fakeJobsRepo{jobs: make(map[string]model.CrawlJob)},
		store:    ratelimit.NewMemoryStore(),
		tokens: token.NewManager(token.Config{
			Secret:   cfg.Auth.Secret,
			Issuer:   cfg.Auth.Issuer,
			Audience: cfg.Auth.Audience,
		}),
	})
}

func doJSON(s *Server, method, path, bearer, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var parsed map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &parsed)
	return rec, parsed
}

func login(t *testing.T, s *Server) string {
	t.Helper()
	rec, body := doJSON(s, http.MethodPost, "/auth/login", "",
		`{"email":"dev@acme.test","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data := body["data"].(map[string]any)
	assert.Equal(t, float64(86400), data["expires_in"])
	return data["token"].(string)
}

// ---- scenarios ----

func TestLogin_BadInputs(t *testing.T) {
	s := newTestServer(t)

	rec, body := doJSON(s, http.MethodPost, "/auth/login", "", `{"email":"dev@acme.test"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])

	rec, _ = doJSON(s, http.MethodPost, "/auth/login", "",
		`{"email":"dev@acme.test","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = doJSON(s, http.MethodPost, "/auth/login", "",
		`{"email":"ghost@acme.test","password":"whatever"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	rec, _ := doJSON(s, http.MethodGet, "/crawl-jobs", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// health check is exempt
	rec, _ = doJSON(s, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitFlow(t *testing.T) {
	s := newTestServer(t)
	tok := login(t, s)

	// keyword missing: 400 naming the field
	rec, body := doJSON(s, http.MethodPost, "/crawl-jobs", tok,
		`{"source_id":1,"title":"berlin plumbers","params":{"location":"berlin"}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["message"].(string), "keyword")

	// resubmit with keyword: 201 pending, typed params echoed
	rec, body = doJSON(s, http.MethodPost, "/crawl-jobs", tok,
		`{"source_id":1,"title":"berlin plumbers","params":{"keyword":"plumber","location":"berlin"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	data := body["data"].(map[string]any)
	assert.Equal(t, "pending", data["status"])
	assert.NotEmpty(t, data["job_id"])
	params := data["params"].(map[string]any)
	assert.Equal(t, "plumber", params["keyword"])

	// the job shows up in the caller's list
	rec, body = doJSON(s, http.MethodGet, "/crawl-jobs", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["data"].([]any), 1)

	// rate-limit headers ride along on authenticated routes
	assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))
}

func TestOwnershipEnforcedOverHTTP(t *testing.T) {
	s := newTestServer(t)
	tok := login(t, s)

	rec, body := doJSON(s, http.MethodPost, "/crawl-jobs", tok,
		`{"source_id":1,"title":"mine","params":{"keyword":"cafes"}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	jobID := body["data"].(map[string]any)["job_id"].(string)

	// forge a token for a different user on another account
	stranger, err := token.NewManager(token.Config{
		Secret:   "test-secret",
		Issuer:   "crawl-gateway",
		Audience: "crawl-gateway-users",
	}).MintAccess(model.Principal{
		ID: 99, Email: "other@rival.test", Role: "member",
		AccountID: 8, Status: "active",
		Account: model.AccountSummary{ID: 8, Name: "Rival", Status: "active"},
	})
	require.NoError(t, err)

	rec, _ = doJSON(s, http.MethodPut, "/crawl-jobs/"+jobID, stranger, `{"title":"hijack"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = doJSON(s, http.MethodDelete, "/crawl-jobs/"+jobID, stranger, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// the owner can update and delete
	rec, body = doJSON(s, http.MethodPut, "/crawl-jobs/"+jobID, tok, `{"status":"running"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "running", body["data"].(map[string]any)["status"])

	rec, _ = doJSON(s, http.MethodDelete, "/crawl-jobs/"+jobID, tok, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(s, http.MethodDelete, "/crawl-jobs/"+jobID, tok, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLeadSourcesFlattened(t *testing.T) {
	s := newTestServer(t)
	tok := login(t, s)

	rec, body := doJSON(s, http.MethodGet, "/lead-sources", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)

	list := body["data"].([]any)
	require.Len(t, list, 1)
	src := list[0].(map[string]any)
	assert.Equal(t, "google-maps", src["name"])

	params := src["params"].([]any)
	require.Len(t, params, 2) // keyword, location sorted by name
	first := params[0].(map[string]any)
	assert.Equal(t, "keyword", first["name"])
	assert.Equal(t, true, first["required"])
}

func TestRefreshMintsNewToken(t *testing.T) {
	s := newTestServer(t)
	tok := login(t, s)

	rec, body := doJSON(s, http.MethodPost, "/auth/refresh", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]any)
	assert.NotEmpty(t, data["token"])
	assert.Equal(t, float64(86400), data["expires_in"])
}
