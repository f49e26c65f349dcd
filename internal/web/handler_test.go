package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chatsentry/chatsentry/internal/config"
	"github.com/chatsentry/chatsentry/internal/models"
	"github.com/chatsentry/chatsentry/internal/sentry"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeRepo struct {
	judgments []*models.Judgment

	lastSince    time.Time
	lastPositive bool
	lastLimit    int
}

func (f *fakeRepo) GetJudgmentSummarySince(since time.Time) (models.JudgmentSummary, error) {
	return models.JudgmentSummary{Total: int64(len(f.judgments))}, nil
}

func (f *fakeRepo) GetErrorSummarySince(since time.Time) ([]models.ErrorSummary, error) {
	return nil, nil
}

func (f *fakeRepo) ListJudgments(since time.Time, onlyPositive bool, limit int) ([]*models.Judgment, error) {
	f.lastSince, f.lastPositive, f.lastLimit = since, onlyPositive, limit
	var out []*models.Judgment
	for _, j := range f.judgments {
		if onlyPositive && !j.Positive {
			continue
		}
		out = append(out, j)
	}
	return out, nil
}

func (f *fakeRepo) GetJudgment(id uint) (*models.Judgment, error) {
	for _, j := range f.judgments {
		if j.ID == id {
			return j, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetLatestJudgment() (*models.Judgment, error) {
	if len(f.judgments) == 0 {
		return nil, nil
	}
	return f.judgments[0], nil
}

type fakeStatus struct{}

func (fakeStatus) Stats() sentry.Stats { return sentry.Stats{State: "idle", Running: true, Cycles: 7} }

var testNow = time.Date(2026, 3, 18, 12, 0, 0, 0, time.UTC)

func newTestServer(repo *fakeRepo, status StatusProvider) http.Handler {
	srv := NewServer(config.Default(), repo, status, zerolog.Nop())
	srv.handler.now = func() time.Time { return testNow }
	return srv.Handler()
}

func sampleRepo() *fakeRepo {
	return &fakeRepo{judgments: []*models.Judgment{
		{ID: 2, Timestamp: testNow.Add(-5 * time.Minute), Text: "<script>x</script> need a macro", Positive: true},
		{ID: 1, Timestamp: testNow.Add(-time.Hour), Text: "lunch?", Positive: false},
	}}
}

func get(t *testing.T, h http.Handler, target string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(sampleRepo(), nil), "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)
}

func TestListJudgments(t *testing.T) {
	repo := sampleRepo()
	h := newTestServer(repo, nil)

	rec := get(t, h, "/api/judgments")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []models.Judgment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 2)
	assert.Equal(t, testNow.Add(-24*time.Hour), repo.lastSince)
	assert.Equal(t, defaultLimit, repo.lastLimit)

	rec = get(t, h, "/api/judgments?positive=true&limit=5&period=week")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 1)
	assert.True(t, repo.lastPositive)
	assert.Equal(t, 5, repo.lastLimit)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), repo.lastSince)
}

func TestListJudgmentsEmptyIsArray(t *testing.T) {
	rec := get(t, newTestServer(&fakeRepo{}, nil), "/api/judgments")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestListJudgmentsBadInput(t *testing.T) {
	h := newTestServer(sampleRepo(), nil)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/judgments?limit=-1").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/judgments?period=decade").Code)
}

func TestListJudgmentsHTMX(t *testing.T) {
	rec := get(t, newTestServer(sampleRepo(), nil), "/api/judgments", "HX-Request", "true")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, body, "verdict-yes")
	assert.Contains(t, body, "5m ago")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.NotContains(t, body, "<script>")
}

func TestLatestJudgment(t *testing.T) {
	rec := get(t, newTestServer(sampleRepo(), nil), "/api/judgments/latest")
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Judgment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, uint(2), got.ID)

	assert.Equal(t, http.StatusNotFound, get(t, newTestServer(&fakeRepo{}, nil), "/api/judgments/latest").Code)
}

func TestJudgmentByID(t *testing.T) {
	h := newTestServer(sampleRepo(), nil)

	rec := get(t, h, "/api/judgments/1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lunch?")

	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/judgments/99").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/judgments/abc").Code)
}

func TestReport(t *testing.T) {
	h := newTestServer(sampleRepo(), nil)

	rec := get(t, h, "/api/report?period=month")
	require.Equal(t, http.StatusOK, rec.Code)
	var report models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "month", report.Period.Type)
	assert.Equal(t, int64(2), report.Summary.Total)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/report?period=year").Code)
}

func TestStatus(t *testing.T) {
	rec := get(t, newTestServer(sampleRepo(), fakeStatus{}), "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "WeChat", status["window_title"])
	assert.Equal(t, float64(7), status["monitor"].(map[string]any)["cycles"])
	assert.Contains(t, status, "process")
	assert.Equal(t, "5m ago", status["latest_judgment"].(map[string]any)["age"])
}

func TestStatusWithoutMonitor(t *testing.T) {
	rec := get(t, newTestServer(&fakeRepo{}, nil), "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"monitor"`)
}

func TestIndexAndNotFound(t *testing.T) {
	h := newTestServer(sampleRepo(), nil)

	rec := get(t, h, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hx-get=\"/api/judgments")

	assert.Equal(t, http.StatusNotFound, get(t, h, "/nope").Code)
}

func TestMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/judgments", nil)
	rec := httptest.NewRecorder()
	newTestServer(sampleRepo(), nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
