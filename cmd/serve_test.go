package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/comps-valuation/internal/model"
	"github.com/sells-group/comps-valuation/internal/resilience"
	"github.com/sells-group/comps-valuation/internal/store"
)

const longDescription = "Acme builds workflow automation software for mid-market finance teams with $12M ARR."

type fakeRunner struct {
	store store.Store
	err   error
	got   model.AnalysisRequest
}

func (f *fakeRunner) Run(ctx context.Context, req model.AnalysisRequest) (*model.Analysis, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	a, err := f.store.CreateAnalysis(ctx, req)
	if err != nil {
		return nil, err
	}
	fillResults(a)
	if err := f.store.UpdateAnalysis(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func fillResults(a *model.Analysis) {
	profile := model.CompanyProfile{Industry: "B2B SaaS", Region: "North America"}.WithDefaults()
	a.Status = model.AnalysisComplete
	a.Profile = &profile
	a.Comparables = []model.EnrichedComparable{
		{Ticker: "CRM", Name: "Salesforce", Industry: "B2B SaaS", MarketCap: 250e9, Revenue: 34e9, EVRevenue: model.Float(7.5), MatchScore: 100},
	}
	a.Valuation = &model.ValuationResult{
		RevenueMultiple: model.ValuationEstimate{Kind: model.EstimateRevenueMultiple, Factor: 7.5, Valuation: 90e6},
		Revenue:         12e6,
	}
}

type failingPingStore struct {
	store.Store
}

func (failingPingStore) Ping(context.Context) error { return eris.New("connection refused") }

func newTestServer(t *testing.T) (*apiServer, *fakeRunner, http.Handler) {
	t.Helper()
	st := store.NewMemory()
	runner := &fakeRunner{store: st}
	s := &apiServer{
		store:    st,
		runner:   runner,
		breakers: resilience.NewRegistry(resilience.BreakerConfig{}),
		health:   healthFlags{LLM: "anthropic", Market: "static"},
		now:      func() time.Time { return time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC) },
	}
	return s, runner, s.routes([]string{"*"})
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestPing(t *testing.T) {
	_, _, h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/ping", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "2026-05-04T10:30:00Z", body["timestamp"])
	assert.Equal(t, "comps-valuation", body["service"])
}

func TestHealth_Healthy(t *testing.T) {
	_, _, h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/api/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	deps, ok := body["dependencies"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "anthropic", deps["llm"])
	assert.Equal(t, "static", deps["marketData"])
	assert.Equal(t, true, deps["storage"])
	assert.Equal(t, false, deps["documentSearch"])
	assert.Contains(t, body, "circuitBreakers")
}

func TestHealth_DegradedStorage(t *testing.T) {
	s, _, _ := newTestServer(t)
	s.store = failingPingStore{Store: s.store}
	rec := do(t, s.routes(nil), http.MethodGet, "/api/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "degraded", body["status"])
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, false, deps["storage"])
}

func TestAnalyze_Success(t *testing.T) {
	_, runner, h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/api/analyze", `{"companyDescription":"`+longDescription+`"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["analysisId"])
	assert.Equal(t, "complete", body["status"])
	assert.Len(t, body["comparableCompanies"], 1)

	assert.Equal(t, model.DepthComprehensive, runner.got.AnalysisDepth)
	assert.Equal(t, model.MethodsAll, runner.got.ValuationMethods)
}

func TestAnalyze_InvalidRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{name: "malformed json", body: `{"companyDescription":`, message: "request body must be a JSON object"},
		{name: "missing description", body: `{}`, message: "company description is required"},
		{name: "short description", body: `{"companyDescription":"too short"}`, message: "at least 50 characters"},
		{name: "bad depth", body: `{"companyDescription":"` + longDescription + `","analysisDepth":"deep"}`, message: "one of"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, h := newTestServer(t)
			rec := do(t, h, http.MethodPost, "/api/analyze", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, "Invalid request", body["error"])
			assert.Contains(t, body["message"], tt.message)
		})
	}
}

func TestAnalyze_RunFailure(t *testing.T) {
	_, runner, h := newTestServer(t)
	runner.err = eris.New("unable to extract company profile")
	rec := do(t, h, http.MethodPost, "/api/analyze", `{"companyDescription":"`+longDescription+`"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Analysis failed", body["error"])
	assert.Contains(t, body["message"], "unable to extract company profile")
}

func TestAnalyze_MethodNotAllowed(t *testing.T) {
	_, _, h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/api/analyze", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetAnalysis(t *testing.T) {
	s, _, h := newTestServer(t)
	a, err := s.runner.Run(context.Background(), model.AnalysisRequest{CompanyDescription: longDescription})
	require.NoError(t, err)

	rec := do(t, h, http.MethodGet, "/api/analysis/"+a.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, a.ID, body["analysisId"])

	rec = do(t, h, http.MethodGet, "/api/analysis/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Analysis not found", decodeBody(t, rec)["error"])
}

func TestListAnalyses(t *testing.T) {
	s, _, h := newTestServer(t)
	ctx := context.Background()
	_, err := s.runner.Run(ctx, model.AnalysisRequest{CompanyDescription: longDescription})
	require.NoError(t, err)
	_, err = s.store.CreateAnalysis(ctx, model.AnalysisRequest{CompanyDescription: longDescription})
	require.NoError(t, err)

	rec := do(t, h, http.MethodGet, "/api/analyses", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 2)

	rec = do(t, h, http.MethodGet, "/api/analyses?status=complete", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var complete []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &complete))
	require.Len(t, complete, 1)
	assert.Equal(t, "complete", complete[0]["status"])

	rec = do(t, h, http.MethodGet, "/api/analyses?status=failed", "")
	assert.Equal(t, "[]\n", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/analyses?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExport_CSV(t *testing.T) {
	s, _, h := newTestServer(t)
	a, err := s.runner.Run(context.Background(), model.AnalysisRequest{CompanyDescription: longDescription})
	require.NoError(t, err)

	rec := do(t, h, http.MethodGet, "/api/analysis/"+a.ID+"/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="analysis_`+a.ID+`_`)
	assert.Contains(t, rec.Body.String(), "# Target Company: B2B SaaS company")
	assert.Contains(t, rec.Body.String(), "Salesforce,CRM,B2B SaaS")
}

func TestExport_XLSX(t *testing.T) {
	s, _, h := newTestServer(t)
	a, err := s.runner.Run(context.Background(), model.AnalysisRequest{CompanyDescription: longDescription})
	require.NoError(t, err)

	rec := do(t, h, http.MethodGet, "/api/analysis/"+a.ID+"/export?format=xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	// xlsx files are zip archives.
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"))
}

func TestExport_Errors(t *testing.T) {
	s, _, h := newTestServer(t)
	pending, err := s.store.CreateAnalysis(context.Background(), model.AnalysisRequest{CompanyDescription: longDescription})
	require.NoError(t, err)

	rec := do(t, h, http.MethodGet, "/api/analysis/"+pending.ID+"/export", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Analysis or comparable data not found", decodeBody(t, rec)["error"])

	rec = do(t, h, http.MethodGet, "/api/analysis/missing/export", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/analysis/"+pending.ID+"/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORS(t *testing.T) {
	s, _, _ := newTestServer(t)
	h := s.routes([]string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
