package httpapi

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pyanalyzer/internal/core/app"
	"pyanalyzer/internal/core/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, opts Options) (http.Handler, *Server) {
	t.Helper()
	cfg := config.Default()
	if opts.MaxSourceBytes > 0 {
		cfg.Analysis.MaxSourceBytes = opts.MaxSourceBytes
	}
	a, err := app.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	if opts.MaxSourceBytes == 0 {
		opts.MaxSourceBytes = cfg.Analysis.MaxSourceBytes
	}
	s, err := NewServer(a.AnalysisService(), app.NewHealthService(a), opts, nil)
	require.NoError(t, err)
	t.Cleanup(s.limiters.Close)
	return s.Handler(), s
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestLoadSpec(t *testing.T) {
	doc, err := LoadSpec()
	require.NoError(t, err)
	assert.NotNil(t, doc.Paths.Find("/v1/analyze"))
	assert.Contains(t, doc.Components.Schemas, "AnalysisResult")
}

func TestAnalyze(t *testing.T) {
	h, s := newTestHandler(t, Options{})
	rec, body := do(t, h, http.MethodPost, "/v1/analyze", `{"source":"from mod import a, b\nfrom mod2 import c"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	assert.Equal(t, []any{[]any{0.0, 20.0}, []any{21.0, 39.0}}, body["import_ranges"])
	assert.Len(t, body["imported_names"], 3)
	assert.NoError(t, s.validator.validate("AnalysisResult", body))
}

func TestAnalyze_SyntaxErrorsAreData(t *testing.T) {
	h, _ := newTestHandler(t, Options{})
	rec, body := do(t, h, http.MethodPost, "/v1/analyze", `{"source":"from mod import a, b,\n\n1+"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	errs := body["parse_errors"].([]any)
	require.NotEmpty(t, errs)
	first := errs[0].(map[string]any)
	assert.Equal(t, "Trailing comma not allowed", first["message"])
	assert.Equal(t, []any{20.0, 21.0}, first["location"])
}

func TestAnalyze_InvalidBody(t *testing.T) {
	h, _ := newTestHandler(t, Options{})

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed", body: `{"source":`},
		{name: "missing source", body: `{}`},
		{name: "wrong type", body: `{"source": 3}`},
		{name: "unknown field", body: `{"source": "", "extra": true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, h, http.MethodPost, "/v1/analyze", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "VALIDATION_ERROR", body["code"])
			assert.Equal(t, rec.Header().Get(requestIDHeader), body["request_id"])
		})
	}
}

func TestAnalyze_Oversize(t *testing.T) {
	h, _ := newTestHandler(t, Options{MaxSourceBytes: 8})
	rec, body := do(t, h, http.MethodPost, "/v1/analyze", `{"source":"import os\nimport sys\n"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

func TestLegacy(t *testing.T) {
	h, _ := newTestHandler(t, Options{})

	rec, body := do(t, h, http.MethodPost, "/v1/legacy/called-names", `{"source":"f(g())"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"f", "g"}, body["result"])

	rec, body = do(t, h, http.MethodPost, "/v1/legacy/find-ellipsis", `{"source":"x = ..."}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["result"])

	rec, body = do(t, h, http.MethodPost, "/v1/legacy/imported-names", `{"source":"from mod import a, b,\n\n1+"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "SYNTAX_ERROR", body["code"])
	assert.Equal(t, "Trailing comma not allowed", body["message"])
	assert.Equal(t, "20..21", body["location"])

	rec, body = do(t, h, http.MethodPost, "/v1/legacy/unknown", `{"source":""}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestRateLimit(t *testing.T) {
	h, _ := newTestHandler(t, Options{RequestsPerSecond: 0.001, Burst: 1})

	rec, _ := do(t, h, http.MethodPost, "/v1/analyze", `{"source":"x"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body := do(t, h, http.MethodPost, "/v1/analyze", `{"source":"x"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", body["code"])
}

func TestRequestIDPassthrough(t *testing.T) {
	h, _ := newTestHandler(t, Options{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get(requestIDHeader))
}

func TestOpenAPIAndMetricsAndHealth(t *testing.T) {
	h, _ := newTestHandler(t, Options{})

	rec, body := do(t, h, http.MethodGet, "/openapi.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3.0.3", body["openapi"])

	rec, body = do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "up", body["status"])

	_, _ = do(t, h, http.MethodPost, "/v1/analyze", `{"source":"import os"}`)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metrics := httptest.NewRecorder()
	h.ServeHTTP(metrics, req)
	require.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "pyanalyzer_parsing_seconds")
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t, Options{})
	req := httptest.NewRequest(http.MethodGet, "/v1/analyze", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRespondUnencodableValueIsMarshalError(t *testing.T) {
	_, s := newTestHandler(t, Options{})

	rec := httptest.NewRecorder()
	s.respond(rec, "req-7", http.StatusOK, map[string]any{"value": math.NaN()})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "MARSHAL_ERROR", body["code"])
	assert.Equal(t, "req-7", body["request_id"])
}
