package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devrev/langdetect/internal/config"
	"github.com/devrev/langdetect/internal/corpus"
	"github.com/devrev/langdetect/internal/errors"
	"github.com/devrev/langdetect/internal/health"
	"github.com/devrev/langdetect/internal/metrics"
	"github.com/devrev/langdetect/internal/model"
	"github.com/devrev/langdetect/internal/service"
)

type testEnv struct {
	server   *Server
	detector *service.DetectorService
	metrics  *metrics.Metrics
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Detector.KmerSize = 3
	cfg.Detector.MaxProfileEntries = 10
	cfg.Detector.MaxQueryBytes = 32
	if mutate != nil {
		mutate(cfg)
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics("test", reg)
	hc := health.NewHealthChecker(&health.HealthCheckConfig{InstanceID: "test"}, zap.NewNop())

	detector, err := service.NewDetector(cfg, m, hc, zap.NewNop())
	require.NoError(t, err)

	return &testEnv{
		server:   NewServer(cfg, detector, hc, m, reg, zap.NewNop()),
		detector: detector,
		metrics:  m,
	}
}

func (e *testEnv) train(t *testing.T, lines ...string) {
	t.Helper()
	_, err := e.detector.Train(context.Background(),
		corpus.NewScanner(strings.NewReader(strings.Join(lines, "\n"))))
	require.NoError(t, err)
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_Identify(t *testing.T) {
	env := newTestEnv(t, nil)
	env.train(t, "abcabc@English", "xyzxyz@French")

	w := env.do(http.MethodPost, "/v1/identify", `{"text":"abcabc"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var resp IdentifyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, model.Language("English"), resp.Language)
	assert.NotEmpty(t, resp.RequestID)
}

func TestServer_IdentifyAll(t *testing.T) {
	env := newTestEnv(t, nil)
	env.train(t, "abcabc@English", "xyzxyz@French")

	w := env.do(http.MethodPost, "/v1/identify/all", `{"text":"xyzxyz"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp IdentifyAllResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, []model.LanguageDistance{
		{Language: "French", Distance: 0},
		{Language: "English", Distance: 42},
	}, resp.Languages)
}

func TestServer_IdentifyErrors(t *testing.T) {
	tests := []struct {
		name      string
		train     bool
		body      string
		wantCode  int
		wantError string
	}{
		{name: "untrained", train: false, body: `{"text":"abc"}`, wantCode: http.StatusPreconditionFailed, wantError: "NO_TRAINED_LANGUAGES"},
		{name: "invalid json", train: true, body: `{invalid}`, wantCode: http.StatusBadRequest, wantError: "INVALID_ARGUMENT"},
		{name: "missing text", train: true, body: `{}`, wantCode: http.StatusBadRequest, wantError: "INVALID_ARGUMENT"},
		{name: "too large", train: true, body: `{"text":"` + strings.Repeat("a", 33) + `"}`, wantCode: http.StatusBadRequest, wantError: "INVALID_ARGUMENT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			if tt.train {
				env.train(t, "abcabc@English")
			}

			w := env.do(http.MethodPost, "/v1/identify", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, tt.wantError, resp.ErrorCode)
		})
	}
}

func TestServer_QueryTooLargeDetails(t *testing.T) {
	env := newTestEnv(t, nil)
	env.train(t, "abcabc@English")

	w := env.do(http.MethodPost, "/v1/identify", `{"text":"`+strings.Repeat("a", 40)+`"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, float64(40), resp.Details["size"])
	assert.Equal(t, float64(32), resp.Details["max_size"])
}

func TestServer_LanguagesAndTraining(t *testing.T) {
	env := newTestEnv(t, nil)

	assert.Equal(t, http.StatusPreconditionFailed, env.do(http.MethodGet, "/v1/languages", "").Code)
	assert.Equal(t, http.StatusPreconditionFailed, env.do(http.MethodGet, "/v1/training", "").Code)

	env.train(t, "abcabc@English", "xyzxyz@French", "malformed")

	w := env.do(http.MethodGet, "/v1/languages", "")
	require.Equal(t, http.StatusOK, w.Code)
	var langs LanguagesResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&langs))
	assert.Equal(t, []service.LanguageInfo{
		{Language: "English", ProfileEntries: 6},
		{Language: "French", ProfileEntries: 6},
	}, langs.Languages)

	w = env.do(http.MethodGet, "/v1/training", "")
	require.Equal(t, http.StatusOK, w.Code)
	var report service.TrainingReport
	require.NoError(t, json.NewDecoder(w.Body).Decode(&report))
	assert.Equal(t, 2, report.Languages)
	assert.Equal(t, uint64(1), report.LinesSkipped)
	assert.NotEmpty(t, report.RunID)
}

func TestServer_Probes(t *testing.T) {
	env := newTestEnv(t, nil)

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, env.do(http.MethodGet, "/ready", "").Code)

	env.train(t, "abcabc@English")
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/ready", "").Code)
}

func TestServer_Metrics(t *testing.T) {
	env := newTestEnv(t, nil)
	env.train(t, "abcabc@English")
	env.do(http.MethodPost, "/v1/identify", `{"text":"abc"}`)

	w := env.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "langdetect_query_classifications_total")
	assert.Contains(t, body, `route="/v1/identify"`)
}

func TestServer_MetricsDisabled(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Metrics.Enabled = false
	})
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/metrics", "").Code)
}

func TestServer_RateLimited(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Server.RateLimit = 0.001
		c.Server.RateBurst = 1
	})
	env.train(t, "abcabc@English")

	assert.Equal(t, http.StatusOK, env.do(http.MethodPost, "/v1/identify", `{"text":"abc"}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, env.do(http.MethodPost, "/v1/identify", `{"text":"abc"}`).Code)

	// metadata routes are not limited
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/v1/languages", "").Code)
}

func TestServer_RoutingErrors(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		path      string
		wantCode  int
		wantError string
	}{
		{name: "unknown path", method: http.MethodGet, path: "/v2/nothing", wantCode: http.StatusNotFound, wantError: "NOT_FOUND"},
		{name: "identify with GET", method: http.MethodGet, path: "/v1/identify", wantCode: http.StatusMethodNotAllowed, wantError: "METHOD_NOT_ALLOWED"},
		{name: "identify all with GET", method: http.MethodGet, path: "/v1/identify/all", wantCode: http.StatusMethodNotAllowed, wantError: "METHOD_NOT_ALLOWED"},
		{name: "languages with POST", method: http.MethodPost, path: "/v1/languages", wantCode: http.StatusMethodNotAllowed, wantError: "METHOD_NOT_ALLOWED"},
		{name: "training with DELETE", method: http.MethodDelete, path: "/v1/training", wantCode: http.StatusMethodNotAllowed, wantError: "METHOD_NOT_ALLOWED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)

			w := env.do(tt.method, tt.path, "")
			require.Equal(t, tt.wantCode, w.Code)

			requestID := w.Header().Get("X-Request-ID")
			assert.NotEmpty(t, requestID)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantError, resp.ErrorCode)
			assert.Equal(t, requestID, resp.RequestID)

			assert.Equal(t, float64(1), testutil.ToFloat64(
				env.metrics.HTTPRequestsTotal.WithLabelValues("unmatched", tt.method, "4xx")))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code errors.ErrorCode
		want int
	}{
		{code: errors.ErrCodeOK, want: http.StatusOK},
		{code: errors.ErrCodeInvalidArgument, want: http.StatusBadRequest},
		{code: errors.ErrCodeLanguageNotFound, want: http.StatusNotFound},
		{code: errors.ErrCodeNoTrainedLanguages, want: http.StatusPreconditionFailed},
		{code: errors.ErrCodeTrainingIncomplete, want: http.StatusPreconditionFailed},
		{code: errors.ErrCodeTrainingComplete, want: http.StatusPreconditionFailed},
		{code: errors.ErrCodeCorpusUnreadable, want: http.StatusServiceUnavailable},
		{code: errors.ErrCodeCanceled, want: http.StatusServiceUnavailable},
		{code: errors.ErrCodeInternal, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}
