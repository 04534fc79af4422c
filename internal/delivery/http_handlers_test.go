package delivery

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"adsinsight/internal/infrastructure"
	"adsinsight/internal/intent"
	"adsinsight/internal/pipeline"
	"adsinsight/internal/usecase"
	"adsinsight/pkg/logger"
	"adsinsight/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adRowsJSON = `[
	{"Ad set": "A", "Cost": 10000, "Impressions": 1000, "All Clicks": 50, "WhatsApp": 5},
	{"Ad set": "B", "Cost": 20000, "Impressions": 2000, "All Clicks": 80, "WhatsApp": 10}
]`

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	log := logger.Discard()
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	svc := usecase.NewChatService(
		pipeline.New(pipeline.Options{}, log, m),
		intent.New(0),
		nil,
		infrastructure.NewMemoryRowCache(time.Minute, log, m),
		infrastructure.NewMemoryHistoryRepository(log),
		nil,
		log, m,
		usecase.ChatConfig{HistoryTurns: 4},
	)

	return NewHTTPRouter(NewHTTPHandlers(svc, log), log, m, RouterConfig{
		RequestTimeout: 5 * time.Second,
		Gatherer:       reg,
	}).SetupRoutes()
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthCheck(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))

	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "req-123", body["request_id"])
}

func TestGetAPIInfo(t *testing.T) {
	router := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/api/v1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "v1", decode(t, w)["api_version"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestChatWithRows(t *testing.T) {
	router := setupRouter(t)

	w := doRequest(router, http.MethodPost, "/api/v1/chat",
		`{"session_id":"sess-1","query":"adset mana dengan cost tertinggi?","rows":`+adRowsJSON+`}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "sess-1", body["session_id"])
	assert.Equal(t, "Ad set dengan Cost tertinggi:\n1. B: Rp 20,000\n2. A: Rp 10,000", body["answer"])
	assert.Equal(t, "template", body["answer_source"])
	assert.Len(t, body["chat_history"], 2)

	w = doRequest(router, http.MethodGet, "/api/v1/history/sess-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["count"])

	w = doRequest(router, http.MethodDelete, "/api/v1/history/sess-1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/history/sess-1", "")
	assert.EqualValues(t, 0, decode(t, w)["count"])
}

func TestChatErrors(t *testing.T) {
	router := setupRouter(t)

	w := doRequest(router, http.MethodPost, "/api/v1/chat", `{"message":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", decode(t, w)["error"])

	w = doRequest(router, http.MethodPost, "/api/v1/chat", `{"message":"performa iklan"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Chat failed", body["error"])
	assert.NotEmpty(t, body["request_id"])
}

func TestChatEmptyQuestion(t *testing.T) {
	router := setupRouter(t)

	w := doRequest(router, http.MethodPost, "/api/v1/chat", `{"session_id":"s","message":"  "}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pipeline.EmptyQuestionAnswer, decode(t, w)["answer"])
}

func TestAnalyze(t *testing.T) {
	router := setupRouter(t)

	w := doRequest(router, http.MethodPost, "/api/v1/analyze", `{"question":"performa"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/analyze", `{"question":"performa","rows":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/analyze",
		`{"question":"adset dengan cpc terendah","rows":`+adRowsJSON+`}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	bundle, ok := decode(t, w)["bundle"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, bundle["direct"])
	ranking := bundle["ranking"].(map[string]any)
	segments := ranking["segments"].([]any)
	require.Len(t, segments, 2)
	assert.Equal(t, "A", segments[0].(map[string]any)["key"])
}

func TestCacheEndpoints(t *testing.T) {
	router := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/api/v1/cache/status", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["count"])

	w = doRequest(router, http.MethodPost, "/api/v1/cache/clear", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["cleared"])
}

func TestMetricsEndpoint(t *testing.T) {
	router := setupRouter(t)

	doRequest(router, http.MethodGet, "/health", "")
	w := doRequest(router, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{endpoint="/health",method="GET",status_code="200"} 1`)
}
