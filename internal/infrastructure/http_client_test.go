package infrastructure

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"adsinsight/internal/domain"
	"adsinsight/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(sheetsURL, answerURL, secret string) *HTTPClient {
	return NewHTTPClient(HTTPClientConfig{
		SheetsURL:    sheetsURL,
		AnswerURL:    answerURL,
		AnswerSecret: secret,
		Timeout:      5 * time.Second,
	}, logger.Discard(), testMetrics())
}

func TestFetchWorksheetsTagsRows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sheets/abc", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"worksheets":[
			{"name":"Main","rows":[{"Ad set":"A","Cost":"1.000,50"},{"Ad set":"B","Cost":2000}]},
			{"name":"Harian","rows":[]}
		]}`)
	}))
	defer server.Close()

	ws, err := newTestClient(server.URL+"/", "", "").FetchWorksheets(context.Background(), "abc")
	require.NoError(t, err)
	require.Len(t, ws, 2)

	assert.Equal(t, "Main", ws[0].Name)
	assert.Equal(t, "abc", ws[0].SourceID)
	require.Len(t, ws[0].Rows, 2)
	assert.Equal(t, "abc", ws[0].Rows[1].SourceID())
	assert.Equal(t, "Main", ws[0].Rows[1].Worksheet())

	cost, ok := ws[0].Rows[1].Lookup("cost")
	require.True(t, ok)
	assert.Equal(t, json.Number("2000"), cost)

	assert.Empty(t, ws[1].Rows)
}

func TestFetchWorksheetsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, "", "").FetchWorksheets(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestGenerateSignsPayload(t *testing.T) {
	var received domain.AnswerRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, SignPayload("s3cret", body), r.Header.Get("X-Signature"))
		assert.NoError(t, json.Unmarshal(body, &received))

		io.WriteString(w, `{"answer":"CPWA turun 10%."}`)
	}))
	defer server.Close()

	req := domain.AnswerRequest{
		Question: "bagaimana cara menurunkan cpwa?",
		Summary:  "Main metrics:\n- cost: 100\n",
		History:  []domain.Message{{Role: domain.RoleUser, Text: "halo"}},
	}
	answer, err := newTestClient("", server.URL, "s3cret").Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "CPWA turun 10%.", answer)
	assert.Equal(t, req.Question, received.Question)
	assert.Equal(t, req.Summary, received.Summary)
	require.Len(t, received.History, 1)
}

func TestGenerateWithoutSecretOmitsSignature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("X-Signature"))
		io.WriteString(w, `{"answer":"ok"}`)
	}))
	defer server.Close()

	answer, err := newTestClient("", server.URL, "").Generate(context.Background(), domain.AnswerRequest{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, "ok", answer)
}

func TestGenerateFailures(t *testing.T) {
	_, err := newTestClient("", "", "").Generate(context.Background(), domain.AnswerRequest{})
	assert.ErrorIs(t, err, domain.ErrAnswerNotConfigured)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()
	_, err = newTestClient("", failing.URL, "").Generate(context.Background(), domain.AnswerRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"answer":"  "}`)
	}))
	defer empty.Close()
	_, err = newTestClient("", empty.URL, "").Generate(context.Background(), domain.AnswerRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty answer")
}

func TestSignPayload(t *testing.T) {
	assert.Equal(t,
		"f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8",
		SignPayload("key", []byte("The quick brown fox jumps over the lazy dog")))
}
