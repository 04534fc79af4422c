package infrastructure

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"adsinsight/internal/domain"
	"adsinsight/pkg/logger"
	"adsinsight/pkg/metrics"

	"golang.org/x/time/rate"
)


// implements RowSource and AnswerGenerator
type HTTPClient struct {
	client       *http.Client
	sheetsURL    string
	answerURL    string
	answerSecret string
	logger       *logger.Logger
	metrics      *metrics.Metrics
	rateLimiter  *rate.Limiter
}

type HTTPClientConfig struct {
	SheetsURL    string
	AnswerURL    string
	AnswerSecret string
	Timeout      time.Duration
	// RateLimit is requests per second shared by both endpoints; Burst the bucket size.
	RateLimit float64
	Burst     int
}

// creates a new HTTP client
func NewHTTPClient(cfg HTTPClientConfig, logger *logger.Logger, metrics *metrics.Metrics) *HTTPClient {
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Limit(100)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 10
	}
	return &HTTPClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		sheetsURL:    strings.TrimRight(cfg.SheetsURL, "/"),
		answerURL:    cfg.AnswerURL,
		answerSecret: cfg.AnswerSecret,
		logger:       logger,
		metrics:      metrics,
		rateLimiter:  rate.NewLimiter(limit, burst),
	}
}

type sheetResponse struct {
	Worksheets []struct {
		Name string       `json:"name"`
		Rows []domain.Row `json:"rows"`
	} `json:"worksheets"`
}

// fetches every worksheet of a spreadsheet source
func (c *HTTPClient) FetchWorksheets(ctx context.Context, sourceID string) ([]domain.Worksheet, error) {
	start := time.Now()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		c.metrics.RecordExternalAPIFailure("sheets", "rate_limit")
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	endpoint := c.sheetsURL + "/sheets/" + url.PathEscape(sourceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.metrics.RecordExternalAPIFailure("sheets", "request_creation")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.RecordExternalAPIFailure("sheets", "network_error")
		return nil, fmt.Errorf("failed to fetch sheet %s: %w", sourceID, err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		c.metrics.RecordExternalAPICall("sheets", fmt.Sprintf("error_%d", resp.StatusCode), duration)
		return nil, fmt.Errorf("sheets API returned status %d for %s", resp.StatusCode, sourceID)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordExternalAPIFailure("sheets", "read_body")
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var payload sheetResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		c.metrics.RecordExternalAPIFailure("sheets", "json_parse")
		return nil, fmt.Errorf("failed to parse sheet %s: %w", sourceID, err)
	}

	worksheets := make([]domain.Worksheet, 0, len(payload.Worksheets))
	rows := 0
	for _, ws := range payload.Worksheets {
		tagged := make([]domain.Row, len(ws.Rows))
		for i, r := range ws.Rows {
			tagged[i] = r.Tagged(sourceID, ws.Name)
		}
		worksheets = append(worksheets, domain.Worksheet{SourceID: sourceID, Name: ws.Name, Rows: tagged})
		rows += len(tagged)
	}

	c.metrics.RecordExternalAPICall("sheets", "success", duration)

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"source_id":  sourceID,
		"duration":   duration,
		"worksheets": len(worksheets),
		"rows":       rows,
	}).Info("Successfully fetched sheet data")

	return worksheets, nil
}

type answerResponse struct {
	Answer string `json:"answer"`
}

// sends the aggregate summary to the answer gateway
func (c *HTTPClient) Generate(ctx context.Context, req domain.AnswerRequest) (string, error) {
	if c.answerURL == "" {
		return "", domain.ErrAnswerNotConfigured
	}

	start := time.Now()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		c.metrics.RecordExternalAPIFailure("answer", "rate_limit")
		return "", fmt.Errorf("rate limit exceeded: %w", err)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		c.metrics.RecordExternalAPIFailure("answer", "json_marshal")
		return "", fmt.Errorf("failed to marshal answer request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.answerURL, bytes.NewReader(payload))
	if err != nil {
		c.metrics.RecordExternalAPIFailure("answer", "request_creation")
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	// Add HMAC signature if secret is provided
	if c.answerSecret != "" {
		httpReq.Header.Set("X-Signature", c.generateHMACSignature(payload))
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.metrics.RecordExternalAPIFailure("answer", "network_error")
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.RecordExternalAPICall("answer", fmt.Sprintf("error_%d", resp.StatusCode), duration)
		return "", fmt.Errorf("answer API returned status %d", resp.StatusCode)
	}

	var out answerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.metrics.RecordExternalAPIFailure("answer", "json_parse")
		return "", fmt.Errorf("failed to parse answer: %w", err)
	}
	if strings.TrimSpace(out.Answer) == "" {
		c.metrics.RecordExternalAPIFailure("answer", "empty_answer")
		return "", fmt.Errorf("answer API returned an empty answer")
	}

	c.metrics.RecordExternalAPICall("answer", "success", duration)

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"duration": duration,
		"history":  len(req.History),
		"intent":   req.Intent.Kind,
	}).Info("Successfully generated answer")

	return out.Answer, nil
}

// generates HMAC-SHA256 signature for the payload
func (c *HTTPClient) generateHMACSignature(payload []byte) string {
	return SignPayload(c.answerSecret, payload)
}

// SignPayload returns the hex HMAC-SHA256 of payload under secret.
func SignPayload(secret string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
