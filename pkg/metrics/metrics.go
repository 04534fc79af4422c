package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Pipeline metrics
	PipelineRunsTotal      *prometheus.CounterVec
	PipelineRunDuration    *prometheus.HistogramVec
	PipelineRunsInProgress prometheus.Gauge
	PipelineStageDuration  *prometheus.HistogramVec
	RowsProcessed          *prometheus.CounterVec
	ParseFailures          *prometheus.CounterVec
	EmptyRankings          *prometheus.CounterVec

	// External API metrics
	ExternalAPICalls    *prometheus.CounterVec
	ExternalAPIDuration *prometheus.HistogramVec
	ExternalAPIFailures *prometheus.CounterVec

	// Cache metrics
	CacheLookups *prometheus.CounterVec

	// Answer metrics
	AnswersTotal *prometheus.CounterVec
}

// New registers the collectors with the default prometheus registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors with reg. Tests pass a fresh
// prometheus.NewRegistry() so that repeated construction does not panic.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		PipelineRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_runs_total",
				Help: "Total number of analysis pipeline runs",
			},
			[]string{"intent", "status"},
		),

		PipelineRunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_run_duration_seconds",
				Help:    "Analysis pipeline run duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"intent"},
		),

		PipelineRunsInProgress: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pipeline_runs_in_progress",
				Help: "Number of analysis pipeline runs currently in progress",
			},
		),

		PipelineStageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_stage_duration_seconds",
				Help:    "Duration of a single pipeline stage in seconds",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"stage"},
		),

		RowsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_rows_processed_total",
				Help: "Total number of rows seen by the pipeline",
			},
			[]string{"status"},
		),

		ParseFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_parse_failures_total",
				Help: "Total number of cells that could not be parsed",
			},
			[]string{"kind"},
		),

		EmptyRankings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_empty_rankings_total",
				Help: "Total number of rankings with no qualifying segment",
			},
			[]string{"metric"},
		),

		ExternalAPICalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "external_api_calls_total",
				Help: "Total number of external API calls",
			},
			[]string{"api", "status"},
		),

		ExternalAPIDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "external_api_duration_seconds",
				Help:    "External API call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"api"},
		),

		ExternalAPIFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "external_api_failures_total",
				Help: "Total number of external API failures",
			},
			[]string{"api", "error_type"},
		),

		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "row_cache_lookups_total",
				Help: "Total number of row cache lookups",
			},
			[]string{"backend", "result"},
		),

		AnswersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "answers_total",
				Help: "Total number of answers returned, by how they were produced",
			},
			[]string{"source"},
		),
	}
}

// HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// Pipeline run metrics
func (m *Metrics) RecordPipelineRun(intent, status string, duration time.Duration) {
	m.PipelineRunsTotal.WithLabelValues(intent, status).Inc()
	m.PipelineRunDuration.WithLabelValues(intent).Observe(duration.Seconds())
}

func (m *Metrics) RecordStage(stage string, duration time.Duration) {
	m.PipelineStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// Row counts by status (in, kept, dropped)
func (m *Metrics) RecordRows(status string, count int) {
	if count <= 0 {
		return
	}
	m.RowsProcessed.WithLabelValues(status).Add(float64(count))
}

func (m *Metrics) RecordParseFailures(kind string, count int) {
	if count <= 0 {
		return
	}
	m.ParseFailures.WithLabelValues(kind).Add(float64(count))
}

func (m *Metrics) RecordEmptyRanking(metric string) {
	m.EmptyRankings.WithLabelValues(metric).Inc()
}

// External API call metrics
func (m *Metrics) RecordExternalAPICall(api, status string, duration time.Duration) {
	m.ExternalAPICalls.WithLabelValues(api, status).Inc()
	m.ExternalAPIDuration.WithLabelValues(api).Observe(duration.Seconds())
}

// External API failure metrics
func (m *Metrics) RecordExternalAPIFailure(api, errorType string) {
	m.ExternalAPIFailures.WithLabelValues(api, errorType).Inc()
}

// Cache hit or miss
func (m *Metrics) RecordCacheLookup(backend string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(backend, result).Inc()
}

func (m *Metrics) RecordAnswer(source string) {
	m.AnswersTotal.WithLabelValues(source).Inc()
}

// Pipeline runs in progress counter
func (m *Metrics) IncPipelineRunsInProgress() {
	m.PipelineRunsInProgress.Inc()
}

// Pipeline runs in progress counter
func (m *Metrics) DecPipelineRunsInProgress() {
	m.PipelineRunsInProgress.Dec()
}

// HTTP requests in flight counter
func (m *Metrics) IncHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// HTTP requests in flight counter
func (m *Metrics) DecHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}
