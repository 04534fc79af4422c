package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestNewWithRegistryIsolated(t *testing.T) {
	assert.NotPanics(t, func() {
		NewWithRegistry(prometheus.NewRegistry())
		NewWithRegistry(prometheus.NewRegistry())
	})
}

func TestRecorders(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.RecordPipelineRun("ranking", "success", 10*time.Millisecond)
	m.RecordRows("in", 3)
	m.RecordRows("dropped", 0)
	m.RecordParseFailures("date", 2)
	m.RecordEmptyRanking("cpwa")
	m.RecordCacheLookup("memory", true)
	m.RecordCacheLookup("memory", false)
	m.RecordAnswer("direct")
	m.RecordHTTPRequest("GET", "/health", "200", time.Millisecond)

	assert.Equal(t, 1.0, counterValue(t, reg, "pipeline_runs_total"))
	assert.Equal(t, 3.0, counterValue(t, reg, "pipeline_rows_processed_total"))
	assert.Equal(t, 2.0, counterValue(t, reg, "pipeline_parse_failures_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "pipeline_empty_rankings_total"))
	assert.Equal(t, 2.0, counterValue(t, reg, "row_cache_lookups_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "answers_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "http_requests_total"))
}
