package aggregate

import (
	"testing"

	"adsinsight/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keysOf(r domain.Ranking) []string {
	out := make([]string, len(r.Segments))
	for i, s := range r.Segments {
		out[i] = s.Key.String()
	}
	return out
}

func TestRankByCostHighest(t *testing.T) {
	b := Aggregate(adRows(), KeyForDimension(domain.DimensionAdset), FullMetrics)

	r, err := Rank(b, domain.MetricCost, domain.Highest, 5)

	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, keysOf(r))
	assert.Equal(t, 20000.0, r.Segments[0].Value)
}

func TestRankExcludesZeroDenominators(t *testing.T) {
	b := domain.Breakdown{
		domain.Key("no-leads"): domain.NewSegmentMetrics(domain.Totals{Cost: 100}),
		domain.Key("cheap"):    domain.NewSegmentMetrics(domain.Totals{Cost: 100, WhatsAppLeads: 10}),
		domain.Key("pricey"):   domain.NewSegmentMetrics(domain.Totals{Cost: 100, WhatsAppLeads: 2}),
	}

	r, err := Rank(b, domain.MetricCPWA, domain.Lowest, 5)

	require.NoError(t, err)
	assert.Equal(t, []string{"cheap", "pricey"}, keysOf(r))
	assert.Equal(t, 1, r.Excluded)
}

func TestRankCountsKeepZeroBuckets(t *testing.T) {
	b := domain.Breakdown{
		domain.Key("a"): domain.NewSegmentMetrics(domain.Totals{}),
		domain.Key("b"): domain.NewSegmentMetrics(domain.Totals{WhatsAppLeads: 3}),
	}

	r, err := Rank(b, domain.MetricWhatsAppLeads, domain.Lowest, 0)

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keysOf(r))
	assert.Equal(t, DefaultTopN, r.Spec.TopN)
}

func TestRankTiesAndTopN(t *testing.T) {
	b := domain.Breakdown{
		domain.Key("c"): domain.NewSegmentMetrics(domain.Totals{Cost: 5}),
		domain.Key("a"): domain.NewSegmentMetrics(domain.Totals{Cost: 5}),
		domain.Key("b"): domain.NewSegmentMetrics(domain.Totals{Cost: 9}),
	}

	r, err := Rank(b, domain.MetricCost, domain.Highest, 2)

	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, keysOf(r))
}

func TestRankErrors(t *testing.T) {
	b := domain.Breakdown{domain.Key("a"): domain.NewSegmentMetrics(domain.Totals{Cost: 1})}

	_, err := Rank(b, domain.Metric("roas"), domain.Highest, 5)
	assert.ErrorIs(t, err, ErrUnknownMetric)

	_, err = Rank(b, domain.MetricCTR, domain.Highest, 5)
	assert.ErrorIs(t, err, ErrNoQualifyingSegments)
}

func TestOutboundShares(t *testing.T) {
	rows := []domain.Row{
		domain.NewRow("", "", domain.Col("Outbound Clicks - WhatsApp", 30), domain.Col("Website Clicks", 10)),
		domain.NewRow("", "", domain.Col("Outbound clicks - whatsapp", 30), domain.Col("Form Clicks", 30)),
	}

	shares := Outbound(rows)

	require.Len(t, shares, 4)
	assert.Equal(t, "whatsapp", shares[0].Channel)
	assert.Equal(t, 60.0, shares[0].Clicks)
	assert.InDelta(t, 60.0, shares[0].Percent, 1e-9)
	assert.InDelta(t, 10.0, shares[1].Percent, 1e-9)
	assert.Zero(t, shares[2].Percent)
	assert.Equal(t, 100.0, OutboundTotal(shares))

	for _, s := range Outbound(nil) {
		assert.Zero(t, s.Percent)
	}
}

func TestMonthsAndAdsets(t *testing.T) {
	rows := []domain.Row{
		domain.NewRow("s", "Okt", domain.Col("Date", "2025-10-15"), domain.Col("Ad Set", "B")),
		domain.NewRow("s", "Okt", domain.Col("Date", "2025-09-01"), domain.Col("Ad Set", "A")),
		domain.NewRow("s", "Bulanan", domain.Col("Bulan", "Agustus 2025"), domain.Col("Ad Set", "B")),
		domain.NewRow("s", "Bulanan", domain.Col("Bulan", "???")),
	}

	assert.Equal(t, []string{"2025-08", "2025-09", "2025-10"}, Months(rows, ref))
	assert.Equal(t, "Oktober 2025", MonthDisplay("2025-10"))
	assert.Equal(t, map[string][]string{
		"Okt":     {"A", "B"},
		"Bulanan": {"B"},
	}, AdsetsByWorksheet(rows))
}
