package aggregate

import (
	"testing"

	"adsinsight/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterByPeriodWeekOfMonth(t *testing.T) {
	rows := []domain.Row{
		domain.NewRow("", "", domain.Col("Date", "2025-10-15"), domain.Col("Cost", 1)),
		domain.NewRow("", "", domain.Col("Date", "2025-10-22"), domain.Col("Cost", 2)),
	}

	res := FilterByPeriod(rows, domain.Temporal{Month: 10, WeekOfMonth: 3}, ref)

	assert.True(t, res.Applied)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, 1.0, Totalize(res.Rows, BasicMetrics).Cost)
	assert.Equal(t, 1, res.Kept)
	assert.Equal(t, 1, res.Dropped)
	assert.Zero(t, res.Unparsed)
}

func TestFilterByPeriodDropsUnparsedDates(t *testing.T) {
	rows := []domain.Row{
		domain.NewRow("", "", domain.Col("Tanggal", "15 Oktober 2025")),
		domain.NewRow("", "", domain.Col("Tanggal", "31/02/2025")),
		domain.NewRow("", "", domain.Col("Tanggal", "")),
	}

	res := FilterByPeriod(rows, domain.Temporal{Year: 2025}, ref)

	assert.Equal(t, 1, res.Kept)
	assert.Equal(t, 2, res.Unparsed)
	assert.Equal(t, 2, res.Dropped)
}

func TestFilterByPeriodWithoutDateColumn(t *testing.T) {
	rows := []domain.Row{domain.NewRow("", "", domain.Col("Cost", 1))}

	res := FilterByPeriod(rows, domain.Temporal{Month: 3}, ref)

	assert.False(t, res.Applied)
	assert.True(t, res.NoDateColumn)
	assert.Len(t, res.Rows, 1)
}

func TestFilterByPeriodEmptyWindow(t *testing.T) {
	rows := adRows()

	res := FilterByPeriod(rows, domain.Temporal{}, ref)

	assert.False(t, res.Applied)
	assert.Equal(t, rows, res.Rows)
}

func TestFilterBySegment(t *testing.T) {
	rows := []domain.Row{
		domain.NewRow("", "", domain.Col("Age", "25-34"), domain.Col("Gender", "Female"), domain.Col("Ad Set", "Retargeting Jakarta")),
		domain.NewRow("", "", domain.Col("Age", "25-34"), domain.Col("Gender", "male"), domain.Col("Ad Set", "Prospecting")),
		domain.NewRow("", "", domain.Col("Age", "35-44"), domain.Col("Gender", "wanita"), domain.Col("Ad Set", "Retargeting Bandung")),
	}

	assert.Len(t, FilterBySegment(rows, domain.SegmentFilter{Gender: "female"}), 2)
	assert.Len(t, FilterBySegment(rows, domain.SegmentFilter{AgeRange: "25-34", Gender: "female"}), 1)
	assert.Len(t, FilterBySegment(rows, domain.SegmentFilter{AdsetName: "retargeting"}), 2)
	assert.Len(t, FilterBySegment(rows, domain.SegmentFilter{AgeRange: "65+"}), 0)
}

func TestFilterBySegmentIgnoresMissingColumns(t *testing.T) {
	rows := adRows()

	assert.Len(t, FilterBySegment(rows, domain.SegmentFilter{AgeRange: "25-34", Gender: "male"}), 2)
}

func TestFilterBySegmentAdsetName(t *testing.T) {
	rows := []domain.Row{
		domain.NewRow("", "", domain.Col("Ad set", "A"), domain.Col("Cost", 1)),
		domain.NewRow("", "", domain.Col("Ad set", "B"), domain.Col("Cost", 2)),
		domain.NewRow("", "", domain.Col("Ad set", "Brand Awareness"), domain.Col("Cost", 4)),
	}

	tests := []struct {
		name  string
		adset string
		want  float64
	}{
		{"exact match wins over substring", "A", 1},
		{"exact match ignores case", "brand awareness", 4},
		{"substring when nothing is exact", "aware", 4},
		{"unknown name is ignored", "bulan", 7},
		{"pronoun is ignored", "kami", 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterBySegment(rows, domain.SegmentFilter{AdsetName: tt.adset})
			assert.Equal(t, tt.want, Totalize(got, BasicMetrics).Cost)
		})
	}
}

func TestCanonicalGender(t *testing.T) {
	assert.Equal(t, "female", CanonicalGender(" Perempuan "))
	assert.Equal(t, "male", CanonicalGender("Laki-laki"))
	assert.Equal(t, "unknown", CanonicalGender("Unknown"))
}
