package pipeline

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"adsinsight/internal/domain"
	"adsinsight/internal/normalize"
)

var dimensionLabels = map[domain.Dimension]string{
	domain.DimensionAdset:     "Ad set",
	domain.DimensionAd:        "Ad",
	domain.DimensionRegion:    "Region",
	domain.DimensionAge:       "Kelompok usia",
	domain.DimensionGender:    "Gender",
	domain.DimensionAgeGender: "Segmen usia dan gender",
	domain.DimensionCampaign:  "Campaign",
	domain.DimensionWorksheet: "Worksheet",
}

// what a ratio metric is divided by, as shown to users
var denominatorLabels = map[domain.Metric]string{
	domain.MetricCTR:        "impressions",
	domain.MetricLCTR:       "impressions",
	domain.MetricCPM:        "impressions",
	domain.MetricCPC:        "clicks",
	domain.MetricConversion: "clicks",
	domain.MetricCPLC:       "link clicks",
	domain.MetricCPWA:       "WhatsApp leads",
	domain.MetricFrequency:  "data frequency",
}

func dimensionLabel(d domain.Dimension) string {
	if l, ok := dimensionLabels[d]; ok {
		return l
	}
	return string(d)
}

// formatInt renders a rounded number with comma thousand separators.
func formatInt(v float64) string {
	s := strconv.FormatInt(int64(math.Round(v)), 10)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return sign + s
}

func formatRupiah(v float64) string {
	return "Rp " + formatInt(v)
}

func formatMetric(m domain.Metric, v float64) string {
	switch m {
	case domain.MetricCost, domain.MetricCPM, domain.MetricCPC, domain.MetricCPLC, domain.MetricCPWA:
		return formatRupiah(v)
	case domain.MetricCTR, domain.MetricLCTR, domain.MetricConversion:
		return fmt.Sprintf("%.2f%%", v)
	case domain.MetricFrequency:
		return fmt.Sprintf("%.2f", v)
	default:
		return formatInt(v)
	}
}

func segmentLabel(dim domain.Dimension, k domain.AggregationKey) string {
	switch {
	case dim == domain.DimensionWorksheet && k.Secondary != "":
		return k.Secondary
	case k.Secondary != "":
		return k.Primary + " | " + k.Secondary
	default:
		return k.Primary
	}
}

// describeTemporal renders a filter window such as "minggu ke-3 Oktober 2025".
func describeTemporal(t domain.Temporal) string {
	var parts []string
	if t.WeekOfMonth != 0 {
		parts = append(parts, fmt.Sprintf("minggu ke-%d", t.WeekOfMonth))
	}
	if t.Month >= 1 && t.Month <= 12 {
		parts = append(parts, normalize.MonthDisplayName(time.Month(t.Month)))
	}
	if t.Year != 0 {
		parts = append(parts, strconv.Itoa(t.Year))
	}
	return strings.Join(parts, " ")
}

func describeSegment(s domain.SegmentFilter) string {
	var parts []string
	for _, p := range []string{s.AgeRange, s.Gender, s.AdsetName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "|")
}

// joinList renders "a", "a dan b" or "a, b, dan c".
func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " dan " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", dan " + items[len(items)-1]
	}
}
