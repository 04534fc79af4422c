package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"adsinsight/internal/aggregate"
	"adsinsight/internal/domain"
)

// section row limits keep the generator prompt bounded
const (
	summarySegmentLimit = 20
	summaryAdsetLimit   = 15
	summaryWeekLimit    = 8
	summaryMonthLimit   = 6
)

// buildSummary renders the aggregates as plain text context for answer
// generation. Segment sections are ordered by cost, periods newest first.
func buildSummary(s State) string {
	var b strings.Builder

	m := s.MainTotals
	b.WriteString("Main metrics:\n")
	fmt.Fprintf(&b, "- rows: %d\n", m.Rows)
	fmt.Fprintf(&b, "- cost: %.0f\n", m.Cost)
	fmt.Fprintf(&b, "- impressions: %.0f\n", m.Impressions)
	fmt.Fprintf(&b, "- clicks: %.0f\n", m.Clicks)
	fmt.Fprintf(&b, "- link_clicks: %.0f\n", m.LinkClicks)
	fmt.Fprintf(&b, "- reach: %.0f\n", m.Reach)
	fmt.Fprintf(&b, "- whatsapp_leads: %.0f\n", m.WhatsAppLeads)
	fmt.Fprintf(&b, "- facebook_leads: %.0f\n", m.FacebookLeads)
	fmt.Fprintf(&b, "- lead_form: %.0f\n", m.LeadForm)
	fmt.Fprintf(&b, "- messaging: %.0f\n", m.Messaging)
	fmt.Fprintf(&b, "- ctr: %.2f%%\n", m.CTR)
	fmt.Fprintf(&b, "- lctr: %.2f%%\n", m.LCTR)
	fmt.Fprintf(&b, "- cpm: %.0f\n", m.CPM)
	fmt.Fprintf(&b, "- cpc: %.0f\n", m.CPC)
	fmt.Fprintf(&b, "- cpwa: %.0f\n", m.CPWA)
	fmt.Fprintf(&b, "- frequency: %.2f\n", m.FrequencyAvg)
	fmt.Fprintf(&b, "- conversion_rate: %.2f%%\n", m.ConversionRate)

	if window := describeTemporal(s.Intent.Temporal); window != "" {
		fmt.Fprintf(&b, "\nPeriode yang difilter: %s\n", window)
	}
	if seg := describeSegment(s.Intent.Segment); seg != "" {
		fmt.Fprintf(&b, "Segmen yang difilter: %s\n", seg)
	}

	writeSection(&b, "Breakdown performa berdasarkan Age & Gender", s.Breakdowns[BreakdownAgeGender], byCost, summarySegmentLimit,
		func(k domain.AggregationKey, m domain.SegmentMetrics) string {
			return fmt.Sprintf("%s | %s: cost=%.0f, impressions=%.0f, clicks=%.0f, link_clicks=%.0f, CTR=%.2f%%, Link CTR=%.2f%%, WA leads=%.0f, CPWA=%.0f",
				k.Primary, k.Secondary, m.Cost, m.Impressions, m.Clicks, m.LinkClicks, m.CTR, m.LCTR, m.WhatsAppLeads, m.CPWA)
		})

	writeSection(&b, "Enhanced Age & Gender Metrics", s.Breakdowns[BreakdownAgeGenderEnhanced], byCost, summarySegmentLimit,
		func(k domain.AggregationKey, m domain.SegmentMetrics) string {
			return fmt.Sprintf("%s: Reach=%.0f, Frequency=%.2f, CPM=%.0f, CPC=%.0f, CPLC=%.0f, Conv Rate=%.2f%%, FB Leads=%.0f, Lead Form=%.0f",
				k, m.Reach, m.FrequencyAvg, m.CPM, m.CPC, m.CPLC, m.ConversionRate, m.FacebookLeads, m.LeadForm)
		})

	writeSection(&b, "Breakdown performa berdasarkan Region", s.Breakdowns[BreakdownRegionEnhanced], byCost, summarySegmentLimit,
		func(k domain.AggregationKey, m domain.SegmentMetrics) string {
			return fmt.Sprintf("%s: cost=%.0f, impressions=%.0f, clicks=%.0f, link_clicks=%.0f, reach=%.0f, CPM=%.0f, CPC=%.0f, CTR=%.2f%%, Link CTR=%.2f%%",
				k, m.Cost, m.Impressions, m.Clicks, m.LinkClicks, m.Reach, m.CPM, m.CPC, m.CTR, m.LCTR)
		})

	writeSection(&b, "Enhanced Adset Breakdown", s.Breakdowns[BreakdownAdsetEnhanced], byCost, summaryAdsetLimit,
		func(k domain.AggregationKey, m domain.SegmentMetrics) string {
			return fmt.Sprintf("%s: Cost=%.0f, Reach=%.0f, Freq=%.2f, CPM=%.0f, CPC=%.0f, CPLC=%.0f, CTR=%.2f%%, LCTR=%.2f%%, Conv Rate=%.2f%%",
				k, m.Cost, m.Reach, m.FrequencyAvg, m.CPM, m.CPC, m.CPLC, m.CTR, m.LCTR, m.ConversionRate)
		})

	if total := aggregate.OutboundTotal(s.Outbound); total > 0 {
		b.WriteString("\nOutbound Clicks Channel Breakdown:\n")
		fmt.Fprintf(&b, "  - Total Outbound Clicks: %.0f\n", total)
		for _, share := range s.Outbound {
			fmt.Fprintf(&b, "  - %s: %.0f (%.1f%%)\n", share.Channel, share.Clicks, share.Percent)
		}
	}

	period := func(k domain.AggregationKey, m domain.SegmentMetrics) string {
		return fmt.Sprintf("%s: Cost=%.0f, Reach=%.0f, CPM=%.0f, CTR=%.2f%%, Conv Rate=%.2f%%",
			k, m.Cost, m.Reach, m.CPM, m.CTR, m.ConversionRate)
	}
	writeSection(&b, "Weekly Performance Trend", s.Breakdowns[BreakdownWeekly], newestFirst, summaryWeekLimit, period)
	writeSection(&b, "Monthly Performance Trend", s.Breakdowns[BreakdownMonthly], newestFirst, summaryMonthLimit, period)

	if s.Ranking != nil && len(s.Ranking.Segments) > 0 {
		b.WriteString("\n" + rankingAnswer(s) + "\n")
	}

	if d := s.Diagnostics; d.UnparsedDates > 0 {
		fmt.Fprintf(&b, "\nCatatan: %d baris dengan tanggal yang tidak terbaca diabaikan untuk filter periode.\n", d.UnparsedDates)
	}
	if s.Diagnostics.NoDateColumn {
		b.WriteString("\nCatatan: tidak ada kolom tanggal, filter periode tidak diterapkan.\n")
	}

	return b.String()
}

type keyOrder func(domain.Breakdown) []domain.AggregationKey

func byCost(b domain.Breakdown) []domain.AggregationKey {
	return aggregate.SortByMetric(b, domain.MetricCost)
}

func newestFirst(b domain.Breakdown) []domain.AggregationKey {
	keys := aggregate.SortedKeys(b)
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].String() > keys[j].String() })
	return keys
}

func writeSection(b *strings.Builder, title string, bd domain.Breakdown, order keyOrder, limit int, line func(domain.AggregationKey, domain.SegmentMetrics) string) {
	if len(bd) == 0 {
		return
	}
	keys := order(bd)
	if len(keys) > limit {
		keys = keys[:limit]
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, k := range keys {
		b.WriteString("  - " + line(k, bd[k]) + "\n")
	}
}
