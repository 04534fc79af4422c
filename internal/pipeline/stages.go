package pipeline

import (
	"errors"
	"strings"

	"adsinsight/internal/aggregate"
	"adsinsight/internal/normalize"
)

func (p *Pipeline) stageTable() []Stage {
	return []Stage{
		{Name: "classify", Run: p.classify},
		{Name: "filter_period", Run: filterPeriod},
		{Name: "filter_segment", Run: filterSegment},
		{Name: "extract_months", Run: extractMonths},
		{Name: "monthly", Run: monthly},
		{Name: "adsets_by_worksheet", Run: adsetsByWorksheet},
		{Name: "main_totals", Run: mainTotals},
		{Name: "breakdown_adset", Run: breakdown(BreakdownAdset, aggregate.ByDimension(normalize.Adset), aggregate.BasicMetrics)},
		{Name: "breakdown_ad", Run: p.guarded("breakdown_ad", breakdown(BreakdownAd, aggregate.ByDimension(normalize.Ad), aggregate.BasicMetrics))},
		{Name: "breakdown_age_gender", Run: breakdown(BreakdownAgeGender, aggregate.ByAgeGender(), aggregate.BasicMetrics)},
		{Name: "breakdown_region", Run: breakdown(BreakdownRegion, aggregate.ByRegion(), aggregate.BasicMetrics)},
		{Name: "enhanced_adset", Run: breakdown(BreakdownAdsetEnhanced, aggregate.ByDimension(normalize.Adset), aggregate.FullMetrics)},
		{Name: "enhanced_ad", Run: p.guarded("enhanced_ad", breakdown(BreakdownAdEnhanced, aggregate.ByDimension(normalize.Ad), aggregate.FullMetrics))},
		{Name: "enhanced_age_gender", Run: breakdown(BreakdownAgeGenderEnhanced, aggregate.ByAgeGender(), aggregate.FullMetrics)},
		{Name: "enhanced_region", Run: breakdown(BreakdownRegionEnhanced, aggregate.ByRegion(), aggregate.FullMetrics)},
		{Name: "period_daily", Run: p.guarded("period_daily", period(BreakdownDaily, aggregate.Daily))},
		{Name: "period_weekly", Run: period(BreakdownWeekly, aggregate.Weekly)},
		{Name: "period_monthly", Run: period(BreakdownMonthly, aggregate.Monthly)},
		{Name: "outbound_clicks", Run: outboundClicks},
		{Name: "breakdown_worksheet", Run: breakdown(BreakdownWorksheet, aggregate.ByWorksheet(), aggregate.BasicMetrics)},
		{Name: "rank", Run: p.rank},
		{Name: "answer", Run: answer},
	}
}

func (p *Pipeline) classify(s State) State {
	if !s.classified {
		s.Intent = p.classifier.Classify(s.Question)
		s.classified = true
	}
	return s
}

func filterPeriod(s State) State {
	res := aggregate.FilterByPeriod(s.Rows, s.Intent.Temporal, s.Now)
	s.Rows = res.Rows
	s.Diagnostics.UnparsedDates = res.Unparsed
	s.Diagnostics.NoDateColumn = res.NoDateColumn
	s.Diagnostics.RowsKept = len(s.Rows)
	return s
}

func filterSegment(s State) State {
	s.Rows = aggregate.FilterBySegment(s.Rows, s.Intent.Segment)
	s.Diagnostics.RowsKept = len(s.Rows)
	return s
}

// extractMonths lists every month in the input, not just the filtered window.
func extractMonths(s State) State {
	s.Months = aggregate.Months(s.Source, s.Now)
	return s
}

// monthly totals ignore the period filter so that month lookups and trends
// see every month, but honour the segment filter.
func monthly(s State) State {
	rows := aggregate.FilterBySegment(s.Source, s.Intent.Segment)
	s = s.withBreakdown(BreakdownMonthTotals, aggregate.Aggregate(rows, aggregate.ByMonth(s.Now), aggregate.FullMetrics))
	return s.withBreakdown(BreakdownAgeGenderMonthly, aggregate.Aggregate(rows, aggregate.ByAgeGenderMonth(s.Now), aggregate.BasicMetrics))
}

func adsetsByWorksheet(s State) State {
	s.AdsetsByWorksheet = aggregate.AdsetsByWorksheet(s.Source)
	return s
}

func mainTotals(s State) State {
	s.MainTotals = aggregate.Totalize(s.Rows, aggregate.FullMetrics)
	return s
}

func breakdown(name string, key aggregate.KeyFunc, set aggregate.MetricSet) func(State) State {
	return func(s State) State {
		return s.withBreakdown(name, aggregate.Aggregate(s.Rows, key, set))
	}
}

func period(name string, p aggregate.Period) func(State) State {
	return func(s State) State {
		b, undated := aggregate.AggregateCounted(s.Rows, aggregate.ByPeriod(p, s.Now), aggregate.FullMetrics)
		s.Diagnostics.UndatedRows = undated
		return s.withBreakdown(name, b)
	}
}

// guarded skips run on large inputs unless the question asked for detail.
func (p *Pipeline) guarded(name string, run func(State) State) func(State) State {
	return func(s State) State {
		if !p.guard.Allow(len(s.Rows), s.Intent.Granular) {
			return s.skip(name)
		}
		return run(s)
	}
}

func outboundClicks(s State) State {
	s.Outbound = aggregate.Outbound(s.Rows)
	return s
}

func (p *Pipeline) rank(s State) State {
	spec := s.Intent.Ranking
	if spec == nil {
		return s
	}

	b := aggregate.Aggregate(s.Rows, aggregate.KeyForDimension(spec.Dimension), aggregate.FullMetrics)
	r, err := aggregate.Rank(b, spec.Metric, spec.Direction, spec.TopN)
	r.Spec.Dimension = spec.Dimension
	s.Ranking = &r
	s.RankingErr = err
	if err != nil {
		s.Diagnostics.RankingError = err.Error()
		if errors.Is(err, aggregate.ErrNoQualifyingSegments) {
			p.metrics.RecordEmptyRanking(string(spec.Metric))
		}
	}
	return s
}

func isBlank(q string) bool {
	return strings.TrimSpace(q) == ""
}
