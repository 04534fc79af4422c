package pipeline

import (
	"maps"
	"slices"
	"time"

	"adsinsight/internal/domain"
)

// Breakdown names in State.Breakdowns.
const (
	BreakdownAdset             = "adset"
	BreakdownAd                = "ad"
	BreakdownAgeGender         = "age_gender"
	BreakdownRegion            = "region"
	BreakdownAdsetEnhanced     = "adset_enhanced"
	BreakdownAdEnhanced        = "ad_enhanced"
	BreakdownAgeGenderEnhanced = "age_gender_enhanced"
	BreakdownRegionEnhanced    = "region_enhanced"
	BreakdownDaily             = "daily"
	BreakdownWeekly            = "weekly"
	BreakdownMonthly           = "monthly"
	BreakdownWorksheet         = "worksheet"
	BreakdownMonthTotals       = "month_totals"
	BreakdownAgeGenderMonthly  = "age_gender_monthly"
)

// State is threaded through the stages by value. A stage returns a new
// state and never mutates maps or slices it received.
type State struct {
	Question string
	History  []domain.Message
	Now      time.Time

	// Source is every input row; Rows is what survives the filters.
	Source []domain.Row
	Rows   []domain.Row

	Intent            domain.Intent
	classified        bool
	MainTotals        domain.SegmentMetrics
	Breakdowns        map[string]domain.Breakdown
	Outbound          []domain.OutboundShare
	Months            []string
	AdsetsByWorksheet map[string][]string
	Ranking           *domain.Ranking
	RankingErr        error

	Answer  string
	Direct  bool
	Summary string

	Diagnostics domain.Diagnostics
}

func (s State) withBreakdown(name string, b domain.Breakdown) State {
	next := make(map[string]domain.Breakdown, len(s.Breakdowns)+1)
	maps.Copy(next, s.Breakdowns)
	next[name] = b
	s.Breakdowns = next
	return s
}

func (s State) skip(stage string) State {
	s.Diagnostics.SkippedStages = append(slices.Clone(s.Diagnostics.SkippedStages), stage)
	return s
}

// Bundle is the outward view of a finished (or interrupted) run.
func (s State) Bundle() domain.Bundle {
	breakdowns := s.Breakdowns
	if breakdowns == nil {
		breakdowns = map[string]domain.Breakdown{}
	}
	return domain.Bundle{
		Intent:            s.Intent,
		MainTotals:        s.MainTotals,
		Breakdowns:        breakdowns,
		Outbound:          s.Outbound,
		Months:            s.Months,
		AdsetsByWorksheet: s.AdsetsByWorksheet,
		Ranking:           s.Ranking,
		Answer:            s.Answer,
		Direct:            s.Direct,
		Summary:           s.Summary,
		Diagnostics:       s.Diagnostics,
	}
}
