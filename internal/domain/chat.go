package domain

import (
	"time"
)

// named tab of a spreadsheet source
type Worksheet struct {
	SourceID string `json:"source_id"`
	Name     string `json:"name"`
	Rows     []Row  `json:"rows"`
}

type WorksheetInfo struct {
	SourceID string `json:"source_id"`
	Name     string `json:"worksheet"`
	RowCount int    `json:"row_count"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// one chat turn
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type AnswerRequest struct {
	Question string    `json:"question"`
	Summary  string    `json:"summary"`
	Intent   Intent    `json:"intent"`
	History  []Message `json:"history"`
}

// Breakdown maps each bucket to its metrics.
type Breakdown map[AggregationKey]SegmentMetrics

type RankedSegment struct {
	Key     AggregationKey `json:"key"`
	Value   float64        `json:"value"`
	Metrics SegmentMetrics `json:"metrics"`
}

type Ranking struct {
	Spec     RankingSpec     `json:"spec"`
	Segments []RankedSegment `json:"segments"`
	// Excluded counts buckets dropped for a zero denominator.
	Excluded int `json:"excluded"`
}

type OutboundShare struct {
	Channel string  `json:"channel"`
	Clicks  float64 `json:"clicks"`
	Percent float64 `json:"percent"`
}

// Diagnostics records degraded input seen during a run.
type Diagnostics struct {
	RowsIn        int      `json:"rows_in"`
	RowsKept      int      `json:"rows_kept"`
	UnparsedDates int      `json:"unparsed_dates"`
	NoDateColumn  bool     `json:"no_date_column"`
	UndatedRows   int      `json:"undated_rows"`
	SkippedStages []string `json:"skipped_stages,omitempty"`
	RankingError  string   `json:"ranking_error,omitempty"`
	Interrupted   string   `json:"interrupted,omitempty"`
}

// Bundle is the structured result handed to answer generation.
type Bundle struct {
	Intent            Intent               `json:"intent"`
	MainTotals        SegmentMetrics       `json:"main_totals"`
	Breakdowns        map[string]Breakdown `json:"breakdowns"`
	Outbound          []OutboundShare      `json:"outbound"`
	Months            []string             `json:"months"`
	AdsetsByWorksheet map[string][]string  `json:"adsets_by_worksheet"`
	Ranking           *Ranking             `json:"ranking,omitempty"`
	Answer            string               `json:"answer"`
	Direct            bool                 `json:"direct"`
	Summary           string               `json:"summary,omitempty"`
	Diagnostics       Diagnostics          `json:"diagnostics"`
}
