package domain

// IntentKind is the primary classification of a question.
type IntentKind string

const (
	IntentTrend        IntentKind = "trend"
	IntentRanking      IntentKind = "ranking"
	IntentAdvice       IntentKind = "advice"
	IntentPerformance  IntentKind = "performance"
	IntentMonthListing IntentKind = "month_listing"
	IntentGeneral      IntentKind = "general"
)

type Direction string

const (
	Highest Direction = "highest"
	Lowest  Direction = "lowest"
)

// Dimension names a grouping axis.
type Dimension string

const (
	DimensionAdset     Dimension = "adset"
	DimensionAd        Dimension = "ad"
	DimensionRegion    Dimension = "region"
	DimensionAge       Dimension = "age"
	DimensionGender    Dimension = "gender"
	DimensionAgeGender Dimension = "age_gender"
	DimensionCampaign  Dimension = "campaign"
	DimensionWorksheet Dimension = "worksheet"
)

// Topic marks questions about the data set itself rather than its metrics.
type Topic string

const (
	TopicAdsetList          Topic = "adset_list"
	TopicWorksheetBreakdown Topic = "worksheet_breakdown"
	TopicWorksheetInfo      Topic = "worksheet_info"
)

type RankingSpec struct {
	Direction Direction `json:"direction"`
	Dimension Dimension `json:"dimension,omitempty"`
	Metric    Metric    `json:"metric,omitempty"`
	TopN      int       `json:"top_n,omitempty"`
}

// Temporal is a calendar window; zero fields are unset.
type Temporal struct {
	Year        int `json:"year,omitempty"`
	Month       int `json:"month,omitempty"`
	WeekOfMonth int `json:"week_of_month,omitempty"`
}

func (t Temporal) IsZero() bool {
	return t.Year == 0 && t.Month == 0 && t.WeekOfMonth == 0
}

type SegmentFilter struct {
	AgeRange  string `json:"age_range,omitempty"`
	Gender    string `json:"gender,omitempty"`
	AdsetName string `json:"adset_name,omitempty"`
}

func (s SegmentFilter) IsZero() bool {
	return s.AgeRange == "" && s.Gender == "" && s.AdsetName == ""
}

// Intent is the structured reading of one question.
type Intent struct {
	Kind        IntentKind    `json:"kind"`
	Question    string        `json:"question"`
	TrendMonths int           `json:"trend_months,omitempty"`
	Ranking     *RankingSpec  `json:"ranking,omitempty"`
	Temporal    Temporal      `json:"temporal"`
	Segment     SegmentFilter `json:"segment_filter"`
	// Metric is the first metric the question mentions, if any.
	Metric Metric `json:"metric,omitempty"`
	Topic  Topic  `json:"topic,omitempty"`
	// Granular is set when the question asks for per-day detail.
	Granular bool `json:"granular,omitempty"`
}
