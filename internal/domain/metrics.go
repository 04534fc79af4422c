package domain

import (
	"strings"
)

// UnknownKey is the bucket for rows missing a dimension value.
const UnknownKey = "Unknown"

// identifies one aggregate bucket
type AggregationKey struct {
	Primary   string
	Secondary string
}

func Key(primary string) AggregationKey {
	return AggregationKey{Primary: primary}
}

func PairKey(primary, secondary string) AggregationKey {
	return AggregationKey{Primary: primary, Secondary: secondary}
}

func (k AggregationKey) String() string {
	if k.Secondary == "" {
		return k.Primary
	}
	return k.Primary + "|" + k.Secondary
}

func (k AggregationKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *AggregationKey) UnmarshalText(text []byte) error {
	primary, secondary, _ := strings.Cut(string(text), "|")
	k.Primary = primary
	k.Secondary = secondary
	return nil
}

// raw per-bucket sums
type Totals struct {
	Rows           int     `json:"rows"`
	Cost           float64 `json:"cost"`
	Impressions    float64 `json:"impressions"`
	Clicks         float64 `json:"clicks"`
	LinkClicks     float64 `json:"link_clicks"`
	Reach          float64 `json:"reach"`
	FrequencySum   float64 `json:"frequency_sum"`
	FrequencyCount int     `json:"frequency_count"`
	WhatsAppLeads  float64 `json:"whatsapp_leads"`
	FacebookLeads  float64 `json:"facebook_leads"`
	LeadForm       float64 `json:"lead_form"`
	Messaging      float64 `json:"messaging"`
}

// Add merges other into t.
func (t Totals) Add(other Totals) Totals {
	t.Rows += other.Rows
	t.Cost += other.Cost
	t.Impressions += other.Impressions
	t.Clicks += other.Clicks
	t.LinkClicks += other.LinkClicks
	t.Reach += other.Reach
	t.FrequencySum += other.FrequencySum
	t.FrequencyCount += other.FrequencyCount
	t.WhatsAppLeads += other.WhatsAppLeads
	t.FacebookLeads += other.FacebookLeads
	t.LeadForm += other.LeadForm
	t.Messaging += other.Messaging
	return t
}

func (t Totals) Leads() float64 {
	return t.WhatsAppLeads + t.FacebookLeads + t.LeadForm
}

// ratios computed once all rows are folded in
type Derived struct {
	CTR            float64 `json:"ctr"`
	LCTR           float64 `json:"lctr"`
	CPM            float64 `json:"cpm"`
	CPC            float64 `json:"cpc"`
	CPLC           float64 `json:"cplc"`
	CPWA           float64 `json:"cpwa"`
	FrequencyAvg   float64 `json:"frequency_avg"`
	ConversionRate float64 `json:"conversion_rate"`
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// Derive computes every ratio. A zero denominator yields 0.
func (t Totals) Derive() Derived {
	return Derived{
		CTR:            ratio(t.Clicks, t.Impressions) * 100,
		LCTR:           ratio(t.LinkClicks, t.Impressions) * 100,
		CPM:            ratio(t.Cost, t.Impressions) * 1000,
		CPC:            ratio(t.Cost, t.Clicks),
		CPLC:           ratio(t.Cost, t.LinkClicks),
		CPWA:           ratio(t.Cost, t.WhatsAppLeads),
		FrequencyAvg:   ratio(t.FrequencySum, float64(t.FrequencyCount)),
		ConversionRate: ratio(t.Leads(), t.Clicks) * 100,
	}
}

type SegmentMetrics struct {
	Totals
	Derived
}

func NewSegmentMetrics(t Totals) SegmentMetrics {
	return SegmentMetrics{Totals: t, Derived: t.Derive()}
}

// Metric names a rankable quantity.
type Metric string

const (
	MetricCost          Metric = "cost"
	MetricImpressions   Metric = "impressions"
	MetricClicks        Metric = "clicks"
	MetricLinkClicks    Metric = "link_clicks"
	MetricReach         Metric = "reach"
	MetricWhatsAppLeads Metric = "whatsapp_leads"
	MetricFacebookLeads Metric = "facebook_leads"
	MetricLeadForm      Metric = "lead_form"
	MetricMessaging     Metric = "messaging"
	MetricLeads         Metric = "leads"
	MetricCTR           Metric = "ctr"
	MetricLCTR          Metric = "lctr"
	MetricCPM           Metric = "cpm"
	MetricCPC           Metric = "cpc"
	MetricCPLC          Metric = "cplc"
	MetricCPWA          Metric = "cpwa"
	MetricFrequency     Metric = "frequency"
	MetricConversion    Metric = "conversion_rate"
)

type metricDef struct {
	label       string
	value       func(SegmentMetrics) float64
	denominator func(SegmentMetrics) float64
}

var metricDefs = map[Metric]metricDef{
	MetricCost:          {label: "Cost", value: func(m SegmentMetrics) float64 { return m.Cost }},
	MetricImpressions:   {label: "Impressions", value: func(m SegmentMetrics) float64 { return m.Impressions }},
	MetricClicks:        {label: "Clicks", value: func(m SegmentMetrics) float64 { return m.Clicks }},
	MetricLinkClicks:    {label: "Link Clicks", value: func(m SegmentMetrics) float64 { return m.LinkClicks }},
	MetricReach:         {label: "Reach", value: func(m SegmentMetrics) float64 { return m.Reach }},
	MetricWhatsAppLeads: {label: "WhatsApp Leads", value: func(m SegmentMetrics) float64 { return m.WhatsAppLeads }},
	MetricFacebookLeads: {label: "On-Facebook Leads", value: func(m SegmentMetrics) float64 { return m.FacebookLeads }},
	MetricLeadForm:      {label: "Lead Form", value: func(m SegmentMetrics) float64 { return m.LeadForm }},
	MetricMessaging:     {label: "Messaging Conversations", value: func(m SegmentMetrics) float64 { return m.Messaging }},
	MetricLeads:         {label: "Leads", value: func(m SegmentMetrics) float64 { return m.Leads() }},
	MetricCTR: {
		label:       "CTR",
		value:       func(m SegmentMetrics) float64 { return m.CTR },
		denominator: func(m SegmentMetrics) float64 { return m.Impressions },
	},
	MetricLCTR: {
		label:       "LCTR",
		value:       func(m SegmentMetrics) float64 { return m.LCTR },
		denominator: func(m SegmentMetrics) float64 { return m.Impressions },
	},
	MetricCPM: {
		label:       "CPM",
		value:       func(m SegmentMetrics) float64 { return m.CPM },
		denominator: func(m SegmentMetrics) float64 { return m.Impressions },
	},
	MetricCPC: {
		label:       "CPC",
		value:       func(m SegmentMetrics) float64 { return m.CPC },
		denominator: func(m SegmentMetrics) float64 { return m.Clicks },
	},
	MetricCPLC: {
		label:       "CPLC",
		value:       func(m SegmentMetrics) float64 { return m.CPLC },
		denominator: func(m SegmentMetrics) float64 { return m.LinkClicks },
	},
	MetricCPWA: {
		label:       "CPWA",
		value:       func(m SegmentMetrics) float64 { return m.CPWA },
		denominator: func(m SegmentMetrics) float64 { return m.WhatsAppLeads },
	},
	MetricFrequency: {
		label:       "Frequency",
		value:       func(m SegmentMetrics) float64 { return m.FrequencyAvg },
		denominator: func(m SegmentMetrics) float64 { return float64(m.FrequencyCount) },
	},
	MetricConversion: {
		label:       "Conversion Rate",
		value:       func(m SegmentMetrics) float64 { return m.ConversionRate },
		denominator: func(m SegmentMetrics) float64 { return m.Clicks },
	},
}

func (m Metric) Known() bool {
	_, ok := metricDefs[m]
	return ok
}

func (m Metric) Label() string {
	if def, ok := metricDefs[m]; ok {
		return def.label
	}
	return string(m)
}

// Value reads the metric from a bucket. Unknown metrics read as 0.
func (m Metric) Value(s SegmentMetrics) float64 {
	def, ok := metricDefs[m]
	if !ok {
		return 0
	}
	return def.value(s)
}

// IsRatio reports whether the metric has a denominator that can be zero.
func (m Metric) IsRatio() bool {
	return metricDefs[m].denominator != nil
}

// Qualifies is false when the metric's denominator is zero for s.
// Plain counts always qualify.
func (m Metric) Qualifies(s SegmentMetrics) bool {
	def, ok := metricDefs[m]
	if !ok {
		return false
	}
	if def.denominator == nil {
		return true
	}
	return def.denominator(s) != 0
}

// LowerIsBetter is true for cost-per-result metrics.
func (m Metric) LowerIsBetter() bool {
	switch m {
	case MetricCPM, MetricCPC, MetricCPLC, MetricCPWA:
		return true
	}
	return false
}
