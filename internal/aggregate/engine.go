package aggregate

import (
	"adsinsight/internal/domain"
	"adsinsight/internal/normalize"
)

// MetricSet selects which raw metrics a fold reads.
type MetricSet uint16

const (
	FieldCost MetricSet = 1 << iota
	FieldImpressions
	FieldClicks
	FieldLinkClicks
	FieldWhatsAppLeads
	FieldFacebookLeads
	FieldLeadForm
	FieldMessaging
	FieldReach
	FieldFrequency
)

var (
	// BasicMetrics is the spend, delivery and WhatsApp subset.
	BasicMetrics = FieldCost | FieldImpressions | FieldClicks | FieldLinkClicks | FieldWhatsAppLeads
	// FullMetrics reads every raw metric.
	FullMetrics = BasicMetrics | FieldFacebookLeads | FieldLeadForm | FieldMessaging | FieldReach | FieldFrequency
)

func (s MetricSet) Has(f MetricSet) bool {
	return s&f != 0
}

// KeyFunc maps a row to its bucket. Returning false leaves the row out.
type KeyFunc func(domain.Row) (domain.AggregationKey, bool)

// Fold adds one row's metrics into t.
func Fold(t domain.Totals, row domain.Row, set MetricSet) domain.Totals {
	t.Rows++
	if set.Has(FieldCost) {
		t.Cost += normalize.ResolveNumber(row, normalize.Cost)
	}
	if set.Has(FieldImpressions) {
		t.Impressions += normalize.ResolveNumber(row, normalize.Impressions)
	}
	if set.Has(FieldClicks) {
		t.Clicks += normalize.ResolveNumber(row, normalize.Clicks)
	}
	if set.Has(FieldLinkClicks) {
		t.LinkClicks += normalize.ResolveNumber(row, normalize.LinkClicks)
	}
	if set.Has(FieldWhatsAppLeads) {
		t.WhatsAppLeads += normalize.ResolveNumber(row, normalize.WhatsAppLeads)
	}
	if set.Has(FieldFacebookLeads) {
		t.FacebookLeads += normalize.ResolveNumber(row, normalize.FacebookLeads)
	}
	if set.Has(FieldLeadForm) {
		t.LeadForm += normalize.ResolveNumber(row, normalize.LeadForm)
	}
	if set.Has(FieldMessaging) {
		t.Messaging += normalize.ResolveNumber(row, normalize.Messaging)
	}
	if set.Has(FieldReach) {
		t.Reach += normalize.ResolveNumber(row, normalize.Reach)
	}
	if set.Has(FieldFrequency) {
		// frequency is already an average per row; only observed values count
		if f := normalize.ResolveNumber(row, normalize.Frequency); f > 0 {
			t.FrequencySum += f
			t.FrequencyCount++
		}
	}
	return t
}

// Aggregate groups rows by key and derives every bucket's ratios.
func Aggregate(rows []domain.Row, key KeyFunc, set MetricSet) domain.Breakdown {
	b, _ := AggregateCounted(rows, key, set)
	return b
}

// AggregateCounted is Aggregate that also reports how many rows the key
// function left out.
func AggregateCounted(rows []domain.Row, key KeyFunc, set MetricSet) (domain.Breakdown, int) {
	totals := make(map[domain.AggregationKey]domain.Totals)
	skipped := 0
	for _, row := range rows {
		k, ok := key(row)
		if !ok {
			skipped++
			continue
		}
		totals[k] = Fold(totals[k], row, set)
	}

	out := make(domain.Breakdown, len(totals))
	for k, t := range totals {
		out[k] = domain.NewSegmentMetrics(t)
	}
	return out, skipped
}

// Totalize folds every row into a single bucket.
func Totalize(rows []domain.Row, set MetricSet) domain.SegmentMetrics {
	var t domain.Totals
	for _, row := range rows {
		t = Fold(t, row, set)
	}
	return domain.NewSegmentMetrics(t)
}
