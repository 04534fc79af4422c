package aggregate

import (
	"strings"
	"time"

	"adsinsight/internal/domain"
	"adsinsight/internal/normalize"
)

// Period is a calendar granularity.
type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

// ByDimension keys rows by a resolver dimension such as normalize.Adset.
func ByDimension(name string) KeyFunc {
	return func(row domain.Row) (domain.AggregationKey, bool) {
		return domain.Key(normalize.ResolveLabel(row, name)), true
	}
}

func ByRegion() KeyFunc {
	return ByDimension(normalize.Region)
}

// ByAgeGender keys rows by the composite age|gender label.
func ByAgeGender() KeyFunc {
	return func(row domain.Row) (domain.AggregationKey, bool) {
		return domain.PairKey(normalize.ResolveLabel(row, normalize.Age), normalize.ResolveLabel(row, normalize.Gender)), true
	}
}

// ByWorksheet keys rows by their (source, worksheet) pair.
func ByWorksheet() KeyFunc {
	return func(row domain.Row) (domain.AggregationKey, bool) {
		return domain.PairKey(orUnknown(row.SourceID()), orUnknown(row.Worksheet())), true
	}
}

// ByPeriod keys rows by a day, ISO week or month label. Rows without a
// readable date are left out.
func ByPeriod(p Period, ref time.Time) KeyFunc {
	return func(row domain.Row) (domain.AggregationKey, bool) {
		d, ok, _ := normalize.RowDate(row, ref)
		if !ok {
			return domain.AggregationKey{}, false
		}
		return domain.Key(PeriodLabel(p, d)), true
	}
}

// ByMonth keys rows by YYYY-MM, reading a month column when the row has
// no date.
func ByMonth(ref time.Time) KeyFunc {
	return func(row domain.Row) (domain.AggregationKey, bool) {
		m, ok := RowMonth(row, ref)
		if !ok {
			return domain.AggregationKey{}, false
		}
		return domain.Key(normalize.MonthLabel(m)), true
	}
}

// ByAgeGenderMonth keys rows by age|gender and month, for segmented trends.
func ByAgeGenderMonth(ref time.Time) KeyFunc {
	return func(row domain.Row) (domain.AggregationKey, bool) {
		d, ok, _ := normalize.RowDate(row, ref)
		if !ok {
			return domain.AggregationKey{}, false
		}
		segment := normalize.ResolveLabel(row, normalize.Age) + "|" + normalize.ResolveLabel(row, normalize.Gender)
		return domain.PairKey(segment, normalize.MonthLabel(d)), true
	}
}

func PeriodLabel(p Period, d time.Time) string {
	switch p {
	case Weekly:
		return normalize.ISOWeekLabel(d)
	case Monthly:
		return normalize.MonthLabel(d)
	default:
		return normalize.DayLabel(d)
	}
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return domain.UnknownKey
	}
	return s
}

// KeyForDimension returns the key function for a ranking dimension.
func KeyForDimension(dim domain.Dimension) KeyFunc {
	switch dim {
	case domain.DimensionAdset:
		return ByDimension(normalize.Adset)
	case domain.DimensionAd:
		return ByDimension(normalize.Ad)
	case domain.DimensionRegion:
		return ByRegion()
	case domain.DimensionAge:
		return ByDimension(normalize.Age)
	case domain.DimensionGender:
		return ByDimension(normalize.Gender)
	case domain.DimensionAgeGender:
		return ByAgeGender()
	case domain.DimensionCampaign:
		return ByDimension(normalize.Campaign)
	case domain.DimensionWorksheet:
		return ByWorksheet()
	default:
		return ByDimension(string(dim))
	}
}
