package aggregate

import (
	"strings"
	"time"

	"adsinsight/internal/domain"
	"adsinsight/internal/normalize"
)

type PeriodFilterResult struct {
	Rows []domain.Row
	// Applied is false when the window was empty or no date column exists.
	Applied      bool
	Kept         int
	Dropped      int
	Unparsed     int
	NoDateColumn bool
}

// FilterByPeriod keeps rows whose date matches every set field of t. Week
// is the seven day block of the month, not the ISO week. Rows whose date
// cannot be read are dropped and counted.
func FilterByPeriod(rows []domain.Row, t domain.Temporal, ref time.Time) PeriodFilterResult {
	if t.IsZero() {
		return PeriodFilterResult{Rows: rows, Kept: len(rows)}
	}

	if !anyDateColumn(rows) {
		return PeriodFilterResult{Rows: rows, Kept: len(rows), NoDateColumn: true}
	}

	res := PeriodFilterResult{Applied: true, Rows: make([]domain.Row, 0, len(rows))}
	for _, row := range rows {
		d, ok, _ := normalize.RowDate(row, ref)
		if !ok {
			res.Unparsed++
			res.Dropped++
			continue
		}
		if !matchesPeriod(d, t) {
			res.Dropped++
			continue
		}
		res.Rows = append(res.Rows, row)
	}
	res.Kept = len(res.Rows)
	return res
}

func matchesPeriod(d time.Time, t domain.Temporal) bool {
	if t.Year != 0 && d.Year() != t.Year {
		return false
	}
	if t.Month != 0 && int(d.Month()) != t.Month {
		return false
	}
	if t.WeekOfMonth != 0 && normalize.WeekOfMonth(d) != t.WeekOfMonth {
		return false
	}
	return true
}

func anyDateColumn(rows []domain.Row) bool {
	for _, row := range rows {
		if _, ok := normalize.DateColumn(row); ok {
			return true
		}
	}
	return false
}

// FilterBySegment narrows rows to an age range, gender and ad set. Age and
// gender are only applied when at least one row carries that column. The ad
// set name must match at least one row, exactly or else as a substring;
// a name that matches nothing is ignored.
func FilterBySegment(rows []domain.Row, s domain.SegmentFilter) []domain.Row {
	if s.IsZero() {
		return rows
	}

	checkAge := s.AgeRange != "" && anyColumn(rows, normalize.Age)
	checkGender := s.Gender != "" && anyColumn(rows, normalize.Gender)
	matchAdset := adsetMatcher(rows, s.AdsetName)
	checkAdset := matchAdset != nil
	if !checkAge && !checkGender && !checkAdset {
		return rows
	}

	out := make([]domain.Row, 0, len(rows))
	for _, row := range rows {
		if checkAge && compactLabel(normalize.ResolveLabel(row, normalize.Age)) != compactLabel(s.AgeRange) {
			continue
		}
		if checkGender && CanonicalGender(normalize.ResolveLabel(row, normalize.Gender)) != s.Gender {
			continue
		}
		if checkAdset && !matchAdset(adsetLabel(row)) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// adsetMatcher picks exact matching when some row's ad set equals name,
// substring matching when some row contains it, and nil otherwise.
func adsetMatcher(rows []domain.Row, name string) func(string) bool {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return nil
	}

	exact := func(label string) bool { return label == want }
	partial := func(label string) bool { return strings.Contains(label, want) }
	for _, match := range []func(string) bool{exact, partial} {
		for _, row := range rows {
			if normalize.Resolve(row, normalize.Adset, nil) != nil && match(adsetLabel(row)) {
				return match
			}
		}
	}
	return nil
}

func adsetLabel(row domain.Row) string {
	return strings.ToLower(normalize.ResolveLabel(row, normalize.Adset))
}

func anyColumn(rows []domain.Row, name string) bool {
	for _, row := range rows {
		if normalize.Resolve(row, name, nil) != nil {
			return true
		}
	}
	return false
}

func compactLabel(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "")
}

// CanonicalGender maps source spellings to male, female or the input lower-cased.
func CanonicalGender(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "female", "wanita", "perempuan", "f", "women":
		return "female"
	case "male", "pria", "laki-laki", "laki", "m", "men":
		return "male"
	default:
		return strings.ToLower(strings.TrimSpace(v))
	}
}
