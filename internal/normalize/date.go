package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"adsinsight/internal/domain"
)

// MonthNames maps English and Indonesian month spellings to month numbers.
var MonthNames = map[string]time.Month{
	"january": time.January, "jan": time.January, "januari": time.January,
	"february": time.February, "feb": time.February, "februari": time.February, "pebruari": time.February,
	"march": time.March, "mar": time.March, "maret": time.March,
	"april": time.April, "apr": time.April,
	"may": time.May, "mei": time.May,
	"june": time.June, "jun": time.June, "juni": time.June,
	"july": time.July, "jul": time.July, "juli": time.July,
	"august": time.August, "aug": time.August, "agustus": time.August, "agu": time.August, "agt": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October, "oktober": time.October, "okt": time.October,
	"november": time.November, "nov": time.November, "nop": time.November,
	"december": time.December, "dec": time.December, "desember": time.December, "des": time.December,
}

// Indonesian display names, indexed by month number.
var monthDisplay = [...]string{"", "Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember"}

// MonthDisplayName returns the Indonesian name of m.
func MonthDisplayName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthDisplay[m]
}

var (
	isoDatePattern   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:$|[T\s])`)
	dmyDatePattern   = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})(?:$|\s)`)
	yearMonthPattern = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})$`)
	tokenSplit       = regexp.MustCompile(`[^\p{L}\d]+`)
	yearToken        = regexp.MustCompile(`^\d{4}$`)
	dayToken         = regexp.MustCompile(`^\d{1,2}$`)
)

// ParseDate parses raw relative to the current year.
func ParseDate(raw string) (time.Time, bool) {
	return ParseDateAt(raw, time.Now())
}

// ParseDateAt tries, in order: YYYY-MM-DD, DD/MM/YYYY, YYYY-MM, a month name
// next to a four digit year, and a bare month name (year taken from ref).
// Dates that do not exist on the calendar are rejected.
func ParseDateAt(raw string, ref time.Time) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if m := isoDatePattern.FindStringSubmatch(s); m != nil {
		return calendarDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}
	if m := dmyDatePattern.FindStringSubmatch(s); m != nil {
		return calendarDate(atoi(m[3]), atoi(m[2]), atoi(m[1]))
	}
	if m := yearMonthPattern.FindStringSubmatch(s); m != nil {
		return calendarDate(atoi(m[1]), atoi(m[2]), 1)
	}

	tokens := tokenSplit.Split(strings.ToLower(s), -1)
	tokens = compact(tokens)
	for i, tok := range tokens {
		month, ok := MonthNames[tok]
		if !ok {
			continue
		}
		year := 0
		switch {
		case i+1 < len(tokens) && yearToken.MatchString(tokens[i+1]):
			year = atoi(tokens[i+1])
		case i > 0 && yearToken.MatchString(tokens[i-1]):
			year = atoi(tokens[i-1])
		}
		day := 1
		if i > 0 && dayToken.MatchString(tokens[i-1]) {
			day = atoi(tokens[i-1])
		}
		if year == 0 {
			if len(tokens) != 1 {
				return time.Time{}, false
			}
			year = ref.Year()
		}
		return calendarDate(year, int(month), day)
	}
	return time.Time{}, false
}

func calendarDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func compact(tokens []string) []string {
	out := tokens[:0]
	for _, t := range tokens {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

var (
	exactDateLabels     = []string{"date", "tanggal", "tgl", "day", "reporting starts"}
	substringDateLabels = []string{"date", "tanggal", "tgl"}
	wordDateLabels      = []string{"day", "dt"}
)

// DateColumn returns the index of the row's date column: an exact date label
// first, then the first label carrying a date-like token.
func DateColumn(row domain.Row) (int, bool) {
	for _, want := range exactDateLabels {
		for i := 0; i < row.Len(); i++ {
			if row.KeyAt(i) == want {
				return i, true
			}
		}
	}
	for i := 0; i < row.Len(); i++ {
		label := row.KeyAt(i)
		for _, token := range substringDateLabels {
			if strings.Contains(label, token) {
				return i, true
			}
		}
		for _, word := range tokenSplit.Split(label, -1) {
			for _, token := range wordDateLabels {
				if word == token {
					return i, true
				}
			}
		}
	}
	return 0, false
}

// RowDate locates and parses the row's date. hasColumn is false when the row
// carries no date column at all.
func RowDate(row domain.Row, ref time.Time) (date time.Time, ok bool, hasColumn bool) {
	idx, found := DateColumn(row)
	if !found {
		return time.Time{}, false, false
	}
	date, ok = DateValue(row.ValueAt(idx), ref)
	return date, ok, true
}

// DateValue parses a cell that may already hold a time.
func DateValue(v any, ref time.Time) (time.Time, bool) {
	switch d := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if d.IsZero() {
			return time.Time{}, false
		}
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), true
	case string:
		return ParseDateAt(d, ref)
	default:
		return ParseDateAt(fmt.Sprint(v), ref)
	}
}

// WeekOfMonth is the 1-based seven day block of the month: days 1-7 are
// week 1, days 29-31 week 5.
func WeekOfMonth(t time.Time) int {
	return (t.Day()-1)/7 + 1
}

// MonthLabel formats a date as YYYY-MM.
func MonthLabel(t time.Time) string {
	return t.Format("2006-01")
}

// ISOWeekLabel formats a date as YYYY-Www using the ISO calendar week.
func ISOWeekLabel(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// DayLabel formats a date as YYYY-MM-DD.
func DayLabel(t time.Time) string {
	return t.Format("2006-01-02")
}
