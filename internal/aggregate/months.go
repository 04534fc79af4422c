package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"adsinsight/internal/domain"
	"adsinsight/internal/normalize"
)

// RowMonth reads a row's month from its date column, falling back to a
// month column such as "Oktober 2025".
func RowMonth(row domain.Row, ref time.Time) (time.Time, bool) {
	if d, ok, _ := normalize.RowDate(row, ref); ok {
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC), true
	}
	v := normalize.Resolve(row, normalize.Month, nil)
	if v == nil {
		return time.Time{}, false
	}
	d, ok := normalize.DateValue(v, ref)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC), true
}

// Months returns the distinct YYYY-MM labels present in rows, oldest first.
func Months(rows []domain.Row, ref time.Time) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		if m, ok := RowMonth(row, ref); ok {
			seen[normalize.MonthLabel(m)] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// MonthDisplay turns "2025-10" into "Oktober 2025".
func MonthDisplay(label string) string {
	t, err := time.Parse("2006-01", label)
	if err != nil {
		return label
	}
	return fmt.Sprintf("%s %d", normalize.MonthDisplayName(t.Month()), t.Year())
}

// AdsetsByWorksheet lists the distinct ad set names of each worksheet.
func AdsetsByWorksheet(rows []domain.Row) map[string][]string {
	sets := make(map[string]map[string]struct{})
	for _, row := range rows {
		ws := orUnknown(row.Worksheet())
		if sets[ws] == nil {
			sets[ws] = make(map[string]struct{})
		}
		name := normalize.ResolveLabel(row, normalize.Adset)
		if name == domain.UnknownKey || strings.TrimSpace(name) == "" {
			continue
		}
		sets[ws][name] = struct{}{}
	}

	out := make(map[string][]string, len(sets))
	for ws, names := range sets {
		list := make([]string, 0, len(names))
		for n := range names {
			list = append(list, n)
		}
		sort.Strings(list)
		out[ws] = list
	}
	return out
}
