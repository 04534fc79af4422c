package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"adsinsight/internal/aggregate"
	"adsinsight/internal/domain"
	"adsinsight/internal/normalize"
)

const (
	NoMonthsAnswer = "Maaf, saya tidak dapat menemukan data bulan pada dataset Anda. " +
		"Pastikan kolom 'Date' atau 'Tanggal' tersedia dan berformat yang benar (YYYY-MM-DD atau DD/MM/YYYY). " +
		"Atau coba tanyakan informasi lain seperti 'Apa saja worksheet yang tersedia?'"
	NoAdsetsAnswer = "Tidak ada data ad set yang bisa diekstrak dari worksheet yang tersedia."

	defaultTrendMonths = 3
)

// answer picks a templated reply when the question has a deterministic
// answer, and otherwise leaves the summary for a generator.
func answer(s State) State {
	s.Summary = buildSummary(s)

	text, ok := directAnswer(s)
	if ok {
		s.Answer = text
		s.Direct = true
		return s
	}
	s.Answer = ""
	s.Direct = false
	return s
}

func directAnswer(s State) (string, bool) {
	switch s.Intent.Topic {
	case domain.TopicAdsetList:
		return adsetListAnswer(s.AdsetsByWorksheet), true
	case domain.TopicWorksheetBreakdown:
		return worksheetBreakdownAnswer(s.Breakdowns[BreakdownWorksheet]), true
	case domain.TopicWorksheetInfo:
		return worksheetInfoAnswer(s.Source), true
	}

	switch s.Intent.Kind {
	case domain.IntentRanking:
		if s.Ranking != nil {
			return rankingAnswer(s), true
		}
	case domain.IntentTrend:
		return trendAnswer(s)
	case domain.IntentMonthListing:
		return monthAnswer(s), true
	}
	return "", false
}

func adsetListAnswer(byWorksheet map[string][]string) string {
	if len(byWorksheet) == 0 {
		return NoAdsetsAnswer
	}
	names := make([]string, 0, len(byWorksheet))
	for ws := range byWorksheet {
		names = append(names, ws)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, ws := range names {
		if adsets := byWorksheet[ws]; len(adsets) > 0 {
			lines = append(lines, fmt.Sprintf("Ad set di worksheet %s: %s", ws, strings.Join(adsets, ", ")))
		} else {
			lines = append(lines, fmt.Sprintf("Tidak ada ad set terdeteksi di worksheet %s.", ws))
		}
	}
	return strings.Join(lines, "\n")
}

func worksheetBreakdownAnswer(b domain.Breakdown) string {
	if len(b) == 0 {
		return "Tidak ada data worksheet yang bisa dirinci."
	}

	var (
		lines    []string
		total    domain.Totals
		ctrSum   float64
		ctrCount int
	)
	for _, k := range aggregate.SortedKeys(b) {
		m := b[k]
		lines = append(lines, fmt.Sprintf("Worksheet: %s | Cost: %s | Clicks: %s | WA Leads: %s | CTR: %.2f%%",
			segmentLabel(domain.DimensionWorksheet, k), formatRupiah(m.Cost), formatInt(m.Clicks), formatInt(m.WhatsAppLeads), m.CTR))
		total = total.Add(m.Totals)
		if m.Impressions > 0 {
			ctrSum += m.CTR
			ctrCount++
		}
	}
	avgCTR := 0.0
	if ctrCount > 0 {
		avgCTR = ctrSum / float64(ctrCount)
	}

	return "Breakdown metrik utama per worksheet:\n" + strings.Join(lines, "\n") +
		fmt.Sprintf("\nTotal gabungan semua worksheet: Cost %s, Clicks %s, WA Leads %s, Avg CTR %.2f%%",
			formatRupiah(total.Cost), formatInt(total.Clicks), formatInt(total.WhatsAppLeads), avgCTR)
}

func worksheetInfoAnswer(rows []domain.Row) string {
	counts := aggregate.Aggregate(rows, aggregate.ByWorksheet(), 0)
	if len(counts) == 0 {
		return "Tidak ditemukan worksheet pada data yang tersedia."
	}
	lines := make([]string, 0, len(counts))
	for _, k := range aggregate.SortedKeys(counts) {
		lines = append(lines, fmt.Sprintf("Worksheet: %s, Jumlah Baris: %d", k.Secondary, counts[k].Rows))
	}
	return "Berikut jumlah baris pada setiap worksheet:\n" + strings.Join(lines, "\n")
}

func rankingAnswer(s State) string {
	r := s.Ranking
	dim := dimensionLabel(r.Spec.Dimension)
	metric := r.Spec.Metric
	window := ""
	if !s.Intent.Temporal.IsZero() {
		window = " pada " + describeTemporal(s.Intent.Temporal)
	}

	if s.RankingErr != nil {
		switch {
		case errors.Is(s.RankingErr, aggregate.ErrUnknownMetric):
			return fmt.Sprintf("Metrik %s belum didukung untuk peringkat.", metric)
		case len(s.Rows) == 0:
			return "Tidak ada data yang cocok dengan periode atau segmen yang diminta, sehingga peringkat tidak dapat dibuat."
		default:
			return fmt.Sprintf("Tidak ada %s yang memiliki %s%s, sehingga %s tidak dapat dihitung.",
				strings.ToLower(dim), denominatorLabels[metric], window, metric.Label())
		}
	}

	word := "tertinggi"
	if r.Spec.Direction == domain.Lowest {
		word = "terendah"
	}
	lines := []string{fmt.Sprintf("%s dengan %s %s%s:", dim, metric.Label(), word, window)}
	for i, seg := range r.Segments {
		lines = append(lines, fmt.Sprintf("%d. %s: %s", i+1, segmentLabel(r.Spec.Dimension, seg.Key), formatMetric(metric, seg.Value)))
	}
	if r.Excluded > 0 {
		lines = append(lines, fmt.Sprintf("%d %s lain tidak diikutkan karena tidak memiliki %s.",
			r.Excluded, strings.ToLower(dim), denominatorLabels[metric]))
	}
	return strings.Join(lines, "\n")
}

// trendAnswer reports a metric month by month over the last n months.
func trendAnswer(s State) (string, bool) {
	metric := s.Intent.Metric
	if !metric.Known() {
		metric = domain.MetricCTR
	}
	label := metric.Label()

	n := s.Intent.TrendMonths
	if n <= 0 {
		n = defaultTrendMonths
	}

	totals := s.Breakdowns[BreakdownMonthTotals]
	months := make([]string, 0, len(totals))
	for k := range totals {
		months = append(months, k.Primary)
	}
	sort.Strings(months)

	segment := describeSegment(s.Intent.Segment)
	subject := fmt.Sprintf("Tren %s", label)
	if segment != "" {
		subject += fmt.Sprintf(" untuk segmen yang diminta (%s)", segment)
	}

	if len(months) < 2 {
		if segment == "" {
			return "", false
		}
		available := "tidak ada"
		if len(months) > 0 {
			available = displayMonths(months)
		}
		return fmt.Sprintf("Data tren %s untuk segmen yang diminta (%s) selama %d bulan terakhir tidak cukup untuk analisis tren. Data tersedia untuk bulan: %s",
			label, segment, n, available), true
	}

	if n > len(months) {
		n = len(months)
	}
	shown := months[len(months)-n:]
	points := make([]string, len(shown))
	values := make([]float64, len(shown))
	for i, m := range shown {
		values[i] = metric.Value(totals[domain.Key(m)])
		points[i] = fmt.Sprintf("%s: %s", aggregate.MonthDisplay(m), formatMetric(metric, values[i]))
	}

	direction := "stabil"
	switch first, last := values[0], values[len(values)-1]; {
	case last > first:
		direction = "naik"
	case last < first:
		direction = "turun"
	}

	return fmt.Sprintf("%s selama %d bulan terakhir: %s.\nSecara umum, tren %s %s dari bulan pertama ke bulan terakhir.",
		subject, n, strings.Join(points, ", "), label, direction), true
}

func monthAnswer(s State) string {
	if len(s.Months) == 0 {
		return NoMonthsAnswer
	}

	t := s.Intent.Temporal
	metric := s.Intent.Metric
	// a week window is narrower than a month bucket, so read the filtered totals
	if t.WeekOfMonth != 0 && metric.Known() && s.Diagnostics.RowsKept > 0 && !s.Diagnostics.NoDateColumn {
		return fmt.Sprintf("%s%s pada %s: %s.",
			totalPrefix(metric), metric.Label(), describeTemporal(t), formatMetric(metric, metric.Value(s.MainTotals)))
	}
	if t.Month != 0 && metric.Known() {
		if text, ok := monthLookup(s.Breakdowns[BreakdownMonthTotals], t, s.Intent.Metric); ok {
			return text
		}
	}

	if len(s.Months) == 1 {
		return fmt.Sprintf("Data yang tersedia hanya untuk bulan %s.", aggregate.MonthDisplay(s.Months[0]))
	}
	return fmt.Sprintf("Data yang tersedia mencakup bulan: %s.", displayMonths(s.Months))
}

func monthLookup(totals domain.Breakdown, t domain.Temporal, metric domain.Metric) (string, bool) {
	var (
		sum   domain.Totals
		found bool
		year  int
	)
	for k, m := range totals {
		d, err := time.Parse("2006-01", k.Primary)
		if err != nil || int(d.Month()) != t.Month || (t.Year != 0 && d.Year() != t.Year) {
			continue
		}
		sum = sum.Add(m.Totals)
		found = true
		if d.Year() > year {
			year = d.Year()
		}
	}
	if !found {
		return "", false
	}
	if t.Year != 0 {
		year = t.Year
	}

	value := metric.Value(domain.NewSegmentMetrics(sum))
	return fmt.Sprintf("%s%s pada bulan %s %d: %s.",
		totalPrefix(metric), metric.Label(), normalize.MonthDisplayName(time.Month(t.Month)), year, formatMetric(metric, value)), true
}

func totalPrefix(m domain.Metric) string {
	if m.IsRatio() {
		return ""
	}
	return "Total "
}

func displayMonths(labels []string) string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = aggregate.MonthDisplay(l)
	}
	return joinList(out)
}
