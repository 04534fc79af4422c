package usecase

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"adsinsight/internal/domain"
)

const NoWorksheetsAnswer = "Tidak ditemukan worksheet atau kolom pada data yang tersedia. " +
	"Pastikan Google Sheets Anda memiliki worksheet dan data yang valid."

var (
	columnsPattern = regexp.MustCompile(`kolom (apa|yang)|field (apa|yang)|fitur (apa|yang)|data (apa (saja|aja)|yang tersedia)|available (data|columns?|fields?)|apa saja (data|kolom|field)`)
	wordPattern    = regexp.MustCompile(`[\p{L}\d_]+`)
)

// words ignored when matching a question against worksheet names
var selectionStopwords = map[string]bool{
	"yang": true, "dan": true, "di": true, "ke": true, "dari": true, "untuk": true, "pada": true,
	"dengan": true, "adalah": true, "ini": true, "itu": true, "atau": true, "dong": true,
	"aja": true, "saja": true,
}

// SelectWorksheet picks the worksheet a question refers to. A name contained
// in the question wins outright; otherwise names are scored by shared
// keywords. A tie at the top score returns every tied name as ambiguous.
func SelectWorksheet(question string, names []string) (string, []string) {
	q := strings.ToLower(question)
	for _, name := range names {
		if lower := strings.ToLower(name); lower != "" && strings.Contains(q, lower) {
			return name, nil
		}
	}

	keywords := make(map[string]bool)
	for _, tok := range wordPattern.FindAllString(q, -1) {
		if len([]rune(tok)) > 1 && !selectionStopwords[tok] {
			keywords[tok] = true
		}
	}

	best := 0
	var top []string
	for _, name := range names {
		score := 0
		seen := make(map[string]bool)
		for _, tok := range wordPattern.FindAllString(strings.ToLower(name), -1) {
			if len([]rune(tok)) > 1 && keywords[tok] && !seen[tok] {
				seen[tok] = true
				score++
			}
		}
		switch {
		case score == 0 || score < best:
		case score > best:
			best, top = score, []string{name}
		default:
			top = append(top, name)
		}
	}

	switch len(top) {
	case 0:
		return "", nil
	case 1:
		return top[0], nil
	default:
		return "", top
	}
}

// groups rows by source and worksheet in first-seen order
func groupRows(rows []domain.Row) []domain.Worksheet {
	type key struct{ source, name string }
	index := make(map[key]int)
	var out []domain.Worksheet
	for _, r := range rows {
		k := key{r.SourceID(), r.Worksheet()}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, domain.Worksheet{SourceID: k.source, Name: k.name})
		}
		out[i].Rows = append(out[i].Rows, r)
	}
	return out
}

func flatten(worksheets []domain.Worksheet) []domain.Row {
	var rows []domain.Row
	for _, ws := range worksheets {
		rows = append(rows, ws.Rows...)
	}
	return rows
}

func onlyWorksheet(worksheets []domain.Worksheet, name string) []domain.Worksheet {
	var out []domain.Worksheet
	for _, ws := range worksheets {
		if ws.Name == name {
			out = append(out, ws)
		}
	}
	return out
}

func uniqueNames(worksheets []domain.Worksheet) []string {
	var names []string
	for _, ws := range worksheets {
		if ws.Name != "" && !slices.Contains(names, ws.Name) {
			names = append(names, ws.Name)
		}
	}
	return names
}

func worksheetInfo(worksheets []domain.Worksheet) []domain.WorksheetInfo {
	out := make([]domain.WorksheetInfo, len(worksheets))
	for i, ws := range worksheets {
		out[i] = domain.WorksheetInfo{SourceID: ws.SourceID, Name: ws.Name, RowCount: len(ws.Rows)}
	}
	return out
}

// sourceLabel names a source by its position in the configured list.
func sourceLabel(sourceID string, sourceIDs []string) string {
	if i := slices.Index(sourceIDs, sourceID); i >= 0 {
		return fmt.Sprintf("File Sheet %d", i+1)
	}
	if sourceID == "" {
		return "Data"
	}
	short := sourceID
	if len(short) > 6 {
		short = short[:6] + "..."
	}
	return fmt.Sprintf("File Sheet (%s)", short)
}

func columnsAnswer(worksheets []domain.Worksheet, sourceIDs []string) string {
	if len(worksheets) == 0 {
		return NoWorksheetsAnswer
	}
	lines := make([]string, 0, len(worksheets))
	for _, ws := range worksheets {
		label := sourceLabel(ws.SourceID, sourceIDs)
		if len(ws.Rows) == 0 {
			lines = append(lines, fmt.Sprintf("- %s | Worksheet '%s': tidak ada data/kolom terdeteksi.", label, ws.Name))
			continue
		}
		var cols []string
		for _, c := range ws.Rows[0].Columns() {
			cols = append(cols, c.Label)
		}
		lines = append(lines, fmt.Sprintf("- %s | Worksheet '%s': kolom yang tersedia: %s", label, ws.Name, strings.Join(cols, ", ")))
	}
	return "Berikut daftar worksheet dan kolom yang tersedia di semua file Google Sheets Anda:\n" +
		strings.Join(lines, "\n") +
		"\nAnda bisa menanyakan insight, tren, atau breakdown berdasarkan kolom-kolom di atas."
}

func disambiguationAnswer(names []string, infos []domain.WorksheetInfo, sourceIDs []string) string {
	lines := []string{"Saya menemukan beberapa worksheet yang cocok dengan pertanyaan Anda:\n"}
	for i, name := range names {
		label, rows := "Unknown Sheet", 0
		for _, info := range infos {
			if info.Name == name {
				label, rows = sourceLabel(info.SourceID, sourceIDs), info.RowCount
				break
			}
		}
		lines = append(lines, fmt.Sprintf("%d. **%s** (%s, %d baris)", i+1, name, label, rows))
	}
	lines = append(lines,
		"\n**Silakan sebutkan nama worksheet lebih spesifik** (contoh: salin nama lengkap dari daftar di atas).")
	return strings.Join(lines, "\n")
}

func pickerAnswer(infos []domain.WorksheetInfo, sourceIDs []string) string {
	groups := make(map[string][]string)
	for _, info := range infos {
		label := sourceLabel(info.SourceID, sourceIDs)
		groups[label] = append(groups[label], fmt.Sprintf("  - '%s' (%d baris)", info.Name, info.RowCount))
	}
	labels := make([]string, 0, len(groups))
	for l := range groups {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	var lines []string
	for _, l := range labels {
		lines = append(lines, fmt.Sprintf("\n**%s** (%d worksheet):", l, len(groups[l])))
		lines = append(lines, groups[l]...)
	}
	return "Sebelum saya bisa memberikan insight atau analisis, silakan pilih worksheet yang ingin dianalisis dari daftar berikut:\n" +
		strings.Join(lines, "\n") +
		"\n\n**Silakan ketik nama worksheet yang ingin Anda analisis** (salin nama lengkap untuk hasil terbaik)."
}
