package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	SourceIDColumn  = "sheet_id"
	WorksheetColumn = "worksheet"
)

// single labelled cell of a row
type Column struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// Col builds a column, stringifying labels that did not arrive as strings
// (spreadsheet engines can yield numeric or date headers).
func Col(label, value any) Column {
	if s, ok := label.(string); ok {
		return Column{Label: s, Value: value}
	}
	return Column{Label: fmt.Sprint(label), Value: value}
}

// Row is one observation read from a worksheet. Column order is preserved
// and the row is never modified once built.
type Row struct {
	sourceID  string
	worksheet string
	cols      []Column
	keys      []string
}

func NewRow(sourceID, worksheet string, cols ...Column) Row {
	r := Row{
		sourceID:  sourceID,
		worksheet: worksheet,
		cols:      make([]Column, len(cols)),
		keys:      make([]string, len(cols)),
	}
	copy(r.cols, cols)
	for i, c := range cols {
		r.keys[i] = NormalizeLabel(c.Label)
	}
	return r
}

// NormalizeLabel lower-cases and trims a column label for comparison.
func NormalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

func (r Row) Len() int {
	return len(r.cols)
}

// Columns returns a copy of the row's columns in source order.
func (r Row) Columns() []Column {
	out := make([]Column, len(r.cols))
	copy(out, r.cols)
	return out
}

// NormalizedLabels returns the comparison form of every label in source order.
func (r Row) NormalizedLabels() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// KeyAt returns the normalized label of the i-th column.
func (r Row) KeyAt(i int) string {
	return r.keys[i]
}

func (r Row) ValueAt(i int) any {
	return r.cols[i].Value
}

// Lookup finds the first column whose normalized label equals label.
func (r Row) Lookup(label string) (any, bool) {
	want := NormalizeLabel(label)
	for i, k := range r.keys {
		if k == want {
			return r.cols[i].Value, true
		}
	}
	return nil, false
}

func (r Row) SourceID() string {
	if r.sourceID != "" {
		return r.sourceID
	}
	if v, ok := r.Lookup(SourceIDColumn); ok && v != nil {
		return fmt.Sprint(v)
	}
	if v, ok := r.Lookup("sheet id"); ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

func (r Row) Worksheet() string {
	if r.worksheet != "" {
		return r.worksheet
	}
	if v, ok := r.Lookup(WorksheetColumn); ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

// Tagged returns a copy of the row attributed to the given source and worksheet.
func (r Row) Tagged(sourceID, worksheet string) Row {
	return NewRow(sourceID, worksheet, r.cols...)
}

// MarshalJSON encodes the row as a JSON object in column order. Source tags
// that are not already present as columns are appended.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(label string, value any) error {
		k, err := json.Marshal(label)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to encode column %q: %w", label, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	for _, c := range r.cols {
		if err := write(c.Label, c.Value); err != nil {
			return nil, err
		}
	}
	if _, ok := r.Lookup(SourceIDColumn); !ok && r.sourceID != "" {
		if err := write(SourceIDColumn, r.sourceID); err != nil {
			return nil, err
		}
	}
	if _, ok := r.Lookup(WorksheetColumn); !ok && r.worksheet != "" {
		if err := write(WorksheetColumn, r.worksheet); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a flat JSON object keeping its key order. Numbers
// are kept as json.Number so that the numeric normalizer sees the raw text.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to decode row: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("row must be a JSON object")
	}

	var cols []Column
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to decode row key: %w", err)
		}
		label, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected row key %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("failed to decode column %q: %w", label, err)
		}
		cols = append(cols, Column{Label: label, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to decode row: %w", err)
	}

	*r = NewRow("", "", cols...)
	return nil
}
