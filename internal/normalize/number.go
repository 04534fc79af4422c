package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var numberPattern = regexp.MustCompile(`[-+]?\d[\d.,]*`)

// ParseNumber reads a locale-ambiguous numeric string such as "Rp 1.234,56"
// or "1,234.56". It returns 0 when no number can be read.
func ParseNumber(raw string) float64 {
	v, _ := TryParseNumber(raw)
	return v
}

// TryParseNumber is ParseNumber that also reports whether a number was read.
func TryParseNumber(raw string) (float64, bool) {
	num := numberPattern.FindString(raw)
	if num == "" {
		return 0, false
	}

	hasComma := strings.Contains(num, ",")
	hasDot := strings.Contains(num, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(num, ",") > strings.LastIndex(num, ".") {
			num = strings.ReplaceAll(num, ".", "")
			num = strings.ReplaceAll(num, ",", ".")
		} else {
			num = strings.ReplaceAll(num, ",", "")
		}
	case hasComma:
		parts := strings.Split(num, ",")
		if len(parts) > 2 || len(parts[len(parts)-1]) == 3 {
			num = strings.ReplaceAll(num, ",", "")
		} else {
			num = strings.ReplaceAll(num, ",", ".")
		}
	case hasDot:
		if isDotGrouped(num) {
			num = strings.ReplaceAll(num, ".", "")
		}
	}

	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// 1.000.000 style: first segment up to three digits, every other exactly three
func isDotGrouped(num string) bool {
	parts := strings.Split(strings.TrimLeft(num, "+-"), ".")
	if len(parts[0]) > 3 {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return true
}

// Number converts a cell value of any source type to a float.
func Number(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
		return ParseNumber(n.String())
	case string:
		return ParseNumber(n)
	case bool:
		return 0
	default:
		return ParseNumber(fmt.Sprint(v))
	}
}
