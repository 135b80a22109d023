package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ToPercent turns a fraction (<= 1) or a 0-100 score into an integer percent in [0,100].
// Missing or non-numeric values become 0. Numeric strings count as numbers.
func ToPercent(v any) int {
	num, ok := toFloat(v)
	if !ok || math.IsNaN(num) {
		return 0
	}

	if num <= 1 {
		num *= 100
	}

	return int(math.Round(math.Max(0, math.Min(num, 100))))
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		return parseFloat(string(val))
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return 0, false
		}
		return parseFloat(trimmed)
	default:
		return 0, false
	}
}

// parseFloat keeps out-of-range values as ±Inf so that 1e400 still reads as a number.
func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err == nil || errors.Is(err, strconv.ErrRange) {
		return f, true
	}
	return 0, false
}

// listSeparators splits free text on newlines, commas, bullets, dash-like characters
// followed by whitespace and middle dots.
var listSeparators = regexp.MustCompile(`\r?\n|,|•|[-–—]\s|·`)

// ToList coerces a list-typed field. Sequences keep their order and their string elements
// verbatim (no trimming). Null elements are dropped because a []string has no null, and other
// scalars are formatted as text. Strings are split and trimmed; anything else is empty.
func ToList(v any) []string {
	switch val := v.(type) {
	case []string:
		return append([]string{}, val...)
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if item == nil {
				continue
			}
			out = append(out, coerceString(item))
		}
		return out
	case string:
		parts := listSeparators.Split(val, -1)
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	default:
		return []string{}
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case fmt.Stringer:
		return val.String()
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

// optionalString returns "" for missing values and trims present ones.
func optionalString(v any) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(coerceString(v))
}
