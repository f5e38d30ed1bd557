// Package coerce converts loosely typed spreadsheet cells into numbers.
// Nothing here returns an error or panics; malformed input yields a default.
package coerce

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var missingTokens = map[string]struct{}{
	"":     {},
	"nan":  {},
	"none": {},
	"null": {},
	"n/a":  {},
}

// IsMissing reports whether a cell should be treated as absent.
func IsMissing(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(v)
	case float32:
		return math.IsNaN(float64(v))
	case string:
		_, ok := missingTokens[strings.ToLower(strings.TrimSpace(v))]
		return ok
	case *string:
		return v == nil || IsMissing(*v)
	}
	return false
}

// Int converts value to an int, truncating toward zero, or returns def.
//
// Strings are trimmed and a comma decimal separator is replaced by a period
// before parsing, so "3,5" becomes 3.
func Int(value any, def int) int {
	if n, ok := IntOK(value); ok {
		return n
	}
	return def
}

// IntOK is Int without a default; ok is false when the value cannot be coerced.
func IntOK(value any) (int, bool) {
	if IsMissing(value) {
		return 0, false
	}

	switch v := value.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return fromFloat(float64(v))
	case uint:
		return fromFloat(float64(v))
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return fromFloat(float64(v))
	case uint64:
		return fromFloat(float64(v))
	case float32:
		return fromFloat(float64(v))
	case float64:
		return fromFloat(v)
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		f, ok := parseFloat(v)
		if !ok {
			return 0, false
		}
		return fromFloat(f)
	case *string:
		return IntOK(*v)
	case fmt.Stringer:
		return IntOK(v.String())
	}
	return 0, false
}

// Float converts value to a float64 using the same rules as Int, without
// truncation.
func Float(value any, def float64) float64 {
	if IsMissing(value) {
		return def
	}
	switch v := value.(type) {
	case float64:
		if math.IsInf(v, 0) {
			return def
		}
		return v
	case string:
		if f, ok := parseFloat(v); ok {
			return f
		}
		return def
	}
	if n, ok := IntOK(value); ok {
		return float64(n)
	}
	return def
}

// IntList splits a comma-separated cell into ints. Blank tokens are dropped and
// tokens that fail to coerce are silently omitted.
func IntList(value any) []int {
	if IsMissing(value) {
		return nil
	}
	raw, ok := value.(string)
	if !ok {
		raw = fmt.Sprint(value)
	}

	out := make([]int, 0, strings.Count(raw, ",")+1)
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if n, ok := IntOK(tok); ok {
			out = append(out, n)
		}
	}
	return out
}

// StringList splits a comma-separated cell into trimmed, non-empty tokens.
func StringList(value string) []string {
	if IsMissing(value) {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func fromFloat(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	t := math.Trunc(f)
	if t >= float64(math.MaxInt) || t < float64(math.MinInt) {
		return 0, false
	}
	return int(t), true
}
