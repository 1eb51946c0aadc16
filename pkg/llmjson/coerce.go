package llmjson

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Number reads a loosely typed numeric field. Numeric strings are accepted.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// String reads a string field; nil and non-strings yield "".
func String(v any) string {
	s, _ := v.(string)
	return s
}

// Bool reads a loosely typed boolean. Strings "true" and "yes" are true,
// non-zero numbers are true, everything else is false.
func Bool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes":
			return true
		}
		return false
	default:
		if n, ok := Number(v); ok {
			return n != 0
		}
		return false
	}
}

// StringList reads a list field. Non-string items are formatted with %v.
// A missing or non-list value yields an empty, non-nil slice.
func StringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch s := item.(type) {
		case nil:
			continue
		case string:
			out = append(out, s)
		default:
			out = append(out, fmt.Sprintf("%v", s))
		}
	}
	return out
}
