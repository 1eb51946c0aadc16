// Package llmjson recovers structured JSON from free-form language-model output.
//
// Models wrap JSON in code fences, prefix it with prose, or return plain text.
// Normalize applies a fixed chain of recovery strategies and never fails: the
// caller always receives a Result that either holds a parsed JSON value or the
// original text.
package llmjson

import (
	"encoding/json"
	"regexp"
	"strings"
)

const fence = "```"

var (
	leadingFence  = regexp.MustCompile("^```(?:json|JSON)?\\s*\\n")
	trailingFence = regexp.MustCompile("\\n```\\s*$")
	fencedBlock   = regexp.MustCompile("```(?:json|JSON)?\\n([\\s\\S]*?)\\n```")
)

// Result is either a parsed JSON value or the unparsed raw text.
type Result struct {
	value  any
	raw    string
	parsed bool
}

// Parsed reports whether a JSON value was recovered.
func (r Result) Parsed() bool { return r.parsed }

// Raw returns the original model output.
func (r Result) Raw() string { return r.raw }

// Value returns the parsed JSON value, or nil for the unparsed arm.
func (r Result) Value() any {
	if !r.parsed {
		return nil
	}
	return r.value
}

// Object returns the parsed value when it is a JSON object.
func (r Result) Object() (map[string]any, bool) {
	if !r.parsed {
		return nil, false
	}
	m, ok := r.value.(map[string]any)
	return m, ok
}

// Array returns the parsed value when it is a JSON array.
func (r Result) Array() ([]any, bool) {
	if !r.parsed {
		return nil, false
	}
	a, ok := r.value.([]any)
	return a, ok
}

// Normalize extracts a JSON value from raw. The first strategy that yields
// valid JSON wins:
//
//  1. strip one pair of surrounding code fences, then parse the remainder
//  2. parse the span from the first '{' to the last '}' of the stripped text
//  3. parse the body of the first fenced block found anywhere in raw
//
// If every strategy fails, the unparsed arm carrying raw is returned.
func Normalize(raw string) Result {
	if strings.TrimSpace(raw) == "" {
		return Result{raw: raw}
	}

	stripped := StripFences(raw)
	if v, ok := decode(stripped); ok {
		return Result{value: v, raw: raw, parsed: true}
	}

	if start, end := strings.Index(stripped, "{"), strings.LastIndex(stripped, "}"); start >= 0 && end > start {
		if v, ok := decode(stripped[start : end+1]); ok {
			return Result{value: v, raw: raw, parsed: true}
		}
	}

	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		if v, ok := decode(m[1]); ok {
			return Result{value: v, raw: raw, parsed: true}
		}
	}

	return Result{raw: raw}
}

// StripFences removes one pair of leading/trailing ``` fences, optionally
// tagged json, and surrounding whitespace.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2*len(fence) && strings.HasPrefix(s, fence) && strings.HasSuffix(s, fence) {
		inner := s[len(fence) : len(s)-len(fence)]
		if strings.HasPrefix(inner, "json") || strings.HasPrefix(inner, "JSON") {
			inner = inner[len("json"):]
		}
		return strings.TrimSpace(inner)
	}
	s = leadingFence.ReplaceAllString(s, "")
	s = trailingFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func decode(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}
