// Package sanitize converts untrusted search-tool output into
// user-facing citations. Raw source records arrive as loosely typed
// values attached to an LLM tool call; this package validates their
// shape, resolves lesson links through an external lookup, and
// rejects unsafe URLs. Nothing in this package returns an error:
// malformed input and failed lookups degrade to plain-text citations.
package sanitize

import (
	"encoding/json"
	"math"
)

// Source is the canonical shape of a search result record after
// validation. CourseTitle is empty when the record carried no usable
// title; LessonNumber is nil when the record carried no usable lesson
// number. Either condition disables link resolution.
type Source struct {
	Text         string
	CourseTitle  string
	LessonNumber *int
}

// Citation is the sanitized record handed to the response layer.
// Link is nil unless a lesson link was found and passed IsSafeURL.
type Citation struct {
	Text string  `json:"text"`
	Link *string `json:"link"`
}

// NormalizeSources filters and coerces raw tool output into Sources.
// Entries that are not string-keyed mappings, or whose "text" field is
// missing, not a string, or empty, are dropped without error. Relative
// order is preserved among survivors.
func NormalizeSources(raw []any) []Source {
	sources := make([]Source, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		text, ok := m["text"].(string)
		if !ok || text == "" {
			continue
		}

		src := Source{Text: text}
		if title, ok := m["course_title"].(string); ok {
			src.CourseTitle = title
		}
		if n, ok := lessonNumber(m["lesson_number"]); ok {
			src.LessonNumber = &n
		}
		sources = append(sources, src)
	}
	return sources
}

// lessonNumber coerces the numeric shapes a decoded JSON payload can
// carry for a lesson number. Fractional values and non-numeric types
// are treated as absent.
func lessonNumber(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
	}
	return 0, false
}
