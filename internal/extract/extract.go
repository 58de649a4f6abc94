// Package extract locates and parses the single JSON grading object
// embedded in a model reply. Replies routinely arrive wrapped in prose
// or markdown code fences; the extractor tolerates the wrapping but
// never repairs malformed JSON beyond standard parsing.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pavelanni/gradescan/internal/model"
)

// NoJSONFoundError means the reply contains no {...} span at all.
type NoJSONFoundError struct {
	Raw string
}

func (e *NoJSONFoundError) Error() string {
	return fmt.Sprintf("no JSON object found in model response: %s", truncate(e.Raw, 200))
}

// MalformedJSONError means a {...} span exists but does not parse.
type MalformedJSONError struct {
	Raw string
	Err error
}

func (e *MalformedJSONError) Error() string {
	return fmt.Sprintf("malformed JSON in model response: %v (raw: %s)", e.Err, truncate(e.Raw, 200))
}

func (e *MalformedJSONError) Unwrap() error { return e.Err }

// Record extracts the grading record from raw model output.
// fallbackLabel fills StudentName when the model omitted student_name;
// a missing questions array is treated as an empty one (a blank page
// legitimately grades to zero questions).
func Record(raw, fallbackLabel string) (*model.GradingRecord, error) {
	text := stripCodeFences(raw)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, &NoJSONFoundError{Raw: raw}
	}
	span := text[start : end+1]

	var rec model.GradingRecord
	if err := json.Unmarshal([]byte(span), &rec); err != nil {
		return nil, &MalformedJSONError{Raw: raw, Err: err}
	}

	if rec.Questions == nil {
		rec.Questions = []model.QuestionMark{}
	}
	if strings.TrimSpace(rec.StudentName) == "" {
		rec.StudentName = fallbackLabel
	}
	return &rec, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
