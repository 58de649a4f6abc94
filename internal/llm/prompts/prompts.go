// Package prompts holds the versioned grading rubric. The rubric is
// configuration, not code: the recognized parameters (comment language,
// student index) are template fields, and policy differences between
// runs are enumerated variants of one template set rather than parallel
// code paths.
package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"sync"
	"text/template"
)

//go:embed templates/*.txt
var templateFS embed.FS

// PromptVariant represents a grading rubric variant.
type PromptVariant string

const (
	// PromptStrict is the zero-tolerance variant for formal exams.
	PromptStrict PromptVariant = "strict"
	// PromptStandard is the default grading variant.
	PromptStandard PromptVariant = "standard"
	// PromptLenient is a generous-method variant for practice papers.
	PromptLenient PromptVariant = "lenient"
)

var validVariants = map[PromptVariant]bool{
	PromptStrict:   true,
	PromptStandard: true,
	PromptLenient:  true,
}

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[PromptVariant(v)]
}

// Content-block delimiters for the ordered user message. Order is the
// only signal the model has for multi-page questions, so the builders
// keep page sequences between these markers untouched.
const (
	SolutionKeyStart = "--- OFFICIAL SOLUTION KEY START ---"
	SolutionKeyEnd   = "--- OFFICIAL SOLUTION KEY END ---"
	StudentWorkStart = "--- STUDENT WORK START ---"
	StudentWorkEnd   = "--- STUDENT WORK END ---"

	// NoKeyWarning is sent instead of key pages when a run has no
	// solution key at all.
	NoKeyWarning = "WARNING: No Solution Key provided. Grade based on general mathematical correctness."
)

// RubricData holds the template parameters of a rubric.
type RubricData struct {
	StudentIndex    int
	CommentLanguage string
}

var (
	loadOnce        sync.Once
	loadErr         error
	rubricTemplates map[PromptVariant]*template.Template
)

// Load parses the embedded rubric templates, once.
func Load() error {
	loadOnce.Do(func() {
		rubricTemplates = make(map[PromptVariant]*template.Template)
		for v := range validVariants {
			name := "templates/rubric_" + string(v) + ".txt"
			content, err := templateFS.ReadFile(name)
			if err != nil {
				loadErr = errors.New("failed to read rubric file " + name + ": " + err.Error())
				return
			}
			tmpl, err := template.New("rubric").Parse(string(content))
			if err != nil {
				loadErr = errors.New("failed to parse rubric template " + name + ": " + err.Error())
				return
			}
			rubricTemplates[v] = tmpl
		}
	})
	return loadErr
}

// BuildRubric renders the system instructions for one grading call.
func BuildRubric(variant PromptVariant, data RubricData) (string, error) {
	if err := Load(); err != nil {
		return "", err
	}
	tmpl, ok := rubricTemplates[variant]
	if !ok {
		return "", errors.New("invalid prompt variant: " + string(variant))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// TaskFraming is the first text block of the user message.
func TaskFraming(studentIndex int) string {
	return fmt.Sprintf("Grade this student's work (Student %d).", studentIndex)
}

// StudentLabel is the placeholder name used when the model finds no
// name on the paper.
func StudentLabel(studentIndex int) string {
	return fmt.Sprintf("Student %d", studentIndex)
}
