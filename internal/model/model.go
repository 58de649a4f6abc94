package model

import (
	"errors"
	"fmt"
	"time"
)

// Page is a single scanned page image.
type Page struct {
	Data []byte
	MIME string
}

// QuestionMark is the model's judgment of one sub-question.
// Score keeps the raw "obtained/possible" (or bare "obtained") text;
// the numeric interpretation lives in the score package.
type QuestionMark struct {
	ID      string `json:"id"`
	Score   string `json:"score"`
	Comment string `json:"comment"`
}

// ParsedScore is the numeric reading of a QuestionMark score string.
// Possible is nil when no denominator was supplied.
type ParsedScore struct {
	Obtained float64
	Possible *float64
}

// GradingRecord is one student's graded exam. TotalScore is always
// recomputed from Questions before a record leaves the grading call;
// the model's self-reported total is never trusted.
type GradingRecord struct {
	StudentName    string         `json:"student_name"`
	TotalScore     string         `json:"total_score"`
	OverallComment string         `json:"overall_comment"`
	Questions      []QuestionMark `json:"questions"`
}

// StudentChunk is a contiguous page range assigned to one student.
// Sub-chunks produced by the image-ceiling split share StudentIndex.
type StudentChunk struct {
	StudentIndex int
	Pages        []Page
	FinalPartial bool
}

// SolutionKey holds the marking-scheme pages, shared read-only across
// all chunk calls of a run.
type SolutionKey struct {
	Pages []Page
}

// ChunkResult is the outcome of grading one student slot. Exactly one
// of Record and Err is meaningful; a transport or extraction failure is
// carried as data so one bad chunk never aborts the run.
type ChunkResult struct {
	StudentIndex int            `json:"student_index"`
	Record       *GradingRecord `json:"record,omitempty"`
	Err          string         `json:"error,omitempty"`
}

// Failed reports whether this slot holds an error instead of a record.
func (r ChunkResult) Failed() bool {
	return r.Err != ""
}

// CommentPolicy selects how conflicting overall comments are merged
// across sub-chunks of one student.
type CommentPolicy string

const (
	// CommentPolicyFirst keeps the first non-empty overall comment.
	CommentPolicyFirst CommentPolicy = "first"
	// CommentPolicyConcat joins distinct non-empty overall comments.
	CommentPolicyConcat CommentPolicy = "concat"
)

// Defaults for GradingConfig fields left at their zero value.
const (
	DefaultPagesPerStudent  = 1
	DefaultMaxKeyPages      = 15
	DefaultMaxImagesPerCall = 20
	DefaultConcurrency      = 3
)

// DefaultCommentLanguage is the language the rubric asks the model to
// write all feedback in.
const DefaultCommentLanguage = "Traditional Chinese (繁體中文)"

// ErrConfigurationMissing marks a run that cannot start at all, as
// opposed to per-chunk failures which are isolated per student slot.
var ErrConfigurationMissing = errors.New("configuration missing")

// GradingConfig carries everything a grading run needs. It is passed
// explicitly into constructors; nothing reads ambient global state.
type GradingConfig struct {
	APIKey  string
	BaseURL string
	Model   string

	PagesPerStudent  int
	MaxKeyPages      int
	MaxImagesPerCall int
	Concurrency      int

	PromptVariant   string
	CommentLanguage string
	CommentPolicy   CommentPolicy
}

// Validate fails fast before any per-chunk call is attempted.
func (c GradingConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: API key is empty", ErrConfigurationMissing)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model name is empty", ErrConfigurationMissing)
	}
	return nil
}

// WithDefaults returns a copy with zero-valued knobs filled in.
func (c GradingConfig) WithDefaults() GradingConfig {
	if c.PagesPerStudent <= 0 {
		c.PagesPerStudent = DefaultPagesPerStudent
	}
	if c.MaxKeyPages <= 0 {
		c.MaxKeyPages = DefaultMaxKeyPages
	}
	if c.MaxImagesPerCall <= 0 {
		c.MaxImagesPerCall = DefaultMaxImagesPerCall
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.CommentLanguage == "" {
		c.CommentLanguage = DefaultCommentLanguage
	}
	if c.PromptVariant == "" {
		c.PromptVariant = "standard"
	}
	if c.CommentPolicy == "" {
		c.CommentPolicy = CommentPolicyFirst
	}
	return c
}

// FileInfo describes one stored document in the content store.
type FileInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}
