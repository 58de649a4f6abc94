// Package report renders the final record list into teacher-facing
// artifacts: CSV text and a printable HTML document. Error slots are
// rendered identifiably rather than dropped, so a partially failed run
// still produces a complete report with the gaps visible. All free
// text passes through template auto-escaping.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html/template"
	"time"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"

	appI18n "github.com/pavelanni/gradescan/internal/i18n"
	"github.com/pavelanni/gradescan/internal/model"
)

// Renderer renders grading results in one report language.
type Renderer struct {
	loc *goi18n.Localizer
}

// NewRenderer creates a renderer for the given report language. The
// i18n bundle must already be initialized.
func NewRenderer(lang string) *Renderer {
	return &Renderer{loc: appI18n.NewLocalizer(lang)}
}

var csvHeader = []string{
	"student_index", "student_name", "total_score", "overall_comment",
	"question_id", "question_score", "question_comment", "error",
}

// CSV renders one row per question, with a single summary row for
// students that have no questions and for error slots.
func (r *Renderer) CSV(results []model.ChunkResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, res := range results {
		index := fmt.Sprintf("%d", res.StudentIndex)
		if res.Failed() {
			if err := w.Write([]string{index, "", "", "", "", "", "", res.Err}); err != nil {
				return nil, err
			}
			continue
		}
		rec := res.Record
		if len(rec.Questions) == 0 {
			if err := w.Write([]string{index, rec.StudentName, rec.TotalScore, rec.OverallComment, "", "", "", ""}); err != nil {
				return nil, err
			}
			continue
		}
		for _, q := range rec.Questions {
			if err := w.Write([]string{index, rec.StudentName, rec.TotalScore, rec.OverallComment, q.ID, q.Score, q.Comment, ""}); err != nil {
				return nil, err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>
    <style>
      body { font-family: 'Microsoft JhengHei', sans-serif; padding: 40px; line-height: 1.6; }
      .student-section { margin-bottom: 40px; page-break-inside: avoid; border-bottom: 1px dashed #ccc; padding-bottom: 20px; }
      .header { font-size: 1.2em; font-weight: bold; margin-bottom: 10px; }
      .score { font-weight: bold; color: #d93025; }
      .label { font-weight: bold; }
      .question-item { margin-left: 20px; }
      .error { color: #b00020; font-weight: bold; }
      .generated { color: #666; font-size: 0.85em; margin-top: 30px; }
    </style>
  </head>
  <body>
    <h1>{{.Title}}</h1>
{{- range .Students}}
    <div class="student-section">
      <div class="header">{{.Header}}</div>
{{- if .Error}}
      <div class="error">{{.ErrorLabel}}</div>
      <div>{{.Error}}</div>
{{- else}}
      <div><span class="label">{{$.ScoreLabel}}:</span> <span class="score">{{.TotalScore}}</span></div>
      <div><span class="label">{{$.OverallLabel}}:</span> {{.OverallComment}}</div>
      <div><span class="label">{{$.QuestionsLabel}}:</span></div>
{{- if .Questions}}
{{- range .Questions}}
      <div class="question-item"><strong>{{.ID}}:</strong> {{.Line}}</div>
{{- end}}
{{- else}}
      <div class="question-item">{{$.NoQuestions}}</div>
{{- end}}
{{- end}}
    </div>
{{- end}}
    <div class="generated">{{.Generated}}</div>
  </body>
</html>
`))

type questionView struct {
	ID   string
	Line string
}

type studentView struct {
	Header         string
	TotalScore     string
	OverallComment string
	Questions      []questionView
	Error          string
	ErrorLabel     string
}

type reportView struct {
	Title          string
	ScoreLabel     string
	OverallLabel   string
	QuestionsLabel string
	NoQuestions    string
	Generated      string
	Students       []studentView
}

// HTML renders the printable report document for a source file.
func (r *Renderer) HTML(sourceName string, results []model.ChunkResult) ([]byte, error) {
	view := reportView{
		Title:          r.t("report.title", nil),
		ScoreLabel:     r.t("report.score", nil),
		OverallLabel:   r.t("report.overall_comment", nil),
		QuestionsLabel: r.t("report.question_comments", nil),
		NoQuestions:    r.t("report.no_questions", nil),
		Generated: r.t("report.generated", map[string]any{
			"Date":   time.Now().Format("2006-01-02"),
			"Source": sourceName,
		}),
	}

	for _, res := range results {
		sv := studentView{
			Header: r.t("report.student", map[string]any{"Index": res.StudentIndex}),
		}
		if res.Failed() {
			sv.Error = res.Err
			sv.ErrorLabel = r.t("report.error_slot", nil)
		} else {
			sv.Header += ": " + res.Record.StudentName
			sv.TotalScore = res.Record.TotalScore
			sv.OverallComment = res.Record.OverallComment
			for _, q := range res.Record.Questions {
				sv.Questions = append(sv.Questions, questionView{
					ID: q.ID,
					Line: r.t("report.question_line", map[string]any{
						"Score":   q.Score,
						"Comment": q.Comment,
					}),
				})
			}
		}
		view.Students = append(view.Students, sv)
	}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) t(msgID string, data map[string]any) string {
	return appI18n.Tl(r.loc, msgID, data)
}
