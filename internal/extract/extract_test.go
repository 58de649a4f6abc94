package extract

import (
	"errors"
	"testing"
)

func TestRecordPlainJSON(t *testing.T) {
	raw := `{"student_name":"Chan Tai Man","total_score":"80/100","overall_comment":"good","questions":[{"id":"Q1","score":"5/5","comment":"ok"}]}`
	rec, err := Record(raw, "Student 1")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.StudentName != "Chan Tai Man" {
		t.Errorf("student name = %q", rec.StudentName)
	}
	if len(rec.Questions) != 1 || rec.Questions[0].ID != "Q1" {
		t.Errorf("unexpected questions: %+v", rec.Questions)
	}
}

func TestRecordFencedWithProse(t *testing.T) {
	raw := "Sure! ```json\n{\"questions\":[]}\n``` thanks"
	rec, err := Record(raw, "Student 3")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(rec.Questions) != 0 {
		t.Errorf("expected empty questions, got %d", len(rec.Questions))
	}
	// Missing student_name falls back to the caller's label.
	if rec.StudentName != "Student 3" {
		t.Errorf("student name = %q, want fallback label", rec.StudentName)
	}
}

func TestRecordSurroundingProse(t *testing.T) {
	raw := `Here is the grading you asked for:

{"student_name":"","questions":[{"id":"Q2","score":"0/3","comment":"blank"}]}

Let me know if anything needs a second look.`
	rec, err := Record(raw, "Student 2")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.StudentName != "Student 2" {
		t.Errorf("blank student_name should fall back, got %q", rec.StudentName)
	}
	if len(rec.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(rec.Questions))
	}
}

func TestRecordNoJSON(t *testing.T) {
	_, err := Record("I could not read the page, sorry.", "Student 1")
	var noJSON *NoJSONFoundError
	if !errors.As(err, &noJSON) {
		t.Fatalf("expected NoJSONFoundError, got %v", err)
	}
	if noJSON.Raw == "" {
		t.Error("failure should carry the raw text for diagnostics")
	}
}

func TestRecordMalformed(t *testing.T) {
	_, err := Record("{bad json", "Student 1")
	var malformed *MalformedJSONError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedJSONError, got %v", err)
	}
	if malformed.Raw != "{bad json" {
		t.Errorf("raw = %q", malformed.Raw)
	}
	if malformed.Unwrap() == nil {
		t.Error("expected wrapped parse error")
	}
}

func TestRecordMissingQuestions(t *testing.T) {
	rec, err := Record(`{"student_name":"A","total_score":"0"}`, "Student 1")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.Questions == nil {
		t.Error("missing questions array should become empty, not nil")
	}
}

func TestRecordTotalScoreNotTrusted(t *testing.T) {
	// The extractor passes total_score through untouched; overwriting it
	// is the grading call's job. This pins the division of labor.
	rec, err := Record(`{"total_score":"999/100","questions":[]}`, "Student 1")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.TotalScore != "999/100" {
		t.Errorf("extractor should not rewrite total_score, got %q", rec.TotalScore)
	}
}
