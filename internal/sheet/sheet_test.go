package sheet

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/gradescan/internal/model"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	return rows
}

func TestOpenCreatesWorkbookWithHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.xlsx")
	if _, err := Open(path); err != nil {
		t.Fatalf("Open: %v", err)
	}

	rows := readRows(t, path)
	if len(rows) != 1 {
		t.Fatalf("expected header row only, got %d rows", len(rows))
	}
	if rows[0][0] != "Timestamp" || rows[0][3] != "Score" {
		t.Errorf("unexpected header: %v", rows[0])
	}

	// Reopening must not reset the workbook.
	if _, err := Open(path); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if rows := readRows(t, path); len(rows) != 1 {
		t.Errorf("reopen changed row count to %d", len(rows))
	}
}

func TestAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.xlsx")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := log.Append("2026-01-05", "Chan Tai Man", "exam.pdf", "75/100", "整體不錯", "gradescan"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := log.Append("2026-01-05", "Wong Siu Ming", "exam.pdf", "40/100", "需要加強", "gradescan"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	rows := readRows(t, path)
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[1][1] != "Chan Tai Man" || rows[1][3] != "75/100" {
		t.Errorf("row 1 = %v", rows[1])
	}
	if rows[2][1] != "Wong Siu Ming" {
		t.Errorf("row 2 = %v", rows[2])
	}
}

func TestAppendResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.xlsx")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	results := []model.ChunkResult{
		{StudentIndex: 1, Record: &model.GradingRecord{
			StudentName: "Chan Tai Man", TotalScore: "75/100", OverallComment: "不錯",
		}},
		{StudentIndex: 2, Err: "500: upstream exploded"},
	}
	if err := log.AppendResults("midterm.pdf", results); err != nil {
		t.Fatalf("AppendResults: %v", err)
	}

	rows := readRows(t, path)
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[1][1] != "Chan Tai Man" || rows[1][2] != "midterm.pdf" {
		t.Errorf("success row = %v", rows[1])
	}
	// Error slots stay visible for manual follow-up.
	if rows[2][3] != "ERROR" || rows[2][4] != "500: upstream exploded" {
		t.Errorf("error row = %v", rows[2])
	}
}
