// Package sheet is the row-append score log: an xlsx workbook with a
// fixed header, one row appended per graded student. The core only
// relies on "append succeeded"; the workbook is the teacher-facing
// ledger.
package sheet

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/gradescan/internal/model"
)

const sheetName = "Scores"

var header = []any{"Timestamp", "Student ID", "File URL", "Score", "Comments", "Graded By"}

// Log appends rows to an xlsx workbook, creating it with the header
// row on first use.
type Log struct {
	mu   sync.Mutex
	path string
}

// Open prepares the score log at path, creating the workbook if it
// does not exist yet.
func Open(path string) (*Log, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f := excelize.NewFile()
		defer f.Close()
		if err := f.SetSheetName("Sheet1", sheetName); err != nil {
			return nil, fmt.Errorf("init score log: %w", err)
		}
		if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
			return nil, fmt.Errorf("write score log header: %w", err)
		}
		if err := f.SaveAs(path); err != nil {
			return nil, fmt.Errorf("create score log %s: %w", path, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat score log %s: %w", path, err)
	}
	return &Log{path: path}, nil
}

// Append adds one row after the last used row.
func (l *Log) Append(row ...any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := excelize.OpenFile(l.path)
	if err != nil {
		return fmt.Errorf("open score log: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return fmt.Errorf("read score log: %w", err)
	}
	cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
		return fmt.Errorf("append score row: %w", err)
	}
	return f.Save()
}

// AppendResults logs one row per student slot, error slots included so
// they stay visible for manual follow-up.
func (l *Log) AppendResults(sourceName string, results []model.ChunkResult) error {
	now := time.Now().Format(time.RFC3339)
	for _, r := range results {
		var student, scoreText, comment string
		if r.Failed() {
			student = fmt.Sprintf("Student %d", r.StudentIndex)
			scoreText = "ERROR"
			comment = r.Err
		} else {
			student = r.Record.StudentName
			scoreText = r.Record.TotalScore
			comment = r.Record.OverallComment
		}
		if err := l.Append(now, student, sourceName, scoreText, comment, "gradescan"); err != nil {
			return fmt.Errorf("log student %d: %w", r.StudentIndex, err)
		}
	}
	return nil
}
