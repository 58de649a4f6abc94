package grading

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pavelanni/gradescan/internal/model"
)

// fakeGrader grades by page content so tests can assert which pages
// reached which call. failOn marks student indexes whose calls fail.
type fakeGrader struct {
	mu      sync.Mutex
	calls   []model.StudentChunk
	failOn  map[int]bool
	inUse   atomic.Int32
	maxSeen atomic.Int32
}

func (f *fakeGrader) GradeChunk(_ context.Context, chunk model.StudentChunk, _ model.SolutionKey) model.ChunkResult {
	cur := f.inUse.Add(1)
	defer f.inUse.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if cur <= seen || f.maxSeen.CompareAndSwap(seen, cur) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, chunk)
	f.mu.Unlock()

	if f.failOn[chunk.StudentIndex] {
		return model.ChunkResult{StudentIndex: chunk.StudentIndex, Err: "500: upstream exploded"}
	}
	return model.ChunkResult{
		StudentIndex: chunk.StudentIndex,
		Record: &model.GradingRecord{
			StudentName: fmt.Sprintf("Student %d", chunk.StudentIndex),
			Questions: []model.QuestionMark{
				{ID: fmt.Sprintf("Q%d", chunk.Pages[0].Data[0]), Score: "1/1", Comment: "ok"},
			},
		},
	}
}

func testCfg() model.GradingConfig {
	return model.GradingConfig{
		APIKey:          "k",
		Model:           "m",
		PromptVariant:   "standard",
		PagesPerStudent: 2,
	}
}

func TestRunPartialFailureIsolation(t *testing.T) {
	// 6 pages, stride 2, key of 2 pages: 3 chunks dispatched, chunk 2
	// fails, the run still completes with 3 slots.
	fg := &fakeGrader{failOn: map[int]bool{2: true}}
	o := NewOrchestrator(fg, testCfg())

	results := o.Run(context.Background(), makePages(6), model.SolutionKey{Pages: makePages(2)})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.StudentIndex != i+1 {
			t.Errorf("result %d has index %d", i, r.StudentIndex)
		}
	}
	if results[0].Failed() || results[2].Failed() {
		t.Error("students 1 and 3 should succeed")
	}
	if !results[1].Failed() {
		t.Fatal("student 2 should be an error slot")
	}
	if !strings.Contains(results[1].Err, "500") {
		t.Errorf("error slot should carry the transport diagnostic, got %q", results[1].Err)
	}
}

func TestRunEmptyDocument(t *testing.T) {
	o := NewOrchestrator(&fakeGrader{}, testCfg())
	if results := o.Run(context.Background(), nil, model.SolutionKey{}); len(results) != 0 {
		t.Errorf("expected no results for empty document, got %d", len(results))
	}
}

func TestRunSubSplitsAndMerges(t *testing.T) {
	// Budget of 4 images minus 2 key pages leaves 2 student pages per
	// call; a 4-page student therefore grades as two merged sub-chunks.
	cfg := testCfg()
	cfg.PagesPerStudent = 4
	cfg.MaxImagesPerCall = 4

	fg := &fakeGrader{}
	o := NewOrchestrator(fg, cfg)

	results := o.Run(context.Background(), makePages(4), model.SolutionKey{Pages: makePages(2)})

	if len(fg.calls) != 2 {
		t.Fatalf("expected 2 sub-chunk calls, got %d", len(fg.calls))
	}
	for _, c := range fg.calls {
		if c.StudentIndex != 1 {
			t.Errorf("sub-chunk index = %d, want shared index 1", c.StudentIndex)
		}
		if len(c.Pages) != 2 {
			t.Errorf("sub-chunk pages = %d, want 2", len(c.Pages))
		}
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 merged result, got %d", len(results))
	}
	if results[0].Failed() {
		t.Fatalf("unexpected failure: %s", results[0].Err)
	}
	// One distinct question per sub-chunk, merged and recomputed.
	if len(results[0].Record.Questions) != 2 {
		t.Errorf("merged questions = %d, want 2", len(results[0].Record.Questions))
	}
	if results[0].Record.TotalScore != "2/2" {
		t.Errorf("merged total = %q, want 2/2", results[0].Record.TotalScore)
	}
}

func TestRunSubChunkFailureFailsTheSlot(t *testing.T) {
	cfg := testCfg()
	cfg.PagesPerStudent = 4
	cfg.MaxImagesPerCall = 2 // no key pages, so 2 student pages per call

	// Both sub-chunks carry index 1; fail every call for that index.
	fg := &fakeGrader{failOn: map[int]bool{1: true}}
	o := NewOrchestrator(fg, cfg)

	results := o.Run(context.Background(), makePages(4), model.SolutionKey{})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !results[0].Failed() {
		t.Error("a slot with failed sub-chunks must be an error slot")
	}
}

func TestRunBoundedConcurrency(t *testing.T) {
	cfg := testCfg()
	cfg.PagesPerStudent = 1
	cfg.Concurrency = 2

	fg := &fakeGrader{}
	o := NewOrchestrator(fg, cfg)
	o.Run(context.Background(), makePages(12), model.SolutionKey{})

	if got := fg.maxSeen.Load(); got > 2 {
		t.Errorf("observed %d concurrent calls, budget is 2", got)
	}
	if len(fg.calls) != 12 {
		t.Errorf("expected 12 calls, got %d", len(fg.calls))
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := NewOrchestrator(&fakeGrader{}, testCfg())
	results := o.Run(ctx, makePages(4), model.SolutionKey{})

	if len(results) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(results))
	}
	for _, r := range results {
		if !r.Failed() {
			t.Errorf("slot %d should report cancellation", r.StudentIndex)
		}
	}
}
