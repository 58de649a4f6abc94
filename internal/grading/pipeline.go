package grading

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pavelanni/gradescan/internal/llm"
	"github.com/pavelanni/gradescan/internal/model"
)

// Orchestrator runs a full grading pass: partition, per-chunk model
// calls with bounded concurrency, then group-and-merge per student.
type Orchestrator struct {
	grader llm.Grader
	cfg    model.GradingConfig
}

// NewOrchestrator creates an orchestrator over a grading client.
func NewOrchestrator(grader llm.Grader, cfg model.GradingConfig) *Orchestrator {
	return &Orchestrator{grader: grader, cfg: cfg.WithDefaults()}
}

// Run grades the whole student document against the solution key and
// returns one result per logical student, in document order. A failed
// chunk surfaces as an error slot for its student index; the rest of
// the run is unaffected. Chunks share no mutable state, so calls run
// concurrently up to the configured budget; cancellation abandons
// in-flight calls independently.
func (o *Orchestrator) Run(ctx context.Context, pages []model.Page, key model.SolutionKey) []model.ChunkResult {
	students := Partition(pages, o.cfg.PagesPerStudent)
	if len(students) == 0 {
		return nil
	}

	// The per-call image budget covers the forwarded key pages too.
	budget := o.cfg.MaxImagesPerCall - min(len(key.Pages), o.cfg.MaxKeyPages)
	if budget < 1 {
		budget = 1
	}
	var calls []model.StudentChunk
	for _, st := range students {
		calls = append(calls, subSplit(st, budget)...)
	}
	slog.Info("grading run started",
		"students", len(students),
		"calls", len(calls),
		"key_pages", len(key.Pages),
		"concurrency", o.cfg.Concurrency,
	)

	results := make([]model.ChunkResult, len(calls))
	sem := make(chan struct{}, o.cfg.Concurrency)
	var wg sync.WaitGroup
	for i, chunk := range calls {
		wg.Add(1)
		go func(i int, chunk model.StudentChunk) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				results[i] = model.ChunkResult{StudentIndex: chunk.StudentIndex, Err: "cancelled: " + err.Error()}
				return
			}
			results[i] = o.grader.GradeChunk(ctx, chunk, key)
			if results[i].Failed() {
				slog.Warn("chunk grading failed", "student", chunk.StudentIndex, "error", results[i].Err)
			}
		}(i, chunk)
	}
	wg.Wait()

	// Group sub-chunk results by student and merge. A slot with any
	// failed sub-chunk is reported as an error: a merged record missing
	// pages would silently undercount.
	final := make([]model.ChunkResult, 0, len(students))
	for _, st := range students {
		var records []model.GradingRecord
		var failures []string
		for i, chunk := range calls {
			if chunk.StudentIndex != st.StudentIndex {
				continue
			}
			if results[i].Failed() {
				failures = append(failures, results[i].Err)
			} else if results[i].Record != nil {
				records = append(records, *results[i].Record)
			}
		}

		if len(failures) > 0 {
			final = append(final, model.ChunkResult{
				StudentIndex: st.StudentIndex,
				Err:          strings.Join(failures, "; "),
			})
			continue
		}
		merged := Merge(records, o.cfg.CommentPolicy)
		final = append(final, model.ChunkResult{
			StudentIndex: st.StudentIndex,
			Record:       &merged,
		})
	}

	slog.Info("grading run finished", "students", len(final), "failures", countFailures(final))
	return final
}

func countFailures(results []model.ChunkResult) int {
	n := 0
	for _, r := range results {
		if r.Failed() {
			n++
		}
	}
	return n
}
