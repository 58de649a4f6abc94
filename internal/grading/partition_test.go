package grading

import (
	"testing"

	"github.com/pavelanni/gradescan/internal/model"
)

func makePages(n int) []model.Page {
	pages := make([]model.Page, n)
	for i := range pages {
		pages[i] = model.Page{Data: []byte{byte(i)}, MIME: "image/jpeg"}
	}
	return pages
}

func TestPartition(t *testing.T) {
	tests := []struct {
		name      string
		pages     int
		stride    int
		wantSizes []int
	}{
		{"even split", 6, 2, []int{2, 2, 2}},
		{"trailing partial", 10, 3, []int{3, 3, 3, 1}},
		{"single page default", 3, 1, []int{1, 1, 1}},
		{"stride larger than document", 2, 5, []int{2}},
		{"zero pages", 0, 3, nil},
		{"non-positive stride falls back to one page", 3, 0, []int{1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Partition(makePages(tt.pages), tt.stride)
			if len(chunks) != len(tt.wantSizes) {
				t.Fatalf("got %d chunks, want %d", len(chunks), len(tt.wantSizes))
			}
			for i, ch := range chunks {
				if len(ch.Pages) != tt.wantSizes[i] {
					t.Errorf("chunk %d size = %d, want %d", i, len(ch.Pages), tt.wantSizes[i])
				}
				if ch.StudentIndex != i+1 {
					t.Errorf("chunk %d index = %d, want %d", i, ch.StudentIndex, i+1)
				}
			}
		})
	}
}

func TestPartitionFinalPartialFlag(t *testing.T) {
	chunks := Partition(makePages(10), 3)
	for i, ch := range chunks {
		wantPartial := i == 3
		if ch.FinalPartial != wantPartial {
			t.Errorf("chunk %d FinalPartial = %v, want %v", i, ch.FinalPartial, wantPartial)
		}
	}

	// An evenly divided document has no partial chunk.
	for i, ch := range Partition(makePages(6), 2) {
		if ch.FinalPartial {
			t.Errorf("chunk %d unexpectedly partial", i)
		}
	}
}

func TestPartitionPreservesPageOrder(t *testing.T) {
	pages := makePages(7)
	chunks := Partition(pages, 3)

	var flat []model.Page
	for _, ch := range chunks {
		flat = append(flat, ch.Pages...)
	}
	if len(flat) != len(pages) {
		t.Fatalf("pages lost: %d != %d", len(flat), len(pages))
	}
	for i := range pages {
		if flat[i].Data[0] != pages[i].Data[0] {
			t.Fatalf("page order broken at %d", i)
		}
	}
}

func TestSubSplit(t *testing.T) {
	chunk := model.StudentChunk{StudentIndex: 2, Pages: makePages(7), FinalPartial: true}

	subs := subSplit(chunk, 3)
	if len(subs) != 3 {
		t.Fatalf("got %d sub-chunks, want 3", len(subs))
	}
	for i, sub := range subs {
		if sub.StudentIndex != 2 {
			t.Errorf("sub-chunk %d index = %d, want shared index 2", i, sub.StudentIndex)
		}
	}
	if got := []int{len(subs[0].Pages), len(subs[1].Pages), len(subs[2].Pages)}; got[0] != 3 || got[1] != 3 || got[2] != 1 {
		t.Errorf("sub-chunk sizes = %v", got)
	}
	if subs[0].FinalPartial || subs[1].FinalPartial || !subs[2].FinalPartial {
		t.Error("only the last sub-chunk should keep the partial flag")
	}

	// A chunk within budget passes through unchanged.
	whole := subSplit(chunk, 10)
	if len(whole) != 1 || len(whole[0].Pages) != 7 {
		t.Errorf("expected passthrough, got %d sub-chunks", len(whole))
	}
}
