// Package grading holds the run pipeline: partition the scanned
// document into per-student chunks, grade each chunk through the model
// client, and merge sub-chunk results into one record per student.
package grading

import (
	"github.com/pavelanni/gradescan/internal/model"
)

// Partition slices an ordered page sequence into one chunk per student
// using a fixed stride. The final chunk may hold fewer than stride
// pages and is still emitted, flagged FinalPartial. Zero pages yield
// zero chunks.
func Partition(pages []model.Page, stride int) []model.StudentChunk {
	if stride <= 0 {
		stride = model.DefaultPagesPerStudent
	}

	var chunks []model.StudentChunk
	for start := 0; start < len(pages); start += stride {
		end := min(start+stride, len(pages))
		chunks = append(chunks, model.StudentChunk{
			StudentIndex: len(chunks) + 1,
			Pages:        pages[start:end],
			FinalPartial: end == len(pages) && end-start < stride,
		})
	}
	return chunks
}

// subSplit breaks a chunk whose page count exceeds the per-call image
// budget into consecutive sub-chunks sharing the same StudentIndex.
// Sub-chunk results are merged back into one record after grading.
func subSplit(chunk model.StudentChunk, maxPages int) []model.StudentChunk {
	if maxPages <= 0 || len(chunk.Pages) <= maxPages {
		return []model.StudentChunk{chunk}
	}

	var subs []model.StudentChunk
	for start := 0; start < len(chunk.Pages); start += maxPages {
		end := min(start+maxPages, len(chunk.Pages))
		subs = append(subs, model.StudentChunk{
			StudentIndex: chunk.StudentIndex,
			Pages:        chunk.Pages[start:end],
			FinalPartial: chunk.FinalPartial && end == len(chunk.Pages),
		})
	}
	return subs
}
