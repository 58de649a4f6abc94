package grading

import (
	"strings"

	"github.com/pavelanni/gradescan/internal/model"
	"github.com/pavelanni/gradescan/internal/score"
)

// Merge combines grading records known to belong to the same student
// (sub-chunks of an oversized chunk, or repeated calls for one index)
// into a single record. Question lists are concatenated in input
// order; a repeated question id is resolved last-write-wins, with the
// later record's score and comment replacing the earlier ones at the
// position of first appearance, so report ordering stays stable. The
// total is recomputed over the deduplicated list; the overall comment
// follows policy.
func Merge(records []model.GradingRecord, policy model.CommentPolicy) model.GradingRecord {
	var merged model.GradingRecord

	position := make(map[string]int)
	questions := []model.QuestionMark{}
	for _, rec := range records {
		if merged.StudentName == "" {
			merged.StudentName = rec.StudentName
		}
		for _, q := range rec.Questions {
			if at, seen := position[q.ID]; seen {
				questions[at] = q
				continue
			}
			position[q.ID] = len(questions)
			questions = append(questions, q)
		}
	}

	merged.Questions = questions
	merged.OverallComment = mergeComments(records, policy)
	merged.TotalScore = score.Total(questions)
	return merged
}

func mergeComments(records []model.GradingRecord, policy model.CommentPolicy) string {
	var comments []string
	for _, rec := range records {
		c := strings.TrimSpace(rec.OverallComment)
		if c == "" {
			continue
		}
		if policy != model.CommentPolicyConcat {
			return c
		}
		duplicate := false
		for _, seen := range comments {
			if seen == c {
				duplicate = true
				break
			}
		}
		if !duplicate {
			comments = append(comments, c)
		}
	}
	return strings.Join(comments, " / ")
}
