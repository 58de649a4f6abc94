// Package score interprets the "obtained/possible" score strings the
// grading model emits and recomputes authoritative totals from them.
// The model is reliable at per-question judgment but not at arithmetic
// across many questions, so a record's total is always recomputed here
// and never taken from the model.
package score

import (
	"strconv"
	"strings"

	"github.com/pavelanni/gradescan/internal/model"
)

// Parse reads a score string of the form "X/Y" or "X". It is total
// over all inputs: an unparsable left segment yields Obtained 0, an
// unparsable or absent right segment yields Possible nil. Possible nil
// means "no denominator supplied", which is distinct from a zero
// denominator.
func Parse(s string) model.ParsedScore {
	left, right, hasSlash := strings.Cut(s, "/")

	var parsed model.ParsedScore
	if v, err := strconv.ParseFloat(strings.TrimSpace(left), 64); err == nil {
		parsed.Obtained = v
	}
	if hasSlash {
		if v, err := strconv.ParseFloat(strings.TrimSpace(right), 64); err == nil {
			parsed.Possible = &v
		}
	}
	return parsed
}

// Total sums every question's parsed score and renders the
// authoritative total string: "obtained/possible" when at least one
// question carried a positive summed denominator, bare "obtained"
// otherwise. It is insensitive to question order.
func Total(questions []model.QuestionMark) string {
	var obtained, possible float64
	anyPossible := false
	for _, q := range questions {
		p := Parse(q.Score)
		obtained += p.Obtained
		if p.Possible != nil {
			possible += *p.Possible
			anyPossible = true
		}
	}

	if anyPossible && possible > 0 {
		return formatNumber(obtained) + "/" + formatNumber(possible)
	}
	return formatNumber(obtained)
}

// formatNumber renders whole values without a decimal point so totals
// read "17/20" rather than "17.000000/20.000000".
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
