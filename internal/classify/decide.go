// Package classify turns model scores into the displayed label and
// confidence, and runs the full image-to-result pipeline.
package classify

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/Brownie44l1/breed-classifier/internal/labels"
)

// ErrOutputMismatch means the model and label file disagree on class count.
var ErrOutputMismatch = errors.New("model output does not match label list")

// Result is the outcome of one classification.
type Result struct {
	Index int
	Label string
	Score float32
	// Known is false when the score did not clear the threshold.
	Known bool
}

// ConfidenceText formats the score for display.
func (r Result) ConfidenceText() string {
	return FormatConfidence(r.Score)
}

// ArgMax returns the index of the largest score, the first one on ties, or
// -1 for an empty slice.
func ArgMax(scores []float32) int {
	if len(scores) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best
}

// Decide picks the arg-max label. With a threshold, a best score at or below
// it yields an unknown result; a nil threshold accepts every arg-max.
func Decide(scores []float32, l labels.List, threshold *float32) (Result, error) {
	if len(scores) != l.Len() {
		return Result{}, errors.Wrapf(ErrOutputMismatch, "%d scores, %d labels", len(scores), l.Len())
	}
	idx := ArgMax(scores)
	if idx < 0 {
		return Result{}, errors.New("no scores")
	}
	label, _ := l.At(idx)

	res := Result{Index: idx, Label: label, Score: scores[idx], Known: true}
	if threshold != nil && res.Score <= *threshold {
		res.Known = false
	}
	return res, nil
}

// FormatConfidence renders a [0,1] score as a percentage with two decimals,
// e.g. 0.8734 -> "87.34%".
func FormatConfidence(score float32) string {
	return fmt.Sprintf("%.2f%%", float64(score)*100)
}
