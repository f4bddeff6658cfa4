package omr

import (
	"fmt"
	"sort"
	"strings"
)

// Thresholds is the decoder confidence policy shared by student-ID and
// answer decoding.
type Thresholds struct {
	// Fill is the absolute fill score at or above which a bubble counts as
	// marked. Comparison is inclusive.
	Fill float64
	// Relative is the runner-up ratio that flags ambiguity (ID digits) or
	// drives the fallback cutoff (answers).
	Relative float64
	// MinDarkness is the floor below which the best mark is considered
	// absent rather than ambiguous.
	MinDarkness float64
}

// DefaultThresholds matches the printed sheet calibration.
func DefaultThresholds() Thresholds {
	return Thresholds{Fill: 0.35, Relative: 0.6, MinDarkness: 0.08}
}

// bubbleScore pairs a bubble label with its measured fill score.
type bubbleScore struct {
	label string
	score float64
}

// decodeDigit resolves one student-ID column to a digit. Exactly one bubble
// at or above the fill threshold is accepted outright. Otherwise the best
// bubble decides: too light records "?", a close runner-up records "?", and
// a clear winner is accepted. Never fails; ambiguity degrades to "?" plus a
// warning.
func decodeDigit(digitIndex int, scores []bubbleScore, th Thresholds) (string, []string) {
	var hits []string
	for _, s := range scores {
		if s.score >= th.Fill {
			hits = append(hits, s.label)
		}
	}
	if len(hits) == 1 {
		return hits[0], nil
	}

	best, rival := bestAndRival(scores)

	if best.score < th.MinDarkness {
		return "?", []string{fmt.Sprintf(
			"Digit %d: no bubble above threshold and best mark too light (best %s=%.2f).",
			digitIndex, best.label, best.score)}
	}
	if rival >= best.score*th.Relative {
		return "?", []string{fmt.Sprintf(
			"Digit %d: ambiguous fill (%s=%.2f, next=%.2f).",
			digitIndex, best.label, best.score, rival)}
	}
	return best.label, nil
}

// decodeAnswer resolves one question to a comma-joined, sorted selection.
// All bubbles at or above the fill threshold are selected (multi-select).
// When none qualify: a too-light best mark records an empty answer; otherwise
// a relative cutoff max(fill/2, best x relative) selects the fallback set,
// degrading to just the best bubble if even the cutoff selects none. Bubbles
// tied exactly at the cutoff are all selected; output order is always
// lexicographic by label.
func decodeAnswer(questionNumber int, scores []bubbleScore, th Thresholds) (string, []string) {
	var selected []string
	for _, s := range scores {
		if s.score >= th.Fill {
			selected = append(selected, s.label)
		}
	}
	if len(selected) > 0 {
		return joinSorted(selected), nil
	}

	best, _ := bestAndRival(scores)

	if best.score < th.MinDarkness {
		return "", []string{fmt.Sprintf(
			"Question %d: no selection above threshold and best mark too light (best %s=%.2f).",
			questionNumber, best.label, best.score)}
	}

	cutoff := maxFloat(th.Fill*0.5, best.score*th.Relative)
	var fallback []string
	for _, s := range scores {
		if s.score >= cutoff {
			fallback = append(fallback, s.label)
		}
	}
	if len(fallback) == 0 {
		fallback = []string{best.label}
	}

	return joinSorted(fallback), []string{fmt.Sprintf(
		"Question %d: using relative threshold fallback (best %s=%.2f).",
		questionNumber, best.label, best.score)}
}

// bestAndRival returns the highest-scoring bubble and the runner-up score.
// The rival score is 0 when only one bubble exists. Ties on the best score
// break toward the lexicographically smaller label for determinism.
func bestAndRival(scores []bubbleScore) (bubbleScore, float64) {
	if len(scores) == 0 {
		return bubbleScore{label: "?"}, 0
	}
	best := scores[0]
	for _, s := range scores[1:] {
		if s.score > best.score || (s.score == best.score && s.label < best.label) {
			best = s
		}
	}
	rival := 0.0
	seenBest := false
	for _, s := range scores {
		if !seenBest && s.label == best.label && s.score == best.score {
			seenBest = true
			continue
		}
		if s.score > rival {
			rival = s.score
		}
	}
	return best, rival
}

func joinSorted(labels []string) string {
	sorted := append([]string(nil), labels...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
