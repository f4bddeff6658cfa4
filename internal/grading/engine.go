package grading

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidScore guards the multi-select invariant that the number of
// selected correct options can never exceed the number of correct options.
// The hits formula makes this unreachable; the check is kept as a hard stop
// against a miscounted caller.
var ErrInvalidScore = errors.New("invalid score computation")

// Engine grades decoded student answers against a parsed answer key. An
// Engine is immutable and safe for concurrent use.
type Engine struct {
	specs       []QuestionSpec
	totalPoints float64
}

// NewEngine builds an engine over ordered question specs.
func NewEngine(specs []QuestionSpec) *Engine {
	total := 0.0
	for _, s := range specs {
		total += s.Points
	}
	return &Engine{specs: specs, totalPoints: total}
}

// TotalPoints is the maximum attainable score.
func (e *Engine) TotalPoints() float64 { return e.totalPoints }

// Specs returns the engine's question specs in key order.
func (e *Engine) Specs() []QuestionSpec { return e.specs }

// GradeResult is the outcome of grading one student's response set.
type GradeResult struct {
	TotalScore  float64
	Percent     float64
	PerQuestion map[string]float64
}

// Grade scores a student's answers. Answers map question identifiers (any
// of "Q01"/"Q1"/"1") to comma-joined option strings. A question with no
// matching answer is treated as unanswered. Single-select questions are
// all-or-nothing; multi-select questions earn Canvas-style partial credit,
// floored at zero and never exceeding the question's points.
func (e *Engine) Grade(answers map[string]string) (GradeResult, error) {
	result := GradeResult{PerQuestion: make(map[string]float64, len(e.specs))}

	for _, spec := range e.specs {
		studentAnswer := findAnswer(answers, spec.QuestionID)
		selected := TokenizeAnswers(studentAnswer)

		var score float64
		if !spec.IsMultiple() {
			if exactMatch(selected, spec.CorrectOptions) {
				score = spec.Points
			}
		} else {
			hits, extras := 0, 0
			for _, tok := range selected {
				if spec.CorrectOptions[tok] {
					hits++
				} else {
					extras++
				}
			}
			var err error
			score, err = scoreMultipleSelect(spec.Points, spec.NumCorrect(), hits, extras)
			if err != nil {
				return GradeResult{}, fmt.Errorf("question %s: %w", spec.QuestionID, err)
			}
		}

		score = round2(score)
		result.PerQuestion[spec.QuestionID] = score
		result.TotalScore += score
	}

	result.TotalScore = round2(result.TotalScore)
	if e.totalPoints > 0 {
		result.Percent = round2(result.TotalScore / e.totalPoints * 100)
	}
	return result, nil
}

// scoreMultipleSelect applies the Canvas partial-credit formula:
// max(0, (hits - extras) x points/numCorrect), rounded to two decimals.
func scoreMultipleSelect(points float64, numCorrect, hits, extras int) (float64, error) {
	if numCorrect <= 0 {
		return 0, nil
	}
	if hits < 0 || extras < 0 {
		return 0, fmt.Errorf("%w: negative selection counts", ErrInvalidScore)
	}
	if hits > numCorrect {
		return 0, fmt.Errorf("%w: selected correct %d exceeds correct options %d", ErrInvalidScore, hits, numCorrect)
	}
	perOption := points / float64(numCorrect)
	raw := float64(hits-extras) * perOption
	return round2(math.Max(0, raw)), nil
}

// findAnswer locates the student's answer for a question ID, first by
// normalized equality, then by numeric suffix equality.
func findAnswer(answers map[string]string, questionID string) string {
	for key, value := range answers {
		normalized := strings.ToUpper(strings.TrimSpace(key))
		if !strings.HasPrefix(normalized, "Q") {
			normalized = "Q" + normalized
		}
		if normalized == questionID {
			return value
		}
	}
	qidNum, ok := questionNumber(questionID)
	if !ok {
		return ""
	}
	for key, value := range answers {
		if keyNum, ok := questionNumber(key); ok && keyNum == qidNum {
			return value
		}
	}
	return ""
}

func exactMatch(selected []string, correct map[string]bool) bool {
	unique := make(map[string]bool, len(selected))
	for _, tok := range selected {
		unique[tok] = true
	}
	if len(unique) != len(correct) {
		return false
	}
	for tok := range unique {
		if !correct[tok] {
			return false
		}
	}
	return true
}

// round2 rounds half away from zero to two decimals, with a tiny bias so
// values like 2.665 from binary representation round up as expected.
func round2(v float64) float64 {
	return math.Round((v+1e-12)*100) / 100
}
