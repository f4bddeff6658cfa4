package grading

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidAnswerKey indicates an answer-key document that cannot produce
// question specs.
var ErrInvalidAnswerKey = errors.New("invalid answer key")

// QuestionSpec is the grading rule for one question, derived from the answer
// key. CorrectOptions holds lowercase tokens; Points is never negative.
type QuestionSpec struct {
	QuestionID     string
	CorrectOptions map[string]bool
	Points         float64
}

// IsMultiple reports whether the question is multi-select.
func (s QuestionSpec) IsMultiple() bool { return len(s.CorrectOptions) > 1 }

// NumCorrect is the number of correct options.
func (s QuestionSpec) NumCorrect() int { return len(s.CorrectOptions) }

// keyEntry mirrors one element of the stored answer-key JSON array.
type keyEntry struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Points   *float64 `json:"points"`
}

// ParseAnswerKey builds ordered question specs from an answer-key document:
// an array of {question, answer, points?} where answer is a comma-separated
// token list and points defaults to 1. Question IDs are normalized to
// uppercase. A question with zero correct tokens fails the whole parse.
func ParseAnswerKey(raw []byte) ([]QuestionSpec, error) {
	var entries []keyEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAnswerKey, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidAnswerKey)
	}

	specs := make([]QuestionSpec, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		questionID := strings.ToUpper(strings.TrimSpace(e.Question))
		if questionID == "" {
			return nil, fmt.Errorf("%w: entry with empty question ID", ErrInvalidAnswerKey)
		}
		if seen[questionID] {
			return nil, fmt.Errorf("%w: duplicate question %q", ErrInvalidAnswerKey, questionID)
		}
		seen[questionID] = true

		tokens := TokenizeAnswers(e.Answer)
		if len(tokens) == 0 {
			return nil, fmt.Errorf("%w: question %q has no valid correct answers", ErrInvalidAnswerKey, questionID)
		}

		points := 1.0
		if e.Points != nil {
			points = *e.Points
		}
		if points < 0 {
			return nil, fmt.Errorf("%w: question %q has negative points", ErrInvalidAnswerKey, questionID)
		}

		correct := make(map[string]bool, len(tokens))
		for _, tok := range tokens {
			correct[tok] = true
		}
		specs = append(specs, QuestionSpec{
			QuestionID:     questionID,
			CorrectOptions: correct,
			Points:         points,
		})
	}
	return specs, nil
}

// TokenizeAnswers normalizes a comma-separated answer string into trimmed
// lowercase tokens, dropping empties.
func TokenizeAnswers(value string) []string {
	text := strings.TrimSpace(value)
	if text == "" {
		return nil
	}
	var tokens []string
	for _, part := range strings.Split(text, ",") {
		if tok := strings.ToLower(strings.TrimSpace(part)); tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// questionNumber extracts the numeric suffix from a question identifier
// ("Q01" -> 1, "7" -> 7). Matching by numeric suffix handles "Q1" vs "Q01"
// vs bare "1" key variants.
func questionNumber(id string) (int, bool) {
	trimmed := strings.TrimLeft(strings.ToUpper(strings.TrimSpace(id)), "Q")
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, false
	}
	return n, true
}
