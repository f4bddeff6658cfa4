package grading

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseAnswerKey(t *testing.T) {
	raw := []byte(`[
		{"question": "q1", "answer": "A"},
		{"question": "Q02", "answer": "a, C ,b", "points": 3},
		{"question": "3", "answer": "TRUE", "points": 0.5}
	]`)

	specs, err := ParseAnswerKey(raw)
	if err != nil {
		t.Fatalf("ParseAnswerKey: %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("got %d specs, want 3", len(specs))
	}

	if specs[0].QuestionID != "Q1" || specs[0].Points != 1 || specs[0].IsMultiple() {
		t.Errorf("spec[0] = %+v, want Q1, 1 point, single-select", specs[0])
	}
	if specs[1].QuestionID != "Q02" || specs[1].Points != 3 || specs[1].NumCorrect() != 3 {
		t.Errorf("spec[1] = %+v, want Q02, 3 points, 3 correct", specs[1])
	}
	if !specs[1].CorrectOptions["a"] || !specs[1].CorrectOptions["b"] || !specs[1].CorrectOptions["c"] {
		t.Errorf("spec[1] options = %v, want lowercase a, b, c", specs[1].CorrectOptions)
	}
	if specs[2].QuestionID != "3" || specs[2].Points != 0.5 {
		t.Errorf("spec[2] = %+v", specs[2])
	}
}

func TestParseAnswerKeyInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{`},
		{"empty array", `[]`},
		{"empty question id", `[{"question": "  ", "answer": "A"}]`},
		{"duplicate question", `[
			{"question": "Q1", "answer": "A"},
			{"question": "q1", "answer": "B"}
		]`},
		{"no valid tokens", `[{"question": "Q1", "answer": " , ,"}]`},
		{"negative points", `[{"question": "Q1", "answer": "A", "points": -1}]`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseAnswerKey([]byte(tc.raw))
			if !errors.Is(err, ErrInvalidAnswerKey) {
				t.Errorf("ParseAnswerKey = %v, want ErrInvalidAnswerKey", err)
			}
		})
	}
}

func TestTokenizeAnswers(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"A", []string{"a"}},
		{" A , c,B ", []string{"a", "c", "b"}},
		{"", nil},
		{" , ,", nil},
	}
	for _, tc := range tests {
		if got := TokenizeAnswers(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("TokenizeAnswers(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestQuestionNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"Q01", 1, true},
		{"q7", 7, true},
		{"12", 12, true},
		{" Q3 ", 3, true},
		{"QA", 0, false},
		{"", 0, false},
	}
	for _, tc := range tests {
		got, ok := questionNumber(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("questionNumber(%q) = (%d, %v), want (%d, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
