package omr

import (
	"fmt"
	"image"
	"strings"

	"github.com/ctroy978/edmpc/internal/sheet"
	"github.com/ctroy978/edmpc/internal/vision"
)

// StudentIDError is the sentinel student ID recorded when a sheet's ID
// column could not be decoded.
const StudentIDError = "ERROR"

// ScanResult is the decoded content of a single scanned page. Answers maps
// question number to a comma-joined, sorted selection (possibly empty).
// Immutable once returned.
type ScanResult struct {
	PageNumber int            `json:"page_number"`
	StudentID  string         `json:"student_id"`
	Answers    map[int]string `json:"answers"`
	Warnings   []string       `json:"warnings,omitempty"`
}

// Scanner decodes bubble sheet page images against a fixed layout. A Scanner
// is stateless after construction and safe for concurrent use.
type Scanner struct {
	layout *sheet.LayoutGuide
	th     Thresholds
}

// NewScanner builds a scanner for one layout with the given confidence
// policy.
func NewScanner(layout *sheet.LayoutGuide, th Thresholds) *Scanner {
	return &Scanner{layout: layout, th: th}
}

// ScanImage decodes one page: estimates the layout-to-image transform,
// samples every bubble, and applies the decision rules for the student ID
// and each question. Decode ambiguity never fails the page; it degrades to
// warnings and deterministic fallback values.
func (s *Scanner) ScanImage(pageNumber int, img image.Image) ScanResult {
	gray := vision.ToGray(img)
	transform, warnings := vision.EstimateAlignment(gray, s.layout)

	studentID, idWarnings := s.scanStudentID(gray, transform)
	answers, answerWarnings := s.scanAnswers(gray, transform)

	all := append(warnings, idWarnings...)
	all = append(all, answerWarnings...)

	return ScanResult{
		PageNumber: pageNumber,
		StudentID:  studentID,
		Answers:    answers,
		Warnings:   all,
	}
}

// scanStudentID decodes the ID digit columns in digit_index order and
// concatenates the digits. An unresolved digit or an empty column set yields
// the ERROR sentinel with a terminal warning.
func (s *Scanner) scanStudentID(gray *image.Gray, t vision.Transform) (string, []string) {
	var warnings []string
	var digits []string

	for _, column := range s.layout.StudentIDColumns {
		scores := s.sampleColumn(gray, t, column.Bubbles)
		digit, w := decodeDigit(column.DigitIndex, scores, s.th)
		warnings = append(warnings, w...)
		digits = append(digits, digit)
	}

	studentID := strings.Join(digits, "")
	if studentID == "" || strings.Contains(studentID, "?") {
		warnings = append(warnings, "Student ID unresolved.")
		studentID = StudentIDError
	}
	return studentID, warnings
}

func (s *Scanner) scanAnswers(gray *image.Gray, t vision.Transform) (map[int]string, []string) {
	answers := make(map[int]string, len(s.layout.Questions))
	var warnings []string

	for _, q := range s.layout.Questions {
		scores := s.sampleColumn(gray, t, q.Bubbles)
		answer, w := decodeAnswer(q.Number, scores, s.th)
		warnings = append(warnings, w...)
		answers[q.Number] = answer
	}
	return answers, warnings
}

func (s *Scanner) sampleColumn(gray *image.Gray, t vision.Transform, bubbles []sheet.BubbleDef) []bubbleScore {
	scores := make([]bubbleScore, 0, len(bubbles))
	for _, b := range bubbles {
		scores = append(scores, bubbleScore{
			label: b.Label,
			score: vision.SampleBubble(gray, t, s.layout.Height, b),
		})
	}
	return scores
}

// QuestionNumbers exposes the layout's sorted question numbers, used by the
// orchestrator when building empty-answer placeholders.
func (s *Scanner) QuestionNumbers() []int {
	return s.layout.QuestionNumbers()
}

// ErrorResult builds the synthetic result recorded for a page whose decode
// failed outright.
func ErrorResult(pageNumber int, cause error) ScanResult {
	return ScanResult{
		PageNumber: pageNumber,
		StudentID:  StudentIDError,
		Answers:    map[int]string{},
		Warnings:   []string{fmt.Sprintf("Page decode failed: %v", cause)},
	}
}
