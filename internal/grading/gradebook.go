package grading

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

// GradedResponse is one successfully decoded, graded sheet as it appears in
// the gradebook.
type GradedResponse struct {
	StudentID string
	Answers   map[string]string
	Score     float64
	Percent   float64
}

// GradebookCSV renders the batch gradebook: header
// Student_ID, Q<n>..., Total_Score, Total_Possible, Percent_Grade with one
// row per response. Question columns are filled by the same normalized /
// numeric-suffix matching rule used by Grade; answer tokens are uppercased
// for display.
func (e *Engine) GradebookCSV(responses []GradedResponse) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"Student_ID"}
	for _, spec := range e.specs {
		header = append(header, "Q"+strings.TrimLeft(spec.QuestionID, "Q"))
	}
	header = append(header, "Total_Score", "Total_Possible", "Percent_Grade")
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for _, resp := range responses {
		row := []string{resp.StudentID}
		for _, spec := range e.specs {
			answer := findAnswer(resp.Answers, spec.QuestionID)
			row = append(row, strings.ToUpper(answer))
		}
		row = append(row,
			formatScore(resp.Score),
			formatScore(e.totalPoints),
			formatScore(resp.Percent),
		)
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write row for %s: %w", resp.StudentID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush gradebook: %w", err)
	}
	return buf.Bytes(), nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
