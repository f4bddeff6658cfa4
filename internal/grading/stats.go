package grading

// BatchStats summarizes the scores of one graded batch.
type BatchStats struct {
	MeanScore   float64 `json:"mean_score"`
	MinScore    float64 `json:"min_score"`
	MaxScore    float64 `json:"max_score"`
	MeanPercent float64 `json:"mean_percent"`
}

// Stats computes mean/min/max score and mean percent over graded responses.
// An empty batch yields all zeros.
func Stats(responses []GradedResponse) BatchStats {
	if len(responses) == 0 {
		return BatchStats{}
	}

	var sumScore, sumPercent float64
	minScore, maxScore := responses[0].Score, responses[0].Score
	for _, r := range responses {
		sumScore += r.Score
		sumPercent += r.Percent
		if r.Score < minScore {
			minScore = r.Score
		}
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	n := float64(len(responses))
	return BatchStats{
		MeanScore:   round2(sumScore / n),
		MinScore:    round2(minScore),
		MaxScore:    round2(maxScore),
		MeanPercent: round2(sumPercent / n),
	}
}
