package analysis

import "math"

// ScoreInput is what the quality score depends on.
type ScoreInput struct {
	Completeness  float64
	DuplicateRows int
	TotalRows     int
	Anomalies     int
	SchemaIssues  int
	Columns       []ColumnProfile
}

// Score condenses a report into a 0–100 quality score.
func Score(in ScoreInput) int {
	score := 100.0
	score -= (100 - in.Completeness) * MissingPenaltyWeight
	if in.TotalRows > 0 {
		score -= float64(in.DuplicateRows) / float64(in.TotalRows) * 100 * DuplicatePenaltyWeight
	}
	score -= math.Min(AnomalyPenaltyCap, float64(in.Anomalies)*AnomalyPenaltyEach)
	score -= math.Min(SchemaPenaltyCap, float64(in.SchemaIssues)*SchemaPenaltyEach)
	for _, c := range in.Columns {
		if c.UniqueCount == 1 {
			score -= ZeroVariancePenalty
		}
	}
	r := int(math.Round(score))
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return r
}
