package analysis

import "fmt"

// IssueType names a structural problem.
type IssueType string

const (
	IssueMixedTypes        IssueType = "mixed_types"
	IssueInconsistentDates IssueType = "inconsistent_dates"
	IssueHighCardinality   IssueType = "high_cardinality"
	IssueExcessiveMissing  IssueType = "excessive_missing"
)

// SchemaIssue is a structural finding on one column.
type SchemaIssue struct {
	Column         string    `json:"column"`
	Type           IssueType `json:"type"`
	Severity       Severity  `json:"severity"`
	Description    string    `json:"description"`
	Recommendation string    `json:"recommendation"`
}

// DetectSchemaIssues checks every column, in column order. Per column the
// checks run mixed types, date consistency, cardinality, then missingness.
func DetectSchemaIssues(ds *Dataset, profiles []ColumnProfile, p Policy) []SchemaIssue {
	p = p.withDefaults()
	var out []SchemaIssue
	for _, prof := range profiles {
		if prof.Type == TypeString {
			numPct, datePct := shapeShares(ds.Column(prof.Name))
			if within(numPct, p.MixedTypeLowerPercent, p.MixedTypeUpperPercent) {
				out = append(out, SchemaIssue{
					Column:         prof.Name,
					Type:           IssueMixedTypes,
					Severity:       SeverityHigh,
					Description:    fmt.Sprintf("Column contains mixed data types: %.0f%% numeric, %.0f%% text", numPct, 100-numPct),
					Recommendation: "Consider separating into multiple columns or standardizing format",
				})
			}
			if within(datePct, p.MixedTypeLowerPercent, p.MixedTypeUpperPercent) {
				out = append(out, SchemaIssue{
					Column:         prof.Name,
					Type:           IssueInconsistentDates,
					Severity:       SeverityMedium,
					Description:    fmt.Sprintf("Column has inconsistent date formats (%.0f%% parseable as dates)", datePct),
					Recommendation: "Standardize date format (e.g., YYYY-MM-DD)",
				})
			}
			if prof.ValidCount > 0 {
				uniquePct := float64(prof.UniqueCount) / float64(prof.ValidCount) * 100
				if uniquePct > p.HighCardinalityPercent {
					out = append(out, SchemaIssue{
						Column:         prof.Name,
						Type:           IssueHighCardinality,
						Severity:       SeverityLow,
						Description:    fmt.Sprintf("Column appears to be a unique identifier (%.0f%% unique)", uniquePct),
						Recommendation: "Consider using as a primary key or removing if not needed for analysis",
					})
				}
			}
		}
		if prof.MissingPercentage > p.ExcessiveMissingPercent {
			out = append(out, SchemaIssue{
				Column:         prof.Name,
				Type:           IssueExcessiveMissing,
				Severity:       SeverityHigh,
				Description:    fmt.Sprintf("Column has %.1f%% missing values", prof.MissingPercentage),
				Recommendation: "Consider removing this column or investigating why data is missing",
			})
		}
	}
	return out
}

// shapeShares returns the number-like and date-like shares of the present
// values, as percentages.
func shapeShares(cells []Value) (numPct, datePct float64) {
	var n, nums, dates int
	for _, v := range cells {
		if v.IsMissing() {
			continue
		}
		n++
		if IsNumberLike(v) {
			nums++
		}
		if IsDateLike(v) {
			dates++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return float64(nums) / float64(n) * 100, float64(dates) / float64(n) * 100
}

func within(v, lo, hi float64) bool { return v > lo && v < hi }
