package analysis

import (
	"errors"
	"fmt"
)

// ErrEmptyDataset is matched by every *EmptyDatasetError.
var ErrEmptyDataset = errors.New("no data provided for analysis")

// EmptyDatasetError is returned when there is nothing to analyze.
type EmptyDatasetError struct {
	Reason string
}

func (e *EmptyDatasetError) Error() string {
	if e.Reason == "" {
		return ErrEmptyDataset.Error()
	}
	return fmt.Sprintf("%s: %s", ErrEmptyDataset.Error(), e.Reason)
}

func (e *EmptyDatasetError) Is(target error) bool { return target == ErrEmptyDataset }

// Summary holds dataset-level counts.
type Summary struct {
	TotalRows     int     `json:"totalRows"`
	TotalColumns  int     `json:"totalColumns"`
	TotalMissing  int     `json:"totalMissing"`
	Completeness  float64 `json:"completeness"`
	DuplicateRows int     `json:"duplicateRows"`
}

// Report is the full analysis of one dataset.
type Report struct {
	Summary      Summary         `json:"summary"`
	Columns      []ColumnProfile `json:"columns"`
	QualityScore int             `json:"qualityScore"`
	Anomalies    []Anomaly       `json:"anomalies"`
	SchemaIssues []SchemaIssue   `json:"schemaIssues"`
}

// Analyze runs the full pipeline with DefaultPolicy.
func Analyze(ds *Dataset) (*Report, error) {
	return AnalyzeWithPolicy(ds, DefaultPolicy())
}

// AnalyzeRows analyzes decoded rows. See FromMaps for column ordering.
func AnalyzeRows(columns []string, rows []map[string]any) (*Report, error) {
	return Analyze(FromMaps(columns, rows))
}

// AnalyzeWithPolicy profiles every column, counts duplicates, detects
// anomalies and schema issues, then scores the result.
func AnalyzeWithPolicy(ds *Dataset, p Policy) (*Report, error) {
	if ds.Len() == 0 {
		return nil, &EmptyDatasetError{}
	}
	if len(ds.Columns) == 0 {
		return nil, &EmptyDatasetError{Reason: "first row has no columns"}
	}
	p = p.withDefaults()

	rep := &Report{
		Columns:      make([]ColumnProfile, 0, len(ds.Columns)),
		Anomalies:    []Anomaly{},
		SchemaIssues: []SchemaIssue{},
	}
	totalMissing := 0
	for _, c := range ds.Columns {
		prof := ProfileColumn(ds, c, p)
		totalMissing += prof.MissingCount
		rep.Columns = append(rep.Columns, prof)
	}

	cells := len(ds.Rows) * len(ds.Columns)
	completeness := 100.0
	if cells > 0 {
		completeness = float64(cells-totalMissing) / float64(cells) * 100
	}
	rep.Summary = Summary{
		TotalRows:     len(ds.Rows),
		TotalColumns:  len(ds.Columns),
		TotalMissing:  totalMissing,
		Completeness:  completeness,
		DuplicateRows: CountDuplicates(ds),
	}
	if a := DetectAnomalies(ds, rep.Columns, p); a != nil {
		rep.Anomalies = a
	}
	if s := DetectSchemaIssues(ds, rep.Columns, p); s != nil {
		rep.SchemaIssues = s
	}
	rep.QualityScore = Score(ScoreInput{
		Completeness:  completeness,
		DuplicateRows: rep.Summary.DuplicateRows,
		TotalRows:     rep.Summary.TotalRows,
		Anomalies:     len(rep.Anomalies),
		SchemaIssues:  len(rep.SchemaIssues),
		Columns:       rep.Columns,
	})
	return rep, nil
}

// Column returns the named profile.
func (r *Report) Column(name string) (ColumnProfile, bool) {
	for _, c := range r.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnProfile{}, false
}
