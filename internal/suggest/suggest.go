// Package suggest turns an analysis report into SQL-shaped cleanup steps.
// The text is a starting point for a human; it is not validated against any
// SQL dialect.
package suggest

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/KaramelBytes/dataqual-cli/internal/analysis"
)

// DefaultTable is used when no table identifier is given.
const DefaultTable = "your_table"

// maxIndexes caps the index statements in the optimization block.
const maxIndexes = 3

// Query is one remediation step.
type Query struct {
	Title       string `json:"title"`
	Text        string `json:"text"`
	Explanation string `json:"explanation"`
}

// Suggestion groups the queries addressing one issue.
type Suggestion struct {
	Issue       string  `json:"issue"`
	Description string  `json:"description"`
	Queries     []Query `json:"queries"`
}

// Generate builds suggestions in a fixed order: missing values, duplicates,
// outliers, sparse columns, mixed types, then general optimization which is
// always present. Queries whose text would be empty are left out.
func Generate(rep *analysis.Report, table string) []Suggestion {
	table = strings.TrimSpace(table)
	if table == "" {
		table = DefaultTable
	}
	tbl := table
	if !qualifiedIdent.MatchString(table) {
		tbl = Ident(table)
	}
	var out []Suggestion
	if s, ok := missingValues(rep, tbl); ok {
		out = append(out, s)
	}
	if s, ok := duplicateRows(rep, tbl); ok {
		out = append(out, s)
	}
	if s, ok := outliers(rep, tbl); ok {
		out = append(out, s)
	}
	if s, ok := sparseColumns(rep, tbl); ok {
		out = append(out, s)
	}
	if s, ok := mixedTypes(rep, tbl); ok {
		out = append(out, s)
	}
	out = append(out, optimization(rep, tbl))
	return out
}

func missingValues(rep *analysis.Report, tbl string) (Suggestion, bool) {
	if rep.Summary.TotalMissing == 0 {
		return Suggestion{}, false
	}
	var cols []analysis.ColumnProfile
	for _, c := range rep.Columns {
		if c.MissingCount > 0 {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return Suggestion{}, false
	}
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].MissingPercentage > cols[j].MissingPercentage })

	conds := make([]string, len(cols))
	for i, c := range cols {
		conds[i] = Ident(c.Name) + " IS NULL"
	}
	where := strings.Join(conds, "\n   OR ")

	var fills []string
	for _, c := range cols {
		if c.Type != analysis.TypeNumber || c.Stats == nil {
			continue
		}
		id := Ident(c.Name)
		fills = append(fills, fmt.Sprintf("-- Fill NULL values in %s with average\nUPDATE %s\nSET %s = %.2f\nWHERE %s IS NULL;",
			c.Name, tbl, id, c.Stats.Mean, id))
	}

	return Suggestion{
		Issue:       "Missing Values",
		Description: fmt.Sprintf("Found %d missing values across %d columns", rep.Summary.TotalMissing, len(cols)),
		Queries: nonEmpty(
			Query{
				Title:       "Identify rows with missing values",
				Text:        fmt.Sprintf("-- Find rows with any NULL values\nSELECT *\nFROM %s\nWHERE %s;", tbl, where),
				Explanation: "Lists all rows that have at least one missing value",
			},
			Query{
				Title:       "Remove rows with missing values",
				Text:        fmt.Sprintf("-- Delete rows with NULL values (use with caution)\nDELETE FROM %s\nWHERE %s;", tbl, where),
				Explanation: "Removes rows with any NULL values. Back up your data first!",
			},
			Query{
				Title:       "Fill missing numeric values with average",
				Text:        strings.Join(fills, "\n\n"),
				Explanation: "Replaces NULL numeric values with column average (mean imputation)",
			},
		),
	}, true
}

func duplicateRows(rep *analysis.Report, tbl string) (Suggestion, bool) {
	if rep.Summary.DuplicateRows == 0 {
		return Suggestion{}, false
	}
	ids := make([]string, len(rep.Columns))
	for i, c := range rep.Columns {
		ids[i] = Ident(c.Name)
	}
	list := strings.Join(ids, ", ")
	return Suggestion{
		Issue:       "Duplicate Rows",
		Description: fmt.Sprintf("Found %d duplicate rows", rep.Summary.DuplicateRows),
		Queries: []Query{
			{
				Title:       "Find duplicate rows",
				Text:        fmt.Sprintf("-- Identify duplicate rows\nSELECT %s, COUNT(*) as duplicate_count\nFROM %s\nGROUP BY %s\nHAVING COUNT(*) > 1;", list, tbl, list),
				Explanation: "Shows all rows that appear more than once with their count",
			},
			{
				Title:       "Remove duplicates (keep first occurrence)",
				Text:        fmt.Sprintf("-- Remove duplicate rows, keeping only the first occurrence\nDELETE FROM %s\nWHERE rowid NOT IN (\n  SELECT MIN(rowid)\n  FROM %s\n  GROUP BY %s\n);", tbl, tbl, list),
				Explanation: "Deletes duplicate rows, keeping only the first occurrence of each unique row",
			},
		},
	}, true
}

func outliers(rep *analysis.Report, tbl string) (Suggestion, bool) {
	var qs []Query
	for _, a := range rep.Anomalies {
		if a.Type != analysis.AnomalyOutliers || a.Bounds == nil {
			continue
		}
		id := Ident(a.Column)
		qs = append(qs, Query{
			Title:       fmt.Sprintf("Find outliers in %s", a.Column),
			Text:        fmt.Sprintf("-- Find outlier values in %s\nSELECT *\nFROM %s\nWHERE %s < %s\n   OR %s > %s;", a.Column, tbl, id, a.Bounds.Lower, id, a.Bounds.Upper),
			Explanation: fmt.Sprintf("Shows rows where %s is outside normal range (%s to %s)", a.Column, a.Bounds.Lower, a.Bounds.Upper),
		})
	}
	if len(qs) == 0 {
		return Suggestion{}, false
	}
	return Suggestion{
		Issue:       "Outliers Detected",
		Description: fmt.Sprintf("Found outliers in %d numeric columns", len(qs)),
		Queries:     qs,
	}, true
}

func sparseColumns(rep *analysis.Report, tbl string) (Suggestion, bool) {
	var drops []string
	for _, is := range rep.SchemaIssues {
		if is.Type != analysis.IssueExcessiveMissing {
			continue
		}
		drops = append(drops, fmt.Sprintf("-- Drop %s (%s)\nALTER TABLE %s\nDROP COLUMN %s;", is.Column, is.Description, tbl, Ident(is.Column)))
	}
	if len(drops) == 0 {
		return Suggestion{}, false
	}
	return Suggestion{
		Issue:       "Columns with Excessive Missing Values",
		Description: fmt.Sprintf("%d columns have >50%% missing data", len(drops)),
		Queries: []Query{{
			Title:       "Drop columns with too many missing values",
			Text:        strings.Join(drops, "\n\n"),
			Explanation: "Removes columns that are mostly empty and unlikely to be useful",
		}},
	}, true
}

func mixedTypes(rep *analysis.Report, tbl string) (Suggestion, bool) {
	var qs []Query
	for _, is := range rep.SchemaIssues {
		if is.Type != analysis.IssueMixedTypes {
			continue
		}
		id := Ident(is.Column)
		qs = append(qs, Query{
			Title:       fmt.Sprintf("Clean %s data types", is.Column),
			Text:        fmt.Sprintf("-- Find non-numeric values in %s\nSELECT %s, COUNT(*) as count\nFROM %s\nWHERE %s IS NOT NULL\n  AND CAST(%s AS TEXT) NOT LIKE '%%[0-9]%%'\nGROUP BY %s;", is.Column, id, tbl, id, id, id),
			Explanation: fmt.Sprintf("Identifies values in %s that don't match expected numeric format", is.Column),
		})
	}
	if len(qs) == 0 {
		return Suggestion{}, false
	}
	return Suggestion{
		Issue:       "Mixed Data Types",
		Description: fmt.Sprintf("%d columns contain inconsistent data types", len(qs)),
		Queries:     qs,
	}, true
}

func optimization(rep *analysis.Report, tbl string) Suggestion {
	var idx []string
	for _, c := range rep.Columns {
		if len(idx) == maxIndexes {
			break
		}
		if c.UniqueCount > 10 {
			idx = append(idx, fmt.Sprintf("CREATE INDEX %s ON %s(%s);", Ident("idx_"+slug(c.Name)), tbl, Ident(c.Name)))
		}
	}
	return Suggestion{
		Issue:       "General Optimization",
		Description: "Improve query performance and data integrity",
		Queries: nonEmpty(
			Query{
				Title:       "Add indexes for better performance",
				Text:        strings.Join(idx, "\n"),
				Explanation: "Creates indexes on columns with good cardinality for faster queries",
			},
			Query{
				Title:       "Analyze table statistics",
				Text:        fmt.Sprintf("-- Update table statistics for query optimizer\nANALYZE %s;", tbl),
				Explanation: "Updates database statistics to help the query planner make better decisions",
			},
		),
	}
}

func nonEmpty(qs ...Query) []Query {
	out := qs[:0]
	for _, q := range qs {
		if strings.TrimSpace(q.Text) != "" {
			out = append(out, q)
		}
	}
	return out
}

var simpleIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Ident returns name as-is when it is a plain identifier, otherwise double
// quoted with embedded quotes doubled.
func Ident(name string) string {
	if simpleIdent.MatchString(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

var qualifiedIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

var nonWord = regexp.MustCompile(`[^A-Za-z0-9_]+`)

func slug(name string) string {
	s := strings.Trim(nonWord.ReplaceAllString(name, "_"), "_")
	if s == "" {
		return "col"
	}
	return strings.ToLower(s)
}

// Markdown renders suggestions with each query in a fenced sql block.
func Markdown(suggestions []Suggestion) string {
	var b strings.Builder
	for i, s := range suggestions {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("## %s\n\n%s\n", s.Issue, s.Description))
		for _, q := range s.Queries {
			b.WriteString(fmt.Sprintf("\n### %s\n\n%s\n\n```sql\n%s\n```\n", q.Title, q.Explanation, q.Text))
		}
	}
	return b.String()
}
