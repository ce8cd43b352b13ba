package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/KaramelBytes/dataqual-cli/internal/analysis"
)

// floatLiteral matches what dynamic typing converts to a number.
var floatLiteral = regexp.MustCompile(`^\s*-?(\d+\.?|\.\d+|\d+\.\d+)([eE][-+]?\d+)?\s*$`)

// FromRecords builds a dataset from a header and its records. Short records
// read as missing on the right; extra fields are dropped.
func FromRecords(header []string, records [][]string, opt Options) *analysis.Dataset {
	cols := normalizeHeader(header)
	rows := make([]analysis.Row, 0, len(records))
	for _, rec := range records {
		row := make(analysis.Row, len(cols))
		for i, c := range cols {
			if i >= len(rec) {
				break
			}
			if v := TypedValue(rec[i], opt); !v.IsMissing() {
				row[c] = v
			}
		}
		rows = append(rows, row)
	}
	return analysis.NewDataset(cols, rows)
}

// TypedValue applies dynamic typing to a raw field: numeric literals become
// numbers, true/false become booleans, empty becomes missing.
func TypedValue(raw string, opt Options) analysis.Value {
	if raw == "" {
		return analysis.MissingValue()
	}
	if opt.KeepText {
		return analysis.StringValue(raw)
	}
	s := strings.TrimSpace(raw)
	if opt.DecimalSeparator != 0 || opt.ThousandsSeparator != 0 {
		if f, ok := parseLocaleNumber(s, opt); ok {
			return analysis.NumberValue(f)
		}
	} else if floatLiteral.MatchString(raw) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return analysis.NumberValue(f)
		}
	}
	switch strings.ToLower(s) {
	case "true":
		return analysis.BoolValue(true)
	case "false":
		return analysis.BoolValue(false)
	}
	return analysis.StringValue(raw)
}

// parseLocaleNumber reads numbers written with explicit separators, such as
// "1.000,5" with decimal ',' and thousands '.'.
func parseLocaleNumber(s string, opt Options) (float64, bool) {
	raw := strings.ReplaceAll(s, "\u00A0", "")
	raw = strings.TrimSpace(raw)
	dec := opt.DecimalSeparator
	if dec == 0 {
		dec = '.'
	}
	thou := opt.ThousandsSeparator
	if thou != 0 && thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		if strings.Contains(raw, ".") {
			return 0, false
		}
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	if !floatLiteral.MatchString(raw) {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// normalizeHeader trims names, fills blanks and suffixes duplicates.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n)
		}
		seen[name]++
		out[i] = name
	}
	return out
}

// emptyLine reports a record read from a line with no content at all. A
// line of bare separators is a row of missing cells and is kept.
func emptyLine(rec []string) bool {
	return len(rec) == 0 || (len(rec) == 1 && rec[0] == "")
}
