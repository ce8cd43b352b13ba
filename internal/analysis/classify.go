package analysis

import (
	"sort"
	"strings"
	"time"
)

// ColumnType is the inferred type of a column.
type ColumnType string

const (
	TypeNumber  ColumnType = "number"
	TypeDate    ColumnType = "date"
	TypeBoolean ColumnType = "boolean"
	TypeString  ColumnType = "string"
	TypeUnknown ColumnType = "unknown"
)

// Calendar layouts tried for date-likeness. A bare year parses, so year-like
// numbers are both number-like and date-like; number wins in ClassifyValues.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z0700",
	"2006/01/02",
	"2006/1/2",
	"2006/01/02 15:04:05",
	"1/2/2006",
	"2/1/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"01-02-2006",
	"02.01.2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	time.RFC1123,
	time.RFC1123Z,
	"2006-01",
	"2006",
}

// IsNumberLike reports whether v is a number or text that coerces to one
// (see Value.Float). Booleans are not number-like.
func IsNumberLike(v Value) bool {
	_, ok := v.Float()
	return ok
}

// IsDateLike reports whether the value's text form parses as a calendar date.
func IsDateLike(v Value) bool {
	switch v.Kind() {
	case KindString, KindNumber:
	default:
		return false
	}
	s := strings.TrimSpace(v.String())
	if s == "" {
		return false
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// IsBooleanLike reports whether v is a bool or a true/false/yes/no token.
func IsBooleanLike(v Value) bool {
	switch v.Kind() {
	case KindBool:
		return true
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.String())) {
		case "true", "false", "yes", "no":
			return true
		}
	}
	return false
}

// ClassifyValues infers a column type from its present values. Only the first
// SampleSize values are inspected. A value may count toward several types;
// the first of number, date, boolean reaching the confidence share wins.
func ClassifyValues(values []Value, p Policy) ColumnType {
	p = p.withDefaults()
	sample := make([]Value, 0, p.SampleSize)
	for _, v := range values {
		if len(sample) == p.SampleSize {
			break
		}
		if v.IsMissing() {
			continue
		}
		sample = append(sample, v)
	}
	if len(sample) == 0 {
		return TypeUnknown
	}

	var nums, dates, bools int
	for _, v := range sample {
		if IsNumberLike(v) {
			nums++
		}
		if IsDateLike(v) {
			dates++
		}
		if IsBooleanLike(v) {
			bools++
		}
	}
	need := p.TypeConfidence * float64(len(sample))
	switch {
	case float64(nums) >= need:
		return TypeNumber
	case float64(dates) >= need:
		return TypeDate
	case float64(bools) >= need:
		return TypeBoolean
	}
	return TypeString
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
