package analysis

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Kind tags the scalar held by a Value.
type Kind uint8

const (
	KindMissing Kind = iota
	KindNumber
	KindBool
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindString:
		return "string"
	}
	return "missing"
}

// Value is a single cell. The zero Value is missing.
type Value struct {
	kind Kind
	num  float64
	b    bool
	str  string
}

// MissingValue returns a missing cell.
func MissingValue() Value { return Value{} }

// NumberValue wraps a number.
func NumberValue(f float64) Value { return Value{kind: KindNumber, num: f} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// StringValue wraps text. The empty string is missing.
func StringValue(s string) Value {
	if s == "" {
		return Value{}
	}
	return Value{kind: KindString, str: s}
}

// ValueOf converts a decoded JSON-ish scalar into a Value.
// nil and "" become missing; unsupported types fall back to their JSON text.
func ValueOf(x any) Value {
	switch v := x.(type) {
	case nil:
		return Value{}
	case Value:
		return v
	case string:
		return StringValue(v)
	case bool:
		return BoolValue(v)
	case float64:
		return NumberValue(v)
	case float32:
		return NumberValue(float64(v))
	case int:
		return NumberValue(float64(v))
	case int8:
		return NumberValue(float64(v))
	case int16:
		return NumberValue(float64(v))
	case int32:
		return NumberValue(float64(v))
	case int64:
		return NumberValue(float64(v))
	case uint:
		return NumberValue(float64(v))
	case uint8:
		return NumberValue(float64(v))
	case uint16:
		return NumberValue(float64(v))
	case uint32:
		return NumberValue(float64(v))
	case uint64:
		return NumberValue(float64(v))
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return NumberValue(f)
		}
		return StringValue(v.String())
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return Value{}
		}
		return StringValue(string(b))
	}
}

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// String returns the identity form used for uniqueness, top values and
// duplicate keys. Number 1 and text "1" share the same form.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return formatNumber(v.num)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return v.str
	}
	return ""
}

// Float coerces the value to a number. Text is trimmed and must be a
// decimal, Infinity, or 0x/0o/0b literal. NaN never coerces; infinities do.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) {
			return 0, false
		}
		return v.num, true
	case KindString:
		return parseNumberText(v.str)
	}
	return 0, false
}

var (
	// decimalText is the numeric text grammar: optional sign, digits with an
	// optional fraction and exponent, or Infinity. No digit separators.
	decimalText = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)$`)
	// radixText is an unsigned hex, octal or binary integer.
	radixText = regexp.MustCompile(`^0([xX][0-9a-fA-F]+|[oO][0-7]+|[bB][01]+)$`)
)

// parseNumberText coerces trimmed text to a number. Decimal overflow reads
// as an infinity.
func parseNumberText(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	switch {
	case s == "":
		return 0, false
	case radixText.MatchString(s):
		base := 16.0
		switch s[1] {
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		f := 0.0
		for _, c := range strings.ToLower(s[2:]) {
			d := float64(strings.IndexRune("0123456789abcdef", c))
			f = f*base + d
		}
		return f, true
	case decimalText.MatchString(s):
		f, err := strconv.ParseFloat(s, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Finite is Float restricted to finite numbers.
func (v Value) Finite() (float64, bool) {
	f, ok := v.Float()
	if !ok || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Interface returns the plain Go form (nil, float64, bool or string).
func (v Value) Interface() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindString:
		return v.str
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindNumber && (math.IsNaN(v.num) || math.IsInf(v.num, 0)) {
		return json.Marshal(v.String())
	}
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var x any
	if err := json.Unmarshal(b, &x); err != nil {
		return err
	}
	*v = ValueOf(x)
	return nil
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	a := math.Abs(f)
	if a == 0 || (a >= 1e-6 && a < 1e21) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Row maps column name to cell. Absent keys read as missing.
type Row map[string]Value

// Dataset is an in-memory table. Columns come from the first row and fix
// the order used everywhere downstream.
type Dataset struct {
	Columns []string
	Rows    []Row
}

// NewDataset builds a dataset over the given column order. The column slice
// is copied; rows are shared and must not be mutated afterwards.
func NewDataset(columns []string, rows []Row) *Dataset {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Dataset{Columns: cols, Rows: rows}
}

// FromMaps builds a dataset from decoded rows. Column order is taken from
// columns when given; otherwise from the first row's keys, sorted, since Go
// maps carry no order.
func FromMaps(columns []string, rows []map[string]any) *Dataset {
	if len(columns) == 0 && len(rows) > 0 {
		columns = sortedKeys(rows[0])
	}
	out := make([]Row, len(rows))
	for i, m := range rows {
		r := make(Row, len(columns))
		for _, c := range columns {
			if x, ok := m[c]; ok {
				r[c] = ValueOf(x)
			}
		}
		out[i] = r
	}
	return NewDataset(columns, out)
}

// Len returns the row count.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Column returns the column's cells in row order.
func (d *Dataset) Column(name string) []Value {
	out := make([]Value, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = r[name]
	}
	return out
}

// Head returns up to n rows as plain maps, for prompts and previews.
func (d *Dataset) Head(n int) []map[string]any {
	if n > len(d.Rows) {
		n = len(d.Rows)
	}
	if n <= 0 {
		return nil
	}
	out := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		m := make(map[string]any, len(d.Columns))
		for _, c := range d.Columns {
			m[c] = d.Rows[i][c].Interface()
		}
		out[i] = m
	}
	return out
}
