package ingest

import (
	"fmt"
	"io"

	"github.com/tidwall/gjson"

	"github.com/KaramelBytes/dataqual-cli/internal/analysis"
)

// jsonReader accepts an array of objects, or an object wrapping one under
// "data" or "rows". Column order follows the first object's keys.
type jsonReader struct{}

func (jsonReader) CanRead(filename string) bool { return hasExt(filename, ".json") }

func (jsonReader) Read(r io.Reader, opt Options) (*analysis.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	return ParseJSONRows(data, opt)
}

// ParseJSONRows decodes JSON rows without losing key order.
func ParseJSONRows(data []byte, opt Options) (*analysis.Dataset, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json")
	}
	root := gjson.ParseBytes(data)
	if root.IsObject() {
		for _, key := range []string{"data", "rows"} {
			if v := root.Get(key); v.IsArray() {
				root = v
				break
			}
		}
	}
	if !root.IsArray() {
		return nil, fmt.Errorf("expected an array of objects")
	}
	b := &rowBuilder{opt: opt}
	root.ForEach(func(_, item gjson.Result) bool {
		return b.add(item)
	})
	if b.err != nil {
		return nil, b.err
	}
	return analysis.NewDataset(b.columns, b.rows), nil
}

// jsonLinesReader reads one object per line.
type jsonLinesReader struct{}

func (jsonLinesReader) CanRead(filename string) bool {
	return hasExt(filename, ".jsonl", ".ndjson", ".ldjson")
}

func (jsonLinesReader) Read(r io.Reader, opt Options) (*analysis.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read json lines: %w", err)
	}
	b := &rowBuilder{opt: opt}
	gjson.ForEachLine(string(data), func(line gjson.Result) bool {
		return b.add(line)
	})
	if b.err != nil {
		return nil, b.err
	}
	return analysis.NewDataset(b.columns, b.rows), nil
}

type rowBuilder struct {
	opt     Options
	columns []string
	rows    []analysis.Row
	err     error
}

func (b *rowBuilder) add(item gjson.Result) bool {
	if !item.IsObject() {
		b.err = fmt.Errorf("row %d: expected an object", len(b.rows)+1)
		return false
	}
	first := len(b.rows) == 0
	row := analysis.Row{}
	item.ForEach(func(k, v gjson.Result) bool {
		if first {
			b.columns = append(b.columns, k.String())
		}
		if cell := jsonValue(v); !cell.IsMissing() {
			row[k.String()] = cell
		}
		return true
	})
	b.rows = append(b.rows, row)
	if err := checkRows(len(b.rows), b.opt); err != nil {
		b.err = err
		return false
	}
	return true
}

// jsonValue maps JSON scalars directly; nested values keep their raw text.
func jsonValue(v gjson.Result) analysis.Value {
	switch v.Type {
	case gjson.Null:
		return analysis.MissingValue()
	case gjson.True:
		return analysis.BoolValue(true)
	case gjson.False:
		return analysis.BoolValue(false)
	case gjson.Number:
		return analysis.NumberValue(v.Float())
	case gjson.String:
		return analysis.StringValue(v.Str)
	}
	return analysis.StringValue(v.Raw)
}
