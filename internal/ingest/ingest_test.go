package ingest_test

import (
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/dataqual-cli/internal/analysis"
	"github.com/KaramelBytes/dataqual-cli/internal/ingest"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestReadCSVDynamicTyping(t *testing.T) {
	content := "id,name,score,active,joined\n" +
		"1,Ada,9.5,true,2024-01-02\n" +
		"2,Bob,,FALSE,2024-02-03\n" +
		"\n" +
		"3,,7,yes\n"
	p := writeFile(t, "people.csv", []byte(content))
	ds, err := ingest.ReadFile(p, ingest.DefaultOptions())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(ds.Columns, []string{"id", "name", "score", "active", "joined"}) {
		t.Fatalf("unexpected columns %v", ds.Columns)
	}
	if ds.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", ds.Len())
	}
	if k := ds.Rows[0]["score"].Kind(); k != analysis.KindNumber {
		t.Fatalf("score should be a number, got %s", k)
	}
	if k := ds.Rows[1]["active"].Kind(); k != analysis.KindBool {
		t.Fatalf("FALSE should be a bool, got %s", k)
	}
	if k := ds.Rows[2]["active"].Kind(); k != analysis.KindString {
		t.Fatalf("yes stays text, got %s", k)
	}
	if !ds.Rows[1]["score"].IsMissing() || !ds.Rows[2]["name"].IsMissing() || !ds.Rows[2]["joined"].IsMissing() {
		t.Fatalf("expected empty and short fields to be missing")
	}
	if ds.Rows[0]["joined"].String() != "2024-01-02" {
		t.Fatalf("dates stay text, got %q", ds.Rows[0]["joined"].String())
	}
}

func TestReadCSVKeepsSeparatorOnlyRows(t *testing.T) {
	p := writeFile(t, "gaps.csv", []byte("a,b\n1,2\n,\n\n3,4\n"))
	ds, err := ingest.ReadFile(p, ingest.DefaultOptions())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if ds.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", ds.Len())
	}
	if !ds.Rows[1]["a"].IsMissing() || !ds.Rows[1]["b"].IsMissing() {
		t.Fatalf("expected an all-missing row, got %v", ds.Rows[1])
	}
	rep, err := analysis.Analyze(ds)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if rep.Summary.TotalRows != 3 || rep.Summary.TotalMissing != 2 {
		t.Fatalf("unexpected summary %+v", rep.Summary)
	}
}

func TestReadCSVSniffsSemicolonAndLocale(t *testing.T) {
	content := "\xef\xbb\xbfGroup;Amount;Note\n" +
		"A;1.000,5;\"x;y\"\n" +
		"B;0,25;plain\n"
	p := writeFile(t, "eu.csv", []byte(content))
	opt := ingest.DefaultOptions()
	opt.DecimalSeparator = ','
	opt.ThousandsSeparator = '.'
	ds, err := ingest.ReadFile(p, opt)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if ds.Columns[0] != "Group" {
		t.Fatalf("BOM not stripped: %q", ds.Columns[0])
	}
	f, ok := ds.Rows[0]["Amount"].Float()
	if !ok || f != 1000.5 {
		t.Fatalf("expected 1000.5, got %v", f)
	}
	if f, _ := ds.Rows[1]["Amount"].Float(); f != 0.25 {
		t.Fatalf("expected 0.25, got %v", f)
	}
	if ds.Rows[0]["Note"].String() != "x;y" {
		t.Fatalf("quoted delimiter split: %q", ds.Rows[0]["Note"].String())
	}
}

func TestReadTSVAndDuplicateHeaders(t *testing.T) {
	p := writeFile(t, "data.tsv", []byte("a\ta\t\n1\t2\t3\n"))
	ds, err := ingest.ReadFile(p, ingest.DefaultOptions())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(ds.Columns, []string{"a", "a_1", "column_3"}) {
		t.Fatalf("unexpected columns %v", ds.Columns)
	}
	if ds.Rows[0]["column_3"].String() != "3" {
		t.Fatalf("unexpected row %v", ds.Rows[0])
	}
}

func TestReadCSVMaxRows(t *testing.T) {
	p := writeFile(t, "big.csv", []byte("v\n1\n2\n3\n"))
	opt := ingest.DefaultOptions()
	opt.MaxRows = 2
	_, err := ingest.ReadFile(p, opt)
	if !errors.Is(err, ingest.ErrTooManyRows) {
		t.Fatalf("expected ErrTooManyRows, got %v", err)
	}
	opt.MaxRows = 3
	if _, err := ingest.ReadFile(p, opt); err != nil {
		t.Fatalf("3 rows should fit: %v", err)
	}
}

func TestReadEmptyCSVIsEmptyDataset(t *testing.T) {
	p := writeFile(t, "empty.csv", nil)
	ds, err := ingest.ReadFile(p, ingest.DefaultOptions())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if _, err := analysis.Analyze(ds); !errors.Is(err, analysis.ErrEmptyDataset) {
		t.Fatalf("expected empty dataset error, got %v", err)
	}
}

func TestReadJSONKeepsKeyOrder(t *testing.T) {
	data := `[{"zeta":1,"alpha":"x","mid":null},{"zeta":2.5,"alpha":true,"extra":1}]`
	ds, err := ingest.Read("rows.json", strings.NewReader(data), ingest.DefaultOptions())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(ds.Columns, []string{"zeta", "alpha", "mid"}) {
		t.Fatalf("unexpected columns %v", ds.Columns)
	}
	if !ds.Rows[0]["mid"].IsMissing() {
		t.Fatalf("null should be missing")
	}
	if ds.Rows[1]["alpha"].Kind() != analysis.KindBool {
		t.Fatalf("expected bool")
	}

	wrapped := `{"data":[{"a":1},{"a":1}]}`
	ds, err = ingest.Read("rows.json", strings.NewReader(wrapped), ingest.DefaultOptions())
	if err != nil || ds.Len() != 2 {
		t.Fatalf("wrapped rows: %v %v", ds, err)
	}

	if _, err := ingest.Read("rows.json", strings.NewReader(`[1,2]`), ingest.DefaultOptions()); err == nil {
		t.Fatalf("expected error for non-object rows")
	}
}

func TestReadJSONLines(t *testing.T) {
	data := "{\"a\":1,\"b\":\"x\"}\n{\"a\":2,\"b\":\"y\"}\n"
	ds, err := ingest.Read("rows.ndjson", strings.NewReader(data), ingest.DefaultOptions())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if ds.Len() != 2 || !reflect.DeepEqual(ds.Columns, []string{"a", "b"}) {
		t.Fatalf("unexpected dataset %+v", ds)
	}
}

func TestReadGzipCSV(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, _ = zw.Write([]byte("a,b\n1,2\n"))
	_ = zw.Close()
	p := writeFile(t, "data.csv.gz", buf.Bytes())
	ds, err := ingest.ReadFile(p, ingest.DefaultOptions())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if ds.Len() != 1 || ds.Rows[0]["b"].String() != "2" {
		t.Fatalf("unexpected dataset %+v", ds)
	}
}

func TestReadXLSXSheetSelection(t *testing.T) {
	f := excelize.NewFile()
	if _, err := f.NewSheet("Data"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	rows := [][]any{{"city", "pop"}, {"Oslo", 700000}, {"Bergen", 285000}}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Data", cell, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	p := writeFile(t, "cities.xlsx", buf.Bytes())

	opt := ingest.DefaultOptions()
	opt.SheetName = "Data"
	byName, err := ingest.ReadFile(p, opt)
	if err != nil {
		t.Fatalf("read by name: %v", err)
	}
	if byName.Len() != 2 || !reflect.DeepEqual(byName.Columns, []string{"city", "pop"}) {
		t.Fatalf("unexpected dataset %+v", byName)
	}
	if byName.Rows[0]["pop"].Kind() != analysis.KindNumber {
		t.Fatalf("pop should be numeric")
	}

	opt = ingest.DefaultOptions()
	opt.SheetIndex = 2
	byIndex, err := ingest.ReadFile(p, opt)
	if err != nil {
		t.Fatalf("read by index: %v", err)
	}
	if !reflect.DeepEqual(byName, byIndex) {
		t.Fatalf("sheet by name and index differ")
	}

	opt.SheetIndex = 5
	if _, err := ingest.ReadFile(p, opt); err == nil {
		t.Fatalf("expected out of range error")
	}
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := ingest.Read("notes.docx", strings.NewReader("x"), ingest.DefaultOptions())
	if !errors.Is(err, ingest.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if !ingest.Supported("a.CSV") || !ingest.Supported("a.json.gz") || ingest.Supported("a.pdf") {
		t.Fatalf("unexpected Supported results")
	}
}

func TestSample(t *testing.T) {
	ds := ingest.FromRecords([]string{"a"}, [][]string{{"1"}, {"2"}, {"3"}}, ingest.DefaultOptions())
	s := ingest.Sample(ds, 2)
	if len(s) != 2 || s[1]["a"] != float64(2) {
		t.Fatalf("unexpected sample %v", s)
	}
	if len(ingest.Sample(ds, 10)) != 3 {
		t.Fatalf("sample should cap at row count")
	}
}
