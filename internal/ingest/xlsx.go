package ingest

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/dataqual-cli/internal/analysis"
)

type xlsxReader struct{}

func (xlsxReader) CanRead(filename string) bool { return hasExt(filename, ".xlsx", ".xlsm") }

// Read loads one worksheet. The first row is the header.
func (xlsxReader) Read(r io.Reader, opt Options) (*analysis.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet, err := pickSheet(f.GetSheetList(), opt)
	if err != nil {
		return nil, err
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return analysis.NewDataset(nil, nil), nil
	}
	records := make([][]string, 0, len(rows)-1)
	for _, rec := range rows[1:] {
		if emptyLine(rec) {
			continue
		}
		records = append(records, rec)
		if err := checkRows(len(records), opt); err != nil {
			return nil, err
		}
	}
	return FromRecords(rows[0], records, opt), nil
}

func pickSheet(sheets []string, opt Options) (string, error) {
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	if opt.SheetName != "" {
		for _, s := range sheets {
			if s == opt.SheetName {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet %q not found (have %v)", opt.SheetName, sheets)
	}
	idx := opt.SheetIndex
	if idx <= 0 {
		idx = 1
	}
	if idx > len(sheets) {
		return "", fmt.Errorf("sheet index %d out of range (workbook has %d sheets)", idx, len(sheets))
	}
	return sheets[idx-1], nil
}
