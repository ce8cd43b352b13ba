package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/KaramelBytes/dataqual-cli/internal/analysis"
)

var bom = []byte{0xef, 0xbb, 0xbf}

type csvReader struct {
	comma rune
	exts  []string
}

func (c csvReader) CanRead(filename string) bool { return hasExt(filename, c.exts...) }

func (c csvReader) Read(r io.Reader, opt Options) (*analysis.Dataset, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	if b, err := br.Peek(len(bom)); err == nil && bytes.Equal(b, bom) {
		_, _ = br.Discard(len(bom))
	}
	comma := opt.Delimiter
	if comma == 0 {
		comma = c.comma
	}
	if comma == 0 {
		comma = sniffDelimiter(br)
	}

	cr := csv.NewReader(br)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	// whitespace delimiters would be swallowed by leading-space trimming
	cr.TrimLeadingSpace = comma != '\t' && comma != ' '
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return analysis.NewDataset(nil, nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if emptyLine(rec) {
			continue
		}
		records = append(records, rec)
		if err := checkRows(len(records), opt); err != nil {
			return nil, err
		}
	}
	return FromRecords(header, records, opt), nil
}

// sniffDelimiter picks the most frequent candidate separator on the first
// line, ignoring quoted text. Comma wins ties and empty input.
func sniffDelimiter(br *bufio.Reader) rune {
	head, _ := br.Peek(br.Size())
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	counts := map[rune]int{}
	inQuote := false
	for _, ch := range string(head) {
		switch {
		case ch == '"':
			inQuote = !inQuote
		case inQuote:
		case ch == ',' || ch == ';' || ch == '\t' || ch == '|':
			counts[ch]++
		}
	}
	best := ','
	for _, cand := range []rune{';', '\t', '|'} {
		if counts[cand] > counts[best] {
			best = cand
		}
	}
	return best
}
