// Package ingest turns tabular files into analysis datasets.
package ingest

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/dataqual-cli/internal/analysis"
)

var (
	// ErrUnsupported indicates a format is not supported.
	ErrUnsupported = errors.New("unsupported data format")
	// ErrTooManyRows is returned when a source exceeds Options.MaxRows.
	ErrTooManyRows = errors.New("too many rows")
)

// Options controls parsing.
type Options struct {
	Delimiter          rune // 0 sniffs from the header line
	DecimalSeparator   rune // 0 disables locale number parsing
	ThousandsSeparator rune
	SheetName          string
	SheetIndex         int // 1-based, used when SheetName is empty
	MaxRows            int // 0 means unlimited
	KeepText           bool
}

// DefaultOptions returns options for plain comma-separated input.
func DefaultOptions() Options {
	return Options{SheetIndex: 1}
}

// Reader decodes one tabular format.
type Reader interface {
	CanRead(filename string) bool
	Read(r io.Reader, opt Options) (*analysis.Dataset, error)
}

var registry []Reader

// Register adds a reader implementation to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

func init() {
	Register(csvReader{comma: 0, exts: []string{".csv", ".txt"}})
	Register(csvReader{comma: '\t', exts: []string{".tsv", ".tab"}})
	Register(xlsxReader{})
	Register(jsonReader{})
	Register(jsonLinesReader{})
}

// Supported reports whether some reader accepts the file name.
func Supported(name string) bool {
	return lookup(trimCompression(name)) != nil
}

// ReadFile opens path and decodes it with the reader matching its extension.
// A trailing .gz is decompressed transparently.
func ReadFile(path string, opt Options) (*analysis.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(filepath.Base(path), f, opt)
}

// Read decodes r, choosing the reader by name.
func Read(name string, r io.Reader, opt Options) (*analysis.Dataset, error) {
	if strings.HasSuffix(strings.ToLower(name), ".gz") {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		r = zr
		name = trimCompression(name)
	}
	rd := lookup(name)
	if rd == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, filepath.Ext(name))
	}
	ds, err := rd.Read(r, opt)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// Sample returns the first n rows as plain maps.
func Sample(ds *analysis.Dataset, n int) []map[string]any {
	if ds == nil {
		return nil
	}
	return ds.Head(n)
}

func lookup(name string) Reader {
	for _, r := range registry {
		if r.CanRead(name) {
			return r
		}
	}
	return nil
}

func trimCompression(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".gz") {
		return name[:len(name)-3]
	}
	return name
}

func hasExt(name string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func checkRows(n int, opt Options) error {
	if opt.MaxRows > 0 && n > opt.MaxRows {
		return fmt.Errorf("%w: more than %d rows", ErrTooManyRows, opt.MaxRows)
	}
	return nil
}
