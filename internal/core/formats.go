package core

// formats.go turns raw source bytes into a header row plus data rows.
//
// Parsers are registered by format key at init time. The format of a source
// is its explicit Format field when set, otherwise its file extension. A
// source without an extension is read as CSV.
//
// Delimited readers are wrapped so a leading UTF-8 byte-order mark (common in
// files saved by Excel on Windows) never reaches the header row. Cells that
// are not valid UTF-8 make the whole source malformed.

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// TableRow is one physical data row with its 1-based line number in the source.
type TableRow struct {
	Line  int
	Cells []string
}

// Table is the parsed form of one tabular source. Header is nil when the
// source contained no rows at all.
type Table struct {
	Header     []string
	HeaderLine int
	Rows       []TableRow
}

// ParseFunc reads an entire source into a Table.
type ParseFunc func(r io.Reader) (*Table, error)

// Format describes a registered tabular format.
type Format struct {
	Key        string   // "csv", "tsv", "xlsx"
	Extensions []string // Lowercase, with leading dot
	Parse      ParseFunc
}

// lineError ties a parse failure to a source line.
type lineError struct {
	Line int
	Err  error
}

func (e *lineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *lineError) Unwrap() error { return e.Err }

var errInvalidUTF8 = errors.New("encoding error: invalid UTF-8")

var (
	formats   = make(map[string]Format)
	formatsMu sync.RWMutex
)

func init() {
	RegisterFormat(Format{Key: "csv", Extensions: []string{".csv", ".txt"}, Parse: parseDelimited(',')})
	RegisterFormat(Format{Key: "tsv", Extensions: []string{".tsv", ".tab"}, Parse: parseDelimited('\t')})
	RegisterFormat(Format{Key: "xlsx", Extensions: []string{".xlsx", ".xlsm"}, Parse: parseWorkbook})
}

// RegisterFormat adds a tabular format to the registry.
// Panics if a format with the same key is already registered.
func RegisterFormat(f Format) {
	formatsMu.Lock()
	defer formatsMu.Unlock()

	if _, exists := formats[f.Key]; exists {
		panic(fmt.Sprintf("format already registered: %s", f.Key))
	}
	formats[f.Key] = f
}

// LookupFormat returns a registered format by key.
func LookupFormat(key string) (Format, bool) {
	formatsMu.RLock()
	defer formatsMu.RUnlock()

	f, ok := formats[strings.ToLower(key)]
	return f, ok
}

// FormatKeys returns the registered format keys, sorted.
func FormatKeys() []string {
	formatsMu.RLock()
	defer formatsMu.RUnlock()

	keys := make([]string, 0, len(formats))
	for k := range formats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FormatFor resolves the format of a source.
func FormatFor(src Source) (Format, error) {
	if src.Format != "" {
		if f, ok := LookupFormat(src.Format); ok {
			return f, nil
		}
		return Format{}, fmt.Errorf("unsupported file type %q", src.Format)
	}

	ext := strings.ToLower(filepath.Ext(src.Name))
	if ext == "" {
		f, _ := LookupFormat("csv")
		return f, nil
	}

	formatsMu.RLock()
	defer formatsMu.RUnlock()
	for _, f := range formats {
		for _, e := range f.Extensions {
			if e == ext {
				return f, nil
			}
		}
	}
	return Format{}, fmt.Errorf("unsupported file type %q", ext)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NewBOMSkippingReader returns a reader that drops a leading UTF-8 BOM.
func NewBOMSkippingReader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// parseDelimited returns a parser for comma- or tab-separated text.
// Rows may have any number of cells; blank lines are skipped by encoding/csv.
func parseDelimited(comma rune) ParseFunc {
	return func(r io.Reader) (*Table, error) {
		cr := csv.NewReader(NewBOMSkippingReader(r))
		cr.Comma = comma
		cr.FieldsPerRecord = -1
		cr.LazyQuotes = true

		t := &Table{}
		for {
			rec, err := cr.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, err
			}

			line, _ := cr.FieldPos(0)
			for _, cell := range rec {
				if !utf8.ValidString(cell) {
					return nil, &lineError{Line: line, Err: errInvalidUTF8}
				}
			}

			if t.Header == nil {
				t.Header = rec
				t.HeaderLine = line
				continue
			}
			t.Rows = append(t.Rows, TableRow{Line: line, Cells: rec})
		}
		return t, nil
	}
}

// parseWorkbook reads the first sheet of an Excel workbook. Leading empty
// rows are skipped so the first populated row is the header.
func parseWorkbook(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("workbook contains no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	t := &Table{}
	for i, row := range rows {
		line := i + 1
		if t.Header == nil {
			if isBlankRow(row) {
				continue
			}
			t.Header = row
			t.HeaderLine = line
			continue
		}
		t.Rows = append(t.Rows, TableRow{Line: line, Cells: row})
	}
	return t, nil
}

// readTable parses a source, converting every failure to a MalformedInputError.
func readTable(src Source) (*Table, string, error) {
	format, err := FormatFor(src)
	if err != nil {
		return nil, "", &MalformedInputError{Source: src.Name, Reason: err.Error()}
	}
	if src.Reader == nil {
		return nil, format.Key, &MalformedInputError{Source: src.Name, Reason: "empty file"}
	}

	t, err := format.Parse(src.Reader)
	if err != nil {
		return nil, format.Key, parseFailure(src.Name, err)
	}
	if t.Header == nil {
		return nil, format.Key, &MalformedInputError{Source: src.Name, Reason: "no header row"}
	}
	return t, format.Key, nil
}

func parseFailure(source string, err error) error {
	var le *lineError
	if errors.As(err, &le) {
		return &MalformedInputError{Source: source, Line: le.Line, Reason: le.Err.Error()}
	}
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &MalformedInputError{Source: source, Line: pe.StartLine, Reason: "invalid csv", Err: pe.Err}
	}
	return &MalformedInputError{Source: source, Reason: "unreadable file", Err: err}
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
