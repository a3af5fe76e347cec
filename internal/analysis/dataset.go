package analysis

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// QualityColumn is the canonical name of the integer score column.
const QualityColumn = "quality"

// Dataset is an ordered, column-major table of numeric observations.
// All columns have the same length. A Dataset is not mutated after construction;
// stages that change it return a new value.
type Dataset struct {
	names  []string
	values [][]float64
	rows   int
	// lines holds the 1-based source line of each row when the input had
	// physical lines; nil otherwise.
	lines []int
}

// ParseOptions controls delimited-text parsing.
type ParseOptions struct {
	// Delimiter between fields. If 0, it is sniffed from the header line among ';', '\t', ','.
	Delimiter rune
	// DecimalSeparator for numbers. If 0, '.' is assumed unless a value only contains ','.
	DecimalSeparator rune
}

// NewDataset builds a Dataset from column names and column-major values.
// The slices are copied.
func NewDataset(names []string, columns [][]float64) (*Dataset, error) {
	if len(names) != len(columns) {
		return nil, &ParseError{Err: fmt.Errorf("%d names for %d columns", len(names), len(columns))}
	}
	seen := make(map[string]struct{}, len(names))
	rows := -1
	ds := &Dataset{names: make([]string, len(names)), values: make([][]float64, len(columns))}
	for i, n := range names {
		if _, dup := seen[n]; dup {
			return nil, &ParseError{Column: n, Err: errors.New("duplicate column name")}
		}
		seen[n] = struct{}{}
		if rows >= 0 && len(columns[i]) != rows {
			return nil, &ParseError{Column: n, Err: fmt.Errorf("column has %d rows, want %d", len(columns[i]), rows)}
		}
		rows = len(columns[i])
		ds.names[i] = n
		ds.values[i] = make([]float64, len(columns[i]))
		copy(ds.values[i], columns[i])
	}
	if rows < 0 {
		rows = 0
	}
	ds.rows = rows
	return ds, nil
}

// Columns returns the column names in order.
func (d *Dataset) Columns() []string { return append([]string(nil), d.names...) }

// Rows returns the number of observations.
func (d *Dataset) Rows() int { return d.rows }

// Has reports whether the dataset has the named column.
func (d *Dataset) Has(name string) bool { return d.index(name) >= 0 }

// Column returns a copy of the named column.
func (d *Dataset) Column(name string) ([]float64, bool) {
	i := d.index(name)
	if i < 0 {
		return nil, false
	}
	return append([]float64(nil), d.values[i]...), true
}

func (d *Dataset) index(name string) int {
	for i, n := range d.names {
		if n == name {
			return i
		}
	}
	return -1
}

// col returns the internal slice; callers must not modify it.
// A present column with no rows is an empty, non-nil slice.
func (d *Dataset) col(name string) ([]float64, bool) {
	if i := d.index(name); i >= 0 {
		return d.values[i], true
	}
	return nil, false
}

// rowError builds a ParseError located at row i, by source line when known.
func (d *Dataset) rowError(stage string, i int, column, value string, err error) *ParseError {
	pe := &ParseError{Stage: stage, Column: column, Value: value, Err: err}
	if i < len(d.lines) {
		pe.Line = d.lines[i]
	} else {
		pe.Row = i + 1
	}
	return pe
}

// withNames returns a dataset sharing value storage under new names.
// Values are never written after construction, so sharing is safe.
func (d *Dataset) withNames(names []string) *Dataset {
	return &Dataset{names: names, values: d.values, rows: d.rows, lines: d.lines}
}

// ParseDelimited reads delimited text with a header row into a Dataset.
// Every data row must have the header's arity and every cell must be numeric.
func ParseDelimited(r io.Reader, opt ParseOptions) (*Dataset, error) {
	br := bufio.NewReader(r)
	delim := opt.Delimiter
	if delim == 0 {
		head, err := br.Peek(4096)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
			return nil, &ParseError{Line: 1, Err: err}
		}
		delim = SniffDelimiter(head)
	}
	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.TrimLeadingSpace = true
	// FieldsPerRecord 0 makes the header arity binding for every row.
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Line: 1, Err: errors.New("missing header row")}
		}
		return nil, csvParseError(err)
	}
	var records [][]string
	var lines []int
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, csvParseError(err)
		}
		line, _ := cr.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	if lines == nil {
		lines = []int{}
	}
	return fromRecords(header, records, opt, lines)
}

// FromRecords builds a Dataset from a header and string rows, as produced by
// spreadsheet readers. Rows carry no source lines, so errors name the 1-based
// data row instead.
func FromRecords(header []string, rows [][]string, opt ParseOptions) (*Dataset, error) {
	return fromRecords(header, rows, opt, nil)
}

func fromRecords(header []string, rows [][]string, opt ParseOptions, lines []int) (*Dataset, error) {
	if len(header) == 0 {
		return nil, &ParseError{Line: 1, Err: errors.New("empty header row")}
	}
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	cols := make([][]float64, len(names))
	for i := range cols {
		cols[i] = make([]float64, 0, len(rows))
	}
	at := &Dataset{lines: lines}
	for r, rec := range rows {
		if len(rec) != len(names) {
			return nil, at.rowError("", r, "", "", fmt.Errorf("row has %d fields, header has %d", len(rec), len(names)))
		}
		for j, raw := range rec {
			x, ok := parseNumeric(raw, opt.DecimalSeparator)
			if !ok {
				return nil, at.rowError("", r, names[j], raw, errors.New("not a number"))
			}
			cols[j] = append(cols[j], x)
		}
	}
	ds, err := NewDataset(names, cols)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) && pe.Line == 0 {
			pe.Line = 1
		}
		return nil, err
	}
	ds.lines = lines
	return ds, nil
}

func csvParseError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.Line, Err: pe.Err}
	}
	return &ParseError{Err: err}
}

// SniffDelimiter picks the most frequent of ';', '\t' and ',' on the first line.
// Ties prefer that order; with none present it returns ','.
func SniffDelimiter(head []byte) rune {
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	best, bestN := ',', 0
	for _, c := range []rune{';', '\t', ','} {
		if n := bytes.Count(head, []byte(string(c))); n > bestN {
			best, bestN = c, n
		}
	}
	return best
}

func parseNumeric(s string, dec rune) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.Trim(raw, `"`)
	if raw == "" {
		return 0, false
	}
	if dec == 0 && strings.Contains(raw, ",") && !strings.Contains(raw, ".") {
		dec = ','
	}
	if dec != 0 && dec != '.' {
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
