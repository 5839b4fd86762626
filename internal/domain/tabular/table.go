package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bryanwahyu/datalens/internal/domain/apperr"
)

// ErrEmpty is returned when a CSV has no header record.
var ErrEmpty = errors.New("empty csv")

// Row maps a column name to its cell. Cells beyond a short record are absent.
type Row map[string]Value

func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is a fully parsed CSV.
type Table struct {
	Header []string
	Rows   []Row
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

func readHeader(cr *csv.Reader) ([]string, error) {
	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}
	return header, nil
}

// Load parses the whole CSV, converting numeric cells.
func Load(r io.Reader) (*Table, error) {
	cr := newReader(r)
	header, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	t := &Table{Header: header}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record %d: %w", len(t.Rows)+1, err)
		}
		row := make(Row, len(header))
		for j, cell := range rec {
			if j >= len(header) {
				break
			}
			row[header[j]] = Parse(cell)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Header reads only the header record.
func Header(r io.Reader) ([]string, error) {
	return readHeader(newReader(r))
}

// Preview returns the header and the first n records as raw strings.
func Preview(r io.Reader, n int) ([]string, []map[string]string, error) {
	cr := newReader(r)
	header, err := readHeader(cr)
	if err != nil {
		return nil, nil, err
	}
	data := make([]map[string]string, 0, n)
	for len(data) < n {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read record %d: %w", len(data)+1, err)
		}
		m := make(map[string]string, len(rec))
		for j, cell := range rec {
			if j >= len(header) {
				break
			}
			m[header[j]] = cell
		}
		data = append(data, m)
	}
	return header, data, nil
}

func (t *Table) Has(column string) bool {
	for _, h := range t.Header {
		if h == column {
			return true
		}
	}
	return false
}

// Require fails with an invalid-input error for every unknown column.
func (t *Table) Require(columns ...string) error {
	for _, c := range columns {
		if !t.Has(c) {
			return apperr.Invalid("Column '%s' not found in the file.", c)
		}
	}
	return nil
}

// Column returns the numeric cells of one column, skipping text.
func (t *Table) Column(name string) ([]float64, error) {
	if err := t.Require(name); err != nil {
		return nil, err
	}
	return t.Numeric(name), nil
}

// Numeric is Column without the existence check.
func (t *Table) Numeric(name string) []float64 {
	out := make([]float64, 0, len(t.Rows))
	for _, row := range t.Rows {
		if v, ok := row[name]; ok && v.IsNum() {
			out = append(out, v.Float())
		}
	}
	return out
}

// Attributes returns the header without the excluded column, in order.
func (t *Table) Attributes(exclude string) []string {
	out := make([]string, 0, len(t.Header))
	for _, h := range t.Header {
		if h != exclude {
			out = append(out, h)
		}
	}
	return out
}

// Clone deep-copies rows so transformations never touch the original.
func (t *Table) Clone() *Table {
	out := &Table{Header: append([]string(nil), t.Header...), Rows: make([]Row, len(t.Rows))}
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// Head returns at most n rows.
func Head(rows []Row, n int) []Row {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}
