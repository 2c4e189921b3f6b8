package terrain

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/errors"
)

// Table is an attribute or statistics table returned by the terrain tool.
// Column lookups ignore case: tools disagree on "VALUE" versus "Value".
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
	index   map[string]int
}

// NewTable builds a table. Name identifies the source in errors.
func NewTable(name string, columns []string, rows [][]string) *Table {
	t := &Table{Name: name, Columns: columns, Rows: rows, index: make(map[string]int, len(columns))}
	for i, c := range columns {
		key := strings.ToLower(strings.TrimSpace(c))
		if _, dup := t.index[key]; !dup {
			t.index[key] = i
		}
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Has reports whether the table has column col.
func (t *Table) Has(col string) bool {
	_, ok := t.index[strings.ToLower(col)]
	return ok
}

// Require returns a DataError for the first absent column.
func (t *Table) Require(cols ...string) error {
	for _, c := range cols {
		if !t.Has(c) {
			return &errors.DataError{Dataset: t.Name, Field: c, Message: "field not present"}
		}
	}
	return nil
}

// String returns the cell at row and col.
func (t *Table) String(row int, col string) (string, error) {
	i, ok := t.index[strings.ToLower(col)]
	if !ok {
		return "", &errors.DataError{Dataset: t.Name, Field: col, Message: "field not present"}
	}
	if row < 0 || row >= len(t.Rows) {
		return "", fmt.Errorf("table %s: row %d out of range", t.Name, row)
	}
	r := t.Rows[row]
	if i >= len(r) {
		return "", nil
	}
	return strings.TrimSpace(r[i]), nil
}

// Float parses the cell at row and col.
func (t *Table) Float(row int, col string) (float64, error) {
	s, err := t.String(row, col)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &errors.DataError{
			Dataset: t.Name,
			Field:   col,
			Message: fmt.Sprintf("row %d: not a number: %q", row+1, s),
		}
	}
	return f, nil
}

// Int parses the cell at row and col as an integer. Integral floats such
// as "3.0" are accepted since dBase exports often write ids that way.
func (t *Table) Int(row int, col string) (int, error) {
	s, err := t.String(row, col)
	if err != nil {
		return 0, err
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, &errors.DataError{
			Dataset: t.Name,
			Field:   col,
			Message: fmt.Sprintf("row %d: not an integer: %q", row+1, s),
		}
	}
	return int(f), nil
}

// ReadCSV reads a table whose first record is the header.
func ReadCSV(name string, r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return NewTable(name, nil, nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", name, err)
	}
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return NewTable(name, header, rows), nil
}

// ReadCSVFile reads a table from a CSV file.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &errors.IOError{Op: "open table", Path: path, Err: err}
	}
	defer f.Close()
	return ReadCSV(path, f)
}

// WriteCSV writes the header and rows.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}
