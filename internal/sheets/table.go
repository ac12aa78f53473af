package sheets

import "strings"

// headerRows is the number of rows above the data; data row i lives on
// spreadsheet row i+headerRows+1.
const headerRows = 1

// Table is an in-memory snapshot of a remote table. The first remote row is
// the header; every data row is padded to the header width.
type Table struct {
	Header []string
	Rows   [][]string
}

func NewTable(header ...string) *Table {
	return &Table{Header: append([]string(nil), header...)}
}

func tableFromValues(values [][]string) *Table {
	t := &Table{}
	if len(values) == 0 {
		return t
	}

	t.Header = make([]string, len(values[0]))
	for i, h := range values[0] {
		t.Header[i] = strings.TrimSpace(h)
	}

	for _, row := range values[1:] {
		t.Rows = append(t.Rows, t.pad(row))
	}

	return t
}

// Values renders the table as it is written remotely, header first.
func (t *Table) Values() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, append([]string(nil), t.Header...))
	for _, row := range t.Rows {
		out = append(out, t.pad(row))
	}
	return out
}

func (t *Table) Len() int { return len(t.Rows) }

func (t *Table) Empty() bool { return len(t.Header) == 0 }

func (t *Table) Index(column string) int {
	for i, h := range t.Header {
		if h == column {
			return i
		}
	}
	return -1
}

// Get returns the cell at the given data row and column, or "" when either
// is missing.
func (t *Table) Get(row int, column string) string {
	idx := t.Index(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) || idx >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][idx]
}

// Set writes a cell, ignoring unknown columns.
func (t *Table) Set(row int, column, value string) {
	idx := t.Index(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return
	}
	t.Rows[row] = t.pad(t.Rows[row])
	t.Rows[row][idx] = value
}

func (t *Table) Record(row int) map[string]string {
	rec := make(map[string]string, len(t.Header))
	for _, h := range t.Header {
		rec[h] = t.Get(row, h)
	}
	return rec
}

// RowFrom lays out a record in header order.
func (t *Table) RowFrom(rec map[string]string) []string {
	row := make([]string, len(t.Header))
	for i, h := range t.Header {
		row[i] = rec[h]
	}
	return row
}

func (t *Table) AppendRecord(rec map[string]string) {
	t.Rows = append(t.Rows, t.RowFrom(rec))
}

// Find returns the data row indexes whose column matches key, ignoring case
// and surrounding spaces.
func (t *Table) Find(column, key string) []int {
	key = strings.TrimSpace(key)
	var rows []int
	for i := range t.Rows {
		if strings.EqualFold(strings.TrimSpace(t.Get(i, column)), key) {
			rows = append(rows, i)
		}
	}
	return rows
}

// EnsureColumns appends any missing columns to the header and reports
// whether the header changed.
func (t *Table) EnsureColumns(columns ...string) bool {
	changed := false
	for _, c := range columns {
		if t.Index(c) < 0 {
			t.Header = append(t.Header, c)
			changed = true
		}
	}
	if changed {
		for i := range t.Rows {
			t.Rows[i] = t.pad(t.Rows[i])
		}
	}
	return changed
}

func (t *Table) Clone() *Table {
	c := &Table{Header: append([]string(nil), t.Header...)}
	for _, row := range t.Rows {
		c.Rows = append(c.Rows, append([]string(nil), row...))
	}
	return c
}

func (t *Table) pad(row []string) []string {
	if len(row) >= len(t.Header) {
		return append([]string(nil), row...)
	}
	out := make([]string, len(t.Header))
	copy(out, row)
	return out
}

// SheetRow converts a data row index to the 1-based spreadsheet row number.
func SheetRow(dataRow int) int { return dataRow + headerRows + 1 }
