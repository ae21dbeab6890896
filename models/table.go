package models

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// Table is the column-oriented result a collector hands to the pipeline.
// Rows are implicit by position; every column holds the same number of values.
type Table struct {
	columns []string
	data    map[string][]any
	rows    int
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{data: make(map[string][]any)}
}

// AddColumn appends a column. The first column fixes the row count; later
// columns must match it. Re-adding an existing name replaces its values.
func (t *Table) AddColumn(name string, values []any) error {
	if len(t.columns) > 0 && len(values) != t.rows {
		return fmt.Errorf("table: column %q has %d values, want %d", name, len(values), t.rows)
	}
	if _, ok := t.data[name]; !ok {
		t.columns = append(t.columns, name)
	}
	t.data[name] = values
	t.rows = len(values)
	return nil
}

// AppendRow adds one row. Columns missing from row get nil; columns new to
// the table are created and backfilled with nil for earlier rows.
func (t *Table) AppendRow(row map[string]any) {
	for name := range row {
		if _, ok := t.data[name]; !ok {
			t.columns = append(t.columns, name)
			t.data[name] = make([]any, t.rows)
		}
	}
	for _, name := range t.columns {
		t.data[name] = append(t.data[name], row[name])
	}
	t.rows++
}

// Project returns a new table with exactly columns, in that order. Columns
// absent from t are filled with nil; t is not modified.
func (t *Table) Project(columns []string) *Table {
	out := &Table{data: make(map[string][]any, len(columns)), rows: t.Len()}
	for _, name := range columns {
		values := make([]any, out.rows)
		if t != nil {
			copy(values, t.data[name])
		}
		if _, ok := out.data[name]; !ok {
			out.columns = append(out.columns, name)
		}
		out.data[name] = values
	}
	return out
}

// Columns returns the column names in insertion order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Column returns the values of a column.
func (t *Table) Column(name string) ([]any, bool) {
	v, ok := t.data[name]
	return v, ok
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.rows
}

// RecordsFromTable converts a table to records, reading only canonical
// columns. upload_date is left zero; the pipeline stamps it.
func RecordsFromTable(t *Table) []Record {
	records := make([]Record, t.Len())
	for _, col := range CanonicalColumns {
		values, ok := t.Column(col)
		if !ok {
			continue
		}
		for i, v := range values {
			records[i].Set(col, CellString(v))
		}
	}
	return records
}

// CellString coerces an arbitrary cell value into a nullable string.
func CellString(v any) sql.NullString {
	switch x := v.(type) {
	case nil:
		return sql.NullString{}
	case string:
		return Str(x)
	case *string:
		if x == nil {
			return sql.NullString{}
		}
		return Str(*x)
	case sql.NullString:
		return x
	case []byte:
		return Str(string(x))
	case int:
		return Str(strconv.Itoa(x))
	case int64:
		return Str(strconv.FormatInt(x, 10))
	case float64:
		return Str(strconv.FormatFloat(x, 'f', -1, 64))
	case bool:
		return Str(strconv.FormatBool(x))
	case time.Time:
		return Str(x.Format(UploadDateLayout))
	case fmt.Stringer:
		return Str(x.String())
	default:
		return Str(fmt.Sprint(x))
	}
}
