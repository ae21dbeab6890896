package storage

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"listings-aggregator/models"
	"listings-aggregator/utils"
)

// NewSnapshotStore picks the snapshot format from the file extension:
// .csv is written as CSV, anything else as an Excel workbook.
func NewSnapshotStore(path string, logger *utils.Logger) SnapshotStore {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return NewCSVSnapshot(path)
	}
	return NewXLSXSnapshot(path, logger)
}

var uploadDateLayouts = []string{
	models.UploadDateLayout,
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// parseUploadDate accepts the layouts snapshots have been written with,
// plus raw Excel serial dates.
func parseUploadDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range uploadDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			y, m, d := t.Date()
			h, mi, sec := t.Clock()
			return time.Date(y, m, d, h, mi, sec, 0, time.Local), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised upload_date %q", s)
}

// decoder maps snapshot rows onto records using the header row. Unknown
// columns are ignored and missing canonical columns stay null.
type decoder struct {
	index map[string]int
}

func newDecoder(header []string) (*decoder, error) {
	d := &decoder{index: make(map[string]int, len(header))}
	for i, name := range header {
		d.index[strings.TrimSpace(name)] = i
	}
	if _, ok := d.index[models.ColUploadDate]; !ok {
		return nil, fmt.Errorf("snapshot: header has no %s column", models.ColUploadDate)
	}
	return d, nil
}

func (d *decoder) cell(row []string, column string) (string, bool) {
	i, ok := d.index[column]
	if !ok || i >= len(row) || row[i] == "" {
		return "", false
	}
	return row[i], true
}

func (d *decoder) decode(line int, row []string) (models.Record, error) {
	var rec models.Record
	for _, col := range models.CanonicalColumns {
		if v, ok := d.cell(row, col); ok {
			rec.Set(col, models.Str(v))
		}
	}

	raw, ok := d.cell(row, models.ColUploadDate)
	if !ok {
		return rec, fmt.Errorf("snapshot: row %d: empty %s", line, models.ColUploadDate)
	}
	uploaded, err := parseUploadDate(raw)
	if err != nil {
		return rec, fmt.Errorf("snapshot: row %d: %w", line, err)
	}
	rec.UploadDate = uploaded
	return rec, nil
}

// encode returns a record as snapshot cells. Null cells are nil.
func encode(rec models.Record) []any {
	values := rec.Values()
	cells := make([]any, 0, len(values)+1)
	for _, v := range values {
		cells = append(cells, nullable(v))
	}
	return append(cells, rec.UploadDate.Format(models.UploadDateLayout))
}

func nullable(v sql.NullString) any {
	if !v.Valid {
		return nil
	}
	return v.String
}

// writeAtomic writes to a temp file next to path and renames it into place,
// so readers never observe a half-written snapshot.
func writeAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("snapshot: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("snapshot: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("snapshot: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("snapshot: replace %s: %w", path, err)
	}
	return nil
}
