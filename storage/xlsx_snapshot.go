package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"listings-aggregator/models"
	"listings-aggregator/utils"
)

const snapshotSheet = "Sheet1"

// XLSXSnapshot keeps the reconciled dataset in an Excel workbook, one row per
// record under a header row.
type XLSXSnapshot struct {
	path   string
	logger *utils.Logger
}

// NewXLSXSnapshot returns a snapshot store backed by the workbook at path.
// A nil logger discards warnings.
func NewXLSXSnapshot(path string, logger *utils.Logger) *XLSXSnapshot {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &XLSXSnapshot{path: path, logger: logger}
}

func (s *XLSXSnapshot) Path() string { return s.path }

// Load reads the first sheet of the workbook. A missing file is not an error.
func (s *XLSXSnapshot) Load(_ context.Context) ([]models.Record, bool, error) {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, false, fmt.Errorf("xlsx: open %s: %w", s.path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, true, nil
	}
	// Raw values keep date cells as serial numbers instead of their
	// display format.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, false, fmt.Errorf("xlsx: read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, true, nil
	}

	dec, err := newDecoder(rows[0])
	if err != nil {
		return nil, false, err
	}

	records := make([]models.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		rec, err := dec.decode(i+2, row)
		if err != nil {
			return nil, false, err
		}
		records = append(records, rec)
	}
	return records, true, nil
}

// Save overwrites the workbook with records.
func (s *XLSXSnapshot) Save(_ context.Context, records []models.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(snapshotSheet)
	if err != nil {
		return fmt.Errorf("xlsx: stream writer: %w", err)
	}

	header := make([]any, len(models.SnapshotColumns))
	for i, c := range models.SnapshotColumns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("xlsx: write header: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("xlsx: cell name: %w", err)
		}
		cells, clipped := truncateCells(encode(rec))
		if len(clipped) > 0 {
			key := rec.Key()
			s.logger.Warn("Truncated %s of %s/%s to %d characters in %s",
				strings.Join(clipped, ", "), key.Platform, key.Identifier, excelize.TotalCellChars, s.path)
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return fmt.Errorf("xlsx: write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("xlsx: flush: %w", err)
	}

	return writeAtomic(s.path, func(w io.Writer) error {
		if err := f.Write(w); err != nil {
			return fmt.Errorf("xlsx: write %s: %w", s.path, err)
		}
		return nil
	})
}

// truncateCells clips text to Excel's per-cell limit and names the clipped
// columns. cells must be in models.SnapshotColumns order.
func truncateCells(cells []any) ([]any, []string) {
	var clipped []string
	for i, c := range cells {
		if s, ok := c.(string); ok && utf8.RuneCountInString(s) > excelize.TotalCellChars {
			cells[i] = string([]rune(s)[:excelize.TotalCellChars])
			clipped = append(clipped, models.SnapshotColumns[i])
		}
	}
	return cells, clipped
}

func isBlank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
