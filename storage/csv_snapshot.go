package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"listings-aggregator/models"
)

// CSVSnapshot keeps the reconciled dataset as a CSV file with a header row.
type CSVSnapshot struct {
	path string
}

// NewCSVSnapshot returns a snapshot store backed by the CSV file at path.
func NewCSVSnapshot(path string) *CSVSnapshot {
	return &CSVSnapshot{path: path}
}

func (s *CSVSnapshot) Path() string { return s.path }

// Load reads the file. A missing file is not an error.
func (s *CSVSnapshot) Load(_ context.Context) ([]models.Record, bool, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("csv: open %s: %w", s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("csv: read header: %w", err)
	}
	dec, err := newDecoder(header)
	if err != nil {
		return nil, false, err
	}

	var records []models.Record
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, false, fmt.Errorf("csv: read row %d: %w", line, err)
		}
		if isBlank(row) {
			continue
		}
		rec, err := dec.decode(line, row)
		if err != nil {
			return nil, false, err
		}
		records = append(records, rec)
	}
	return records, true, nil
}

// Save overwrites the file with records.
func (s *CSVSnapshot) Save(_ context.Context, records []models.Record) error {
	return writeAtomic(s.path, func(out io.Writer) error {
		w := csv.NewWriter(out)
		if err := w.Write(models.SnapshotColumns); err != nil {
			return fmt.Errorf("csv: write header: %w", err)
		}

		row := make([]string, len(models.SnapshotColumns))
		for _, rec := range records {
			for i, cell := range encode(rec) {
				s, _ := cell.(string)
				row[i] = s
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("csv: write row: %w", err)
			}
		}

		w.Flush()
		return w.Error()
	})
}
