package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"listings-aggregator/models"
	"listings-aggregator/utils"
)

func sampleRecords() []models.Record {
	return []models.Record{
		{
			Identifier:  models.Str("001"),
			Platform:    models.Str("X"),
			Name:        models.Str("Flat, 2 rooms"),
			Price:       models.Str("1200"),
			Description: models.Str("line one\nline two"),
			UploadDate:  time.Date(2024, 2, 3, 0, 0, 0, 0, time.Local),
		},
		{
			Identifier: models.Str("2"),
			Platform:   models.Str("Y"),
			UploadDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local),
		},
	}
}

func stores(t *testing.T) map[string]SnapshotStore {
	dir := t.TempDir()
	return map[string]SnapshotStore{
		"xlsx": NewSnapshotStore(filepath.Join(dir, "result.xlsx"), nil),
		"csv":  NewSnapshotStore(filepath.Join(dir, "result.csv"), nil),
	}
}

func TestNewSnapshotStoreByExtension(t *testing.T) {
	assert.IsType(t, &CSVSnapshot{}, NewSnapshotStore("out/Result.CSV", nil))
	assert.IsType(t, &XLSXSnapshot{}, NewSnapshotStore("result.xlsx", nil))
}

func TestSnapshotMissingFile(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			records, ok, err := s.Load(context.Background())
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, records)
		})
	}
}

func TestSnapshotSaveThenLoad(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Save(ctx, sampleRecords()))

			got, ok, err := s.Load(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, sampleRecords(), got)
		})
	}
}

func TestSnapshotSaveOverwrites(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Save(ctx, sampleRecords()))
			require.NoError(t, s.Save(ctx, sampleRecords()[:1]))

			got, _, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Len(t, got, 1)

			entries, err := os.ReadDir(filepath.Dir(s.Path()))
			require.NoError(t, err)
			for _, e := range entries {
				assert.NotContains(t, e.Name(), ".tmp", "temp file left behind")
			}
		})
	}
}

func TestXLSXLoadToleratesReorderedAndExtraColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"upload_date", "comment", "platform", "identifier"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"2024-05-06", "ignored", "X", "7"}))
	require.NoError(t, f.SaveAs(path))

	got, ok, err := NewXLSXSnapshot(path, nil).Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, models.Key{Platform: "X", Identifier: "7"}, got[0].Key())
	assert.Equal(t, time.Date(2024, 5, 6, 0, 0, 0, 0, time.Local), got[0].UploadDate)
	assert.False(t, got[0].Name.Valid)
}

func TestXLSXLoadAcceptsDateFormattedCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edited.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"platform", "identifier", "upload_date"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"X", "7"}))
	require.NoError(t, f.SetCellValue("Sheet1", "C2", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, f.SaveAs(path))

	got, ok, err := NewXLSXSnapshot(path, nil).Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local), got[0].UploadDate)
}

func TestSnapshotLoadRejectsBadUploadDate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("platform,identifier,upload_date\nX,1,yesterday\n"), 0o644))

	_, _, err := NewCSVSnapshot(path).Load(context.Background())
	assert.ErrorContains(t, err, "unrecognised upload_date")
}

func TestSnapshotLoadRequiresUploadDateColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodate.csv")
	require.NoError(t, os.WriteFile(path, []byte("platform,identifier\nX,1\n"), 0o644))

	_, _, err := NewCSVSnapshot(path).Load(context.Background())
	assert.ErrorContains(t, err, "no upload_date column")
}

func TestParseUploadDate(t *testing.T) {
	want := time.Date(2024, 1, 31, 0, 0, 0, 0, time.Local)
	for _, in := range []string{"31.01.2024", "2024-01-31", " 2024-01-31 00:00:00 ", "45322"} {
		got, err := parseUploadDate(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "parseUploadDate(%q) = %v", in, got)
	}

	_, err := parseUploadDate("not a date")
	assert.Error(t, err)
}

func TestWriteAtomicKeepsOldFileOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.csv")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	err := writeAtomic(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("disk full")
	})
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
}

func TestXLSXSaveTruncatesOversizedCells(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	path := filepath.Join(t.TempDir(), "result.xlsx")
	store := NewXLSXSnapshot(path, utils.NewLoggerFromZap(zap.New(core)))

	long := strings.Repeat("ж", excelize.TotalCellChars+10)
	require.NoError(t, store.Save(context.Background(), []models.Record{{
		Platform:    models.Str("X"),
		Identifier:  models.Str("1"),
		Description: models.Str(long),
		UploadDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local),
	}}))

	got, _, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, excelize.TotalCellChars, utf8.RuneCountInString(got[0].Description.String))

	warnings := logs.FilterMessageSnippet("Truncated description of X/1").All()
	assert.Len(t, warnings, 1)
}
