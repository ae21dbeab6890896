package models

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableAddColumnRejectsRaggedColumns(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.AddColumn("a", []any{1, 2}))

	err := tbl.AddColumn("b", []any{1})
	require.Error(t, err)
	assert.Equal(t, []string{"a"}, tbl.Columns())
	assert.Equal(t, 2, tbl.Len())
}

func TestTableAppendRowBackfillsNil(t *testing.T) {
	tbl := NewTable()
	tbl.AppendRow(map[string]any{"identifier": "1"})
	tbl.AppendRow(map[string]any{"identifier": "2", "price": 10})

	require.Equal(t, 2, tbl.Len())
	prices, ok := tbl.Column("price")
	require.True(t, ok)
	assert.Equal(t, []any{nil, 10}, prices)
}

func TestRecordsFromTable(t *testing.T) {
	tbl := NewTable()
	tbl.AppendRow(map[string]any{
		ColIdentifier: 42,
		ColPlatform:   "X",
		ColPrice:      12.5,
		"extra":       "ignored",
	})

	records := RecordsFromTable(tbl)
	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, Key{Platform: "X", Identifier: "42"}, r.Key())
	assert.Equal(t, Str("12.5"), r.Price)
	assert.Equal(t, sql.NullString{}, r.Name)
	assert.True(t, r.UploadDate.IsZero())
}

func TestCellString(t *testing.T) {
	s := "ptr"
	tests := []struct {
		in   any
		want sql.NullString
	}{
		{nil, sql.NullString{}},
		{"", Str("")},
		{&s, Str("ptr")},
		{(*string)(nil), sql.NullString{}},
		{int64(7), Str("7")},
		{true, Str("true")},
		{time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Str("02.01.2024")},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CellString(tt.in), "CellString(%#v)", tt.in)
	}
}

func TestDateOf(t *testing.T) {
	in := time.Date(2024, 3, 5, 17, 45, 12, 99, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), DateOf(in))
}

func TestTableProject(t *testing.T) {
	tbl := NewTable()
	tbl.AppendRow(map[string]any{"b": 1, "extra": "x"})
	tbl.AppendRow(map[string]any{"b": 2})

	got := tbl.Project([]string{"a", "b"})

	assert.Equal(t, []string{"a", "b"}, got.Columns())
	assert.Equal(t, 2, got.Len())
	a, _ := got.Column("a")
	assert.Equal(t, []any{nil, nil}, a)
	b, _ := got.Column("b")
	assert.Equal(t, []any{1, 2}, b)

	b[0] = 99
	orig, _ := tbl.Column("b")
	assert.Equal(t, 1, orig[0], "projection must not share storage")
}

func TestTableProjectNil(t *testing.T) {
	var tbl *Table
	got := tbl.Project([]string{"a"})
	assert.Equal(t, 0, got.Len())
	assert.Equal(t, []string{"a"}, got.Columns())
}
