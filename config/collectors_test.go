package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCollectors = `
parsers:
  - airbnb
  - board
html_sources:
  - name: board
    platform: board.example
    url: https://board.example/listings
    item: .listing
    fields:
      identifier: "a@data-id"
      name: h2
`

func TestLoadCollectors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCollectors), 0o644))

	c, err := LoadCollectors(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"airbnb", "board"}, c.Parsers)
	require.Len(t, c.HTMLSources, 1)
	assert.Equal(t, "a@data-id", c.HTMLSources[0].Fields["identifier"])
}

func TestParseCollectorsValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"no parsers", "parsers: []", "at least one collector"},
		{"blank parser", "parsers: ['  ']", "empty name"},
		{
			"duplicate html source",
			`
parsers: [a]
html_sources:
  - {name: a, url: "https://a.example", item: li}
  - {name: a, url: "https://a.example", item: li}
`,
			"duplicate name",
		},
		{
			"bad url",
			`
parsers: [a]
html_sources:
  - {name: a, url: "ftp://a.example", item: li}
`,
			"url must start",
		},
		{
			"missing identifier selector",
			`
parsers: [a]
html_sources:
  - name: a
    url: "https://a.example"
    item: li
    fields: {name: h2}
`,
			"fields.identifier selector is required",
		},
		{"bad yaml", "parsers: [", "parse collectors"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCollectors([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDSN(t *testing.T) {
	c := &Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "n", DBSSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", c.DSN())
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("FLAG_ON", "yes")
	t.Setenv("FLAG_OFF", "0")
	t.Setenv("FLAG_BAD", "maybe")

	assert.True(t, getEnvBool("FLAG_ON", false))
	assert.False(t, getEnvBool("FLAG_OFF", true))
	assert.True(t, getEnvBool("FLAG_BAD", true))
	assert.False(t, getEnvBool("FLAG_UNSET", false))
}
