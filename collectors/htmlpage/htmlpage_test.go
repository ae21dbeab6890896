package htmlpage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listings-aggregator/config"
	"listings-aggregator/models"
	"listings-aggregator/utils"
)

const board = `<html><body>
<ul>
  <li class="listing" data-id="17">
    <a href="/item/17">  Flat   near park </a>
    <span class="price">1 200 000</span>
  </li>
  <li class="listing" data-id="18">
    <a href="https://other.example/item/18">House</a>
  </li>
</ul>
</body></html>`

func newRetry() *utils.RetryConfig {
	return &utils.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, Logger: utils.NewNopLogger()}
}

func TestCollect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(board))
	}))
	defer srv.Close()

	c := New(config.HTMLSource{
		Name:     "board",
		Platform: "board.example",
		URL:      srv.URL + "/listings",
		Item:     "li.listing",
		Fields: map[string]string{
			models.ColIdentifier: "@data-id",
			models.ColName:       "a",
			models.ColLink:       "a@href",
			models.ColPrice:      ".price",
		},
	}, srv.Client(), newRetry(), utils.NewNopLogger())

	tbl, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())

	records := models.RecordsFromTable(tbl)
	assert.Equal(t, models.Key{Platform: "board.example", Identifier: "17"}, records[0].Key())
	assert.Equal(t, "Flat near park", records[0].Name.String)
	assert.Equal(t, srv.URL+"/item/17", records[0].Link.String)
	assert.Equal(t, "1 200 000", records[0].Price.String)

	assert.Equal(t, "https://other.example/item/18", records[1].Link.String)
	assert.False(t, records[1].Price.Valid, "missing selector should leave the cell null")
}

func TestCollectHTTPError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(config.HTMLSource{Name: "down", URL: srv.URL, Item: "li"},
		srv.Client(), newRetry(), utils.NewNopLogger())

	_, err := c.Collect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
	assert.Equal(t, 2, calls)
}

func TestPlatformDefaultsToName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(board))
	}))
	defer srv.Close()

	c := New(config.HTMLSource{
		Name:   "board",
		URL:    srv.URL,
		Item:   "li.listing",
		Fields: map[string]string{models.ColIdentifier: "@data-id"},
	}, srv.Client(), newRetry(), utils.NewNopLogger())

	tbl, err := c.Collect(context.Background())
	require.NoError(t, err)
	platforms, _ := tbl.Column(models.ColPlatform)
	assert.Equal(t, []any{"board", "board"}, platforms)
}

func TestCollectSkipsItemsWithoutIdentifier(t *testing.T) {
	page := `<ul>
  <li class="listing" data-id="1"><a href="/1">One</a></li>
  <li class="listing"><a href="/2">No id</a></li>
  <li class="listing" data-id="  "><a href="/3">Blank id</a></li>
</ul>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	c := New(config.HTMLSource{
		Name:   "board",
		URL:    srv.URL,
		Item:   "li.listing",
		Fields: map[string]string{models.ColIdentifier: "@data-id", models.ColName: "a"},
	}, srv.Client(), newRetry(), utils.NewNopLogger())

	tbl, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	ids, _ := tbl.Column(models.ColIdentifier)
	assert.Equal(t, []any{"1"}, ids)
}

func TestCollectWithoutIdentifierSelectorEmitsNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(board))
	}))
	defer srv.Close()

	c := New(config.HTMLSource{
		Name:   "board",
		URL:    srv.URL,
		Item:   "li.listing",
		Fields: map[string]string{models.ColName: "a"},
	}, srv.Client(), newRetry(), utils.NewNopLogger())

	tbl, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
}
