package airbnb

import (
	"testing"

	"listings-aggregator/models"
)

func TestToTable(t *testing.T) {
	listings := []*listing{
		{
			Title:    "  Villa   A ",
			Price:    "$450 for 3 nights",
			Location: "Bangkok",
			Rating:   "4.9",
			URL:      "https://www.airbnb.com/rooms/111",
		},
		{Title: "N/A", URL: "https://www.airbnb.com/rooms/222"},
	}

	tbl := toTable(listings)
	if tbl.Len() != 2 {
		t.Fatalf("rows: got %d, want 2", tbl.Len())
	}

	records := models.RecordsFromTable(tbl)
	first := records[0]
	if got := first.Key(); got != (models.Key{Platform: "airbnb", Identifier: "111"}) {
		t.Errorf("key: got %+v", got)
	}
	if first.Name.String != "Villa A" {
		t.Errorf("name: got %q, want %q", first.Name.String, "Villa A")
	}
	if first.Price.String != "150.00" {
		t.Errorf("price: got %q, want %q", first.Price.String, "150.00")
	}
	if first.AdditionalInformation.String != "rating: 4.90" {
		t.Errorf("additional_information: got %q", first.AdditionalInformation.String)
	}

	second := records[1]
	if second.Name.Valid {
		t.Errorf("placeholder title should be null, got %q", second.Name.String)
	}
	if second.Price.Valid {
		t.Errorf("missing price should be null, got %q", second.Price.String)
	}
}

func TestFindChromeBinaryPrefersConfigured(t *testing.T) {
	t.Setenv("CHROME_BIN", "/from/env")
	if got := findChromeBinary("/from/config"); got != "/from/config" {
		t.Errorf("got %q, want /from/config", got)
	}
	if got := findChromeBinary(""); got != "/from/env" {
		t.Errorf("got %q, want /from/env", got)
	}
}
