package airbnb

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// priceRegexp captures numeric price values
	priceRegexp = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)
	// nightsRegexp captures "X nights"; a singular "night" is already per night
	nightsRegexp = regexp.MustCompile(`(\d+)\s+nights\b`)
	// ratingRegexp captures a numeric rating in the 0.0 to 5.0 range
	ratingRegexp = regexp.MustCompile(`\b([0-5](?:\.\d{1,2})?)\b`)
	// roomRegexp captures the numeric room id from a listing URL
	roomRegexp = regexp.MustCompile(`/rooms/(\d+)`)
)

// perNightPrice extracts a price and converts multi-night totals to a
// per-night rate. It returns false when no number is present.
//
//	"$150 night"        → 150
//	"$450 for 3 nights" → 150
func perNightPrice(raw string) (float64, bool) {
	raw = strings.ToLower(raw)

	match := priceRegexp.FindString(strings.ReplaceAll(raw, ",", ""))
	if match == "" {
		return 0, false
	}
	total, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}

	if m := nightsRegexp.FindStringSubmatch(raw); len(m) >= 2 {
		if nights, err := strconv.Atoi(m[1]); err == nil && nights > 1 {
			return total / float64(nights), true
		}
	}
	return total, true
}

// parseRating extracts a (0, 5] rating from a raw string.
func parseRating(raw string) (float64, bool) {
	match := ratingRegexp.FindStringSubmatch(raw)
	if len(match) < 2 {
		return 0, false
	}
	val, err := strconv.ParseFloat(match[1], 64)
	if err != nil || val <= 0 || val > 5 {
		return 0, false
	}
	return val, true
}

// roomID returns the listing id embedded in an Airbnb room URL.
func roomID(url string) string {
	if m := roomRegexp.FindStringSubmatch(url); len(m) == 2 {
		return m[1]
	}
	return ""
}

// normaliseText strips surrounding whitespace, collapses internal runs and
// maps the scraper's "N/A" placeholder to empty.
func normaliseText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "N/A" {
		return ""
	}
	return s
}
