package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order. Day-first wins over month-first for
// ambiguous values such as 03/04/2026, matching Partner Central UK exports.
var dateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"01/02/2006",
	"2/1/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02-Jan-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// excelEpoch is day zero of spreadsheet serial dates.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ParseDate parses an export date cell. Empty cells and "-" or "N/A" yield nil.
// Date-only values are midnight UTC.
func ParseDate(text string) (*time.Time, error) {
	text = cleanDateString(text)
	if text == "" {
		return nil, nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}

	// Spreadsheet serial numbers leak through when a sheet is saved as CSV.
	if serial, err := strconv.ParseFloat(text, 64); err == nil && serial > 1 && serial < 100000 {
		days := math.Floor(serial)
		t := excelEpoch.AddDate(0, 0, int(days))
		return &t, nil
	}

	return nil, fmt.Errorf("unable to parse date: %s", text)
}

func cleanDateString(s string) string {
	s = normalizeSpace(s)
	switch strings.ToLower(s) {
	case "-", "n/a", "na", "none", "null":
		return ""
	}
	return s
}
