package ingest

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"03/04/2026", time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC)},
		{"2026-03-09", time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)},
		{"01/13/2026", time.Date(2026, 1, 13, 0, 0, 0, 0, time.UTC)},
		{"2026-03-09T14:30:00", time.Date(2026, 3, 9, 14, 30, 0, 0, time.UTC)},
		{"9 Mar 2026", time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)},
		{"46090", time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if err != nil {
			t.Fatalf("ParseDate(%q) failed: %v", tc.in, err)
		}
		if got == nil || !got.Equal(tc.want) {
			t.Fatalf("ParseDate(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseDate_EmptyMarkers(t *testing.T) {
	for _, in := range []string{"", "  ", "-", "N/A", "none"} {
		got, err := ParseDate(in)
		if err != nil || got != nil {
			t.Fatalf("ParseDate(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseDate("next tuesday"); err == nil {
		t.Fatal("expected error for free text")
	}
}

func TestParseAmount(t *testing.T) {
	cases := map[string]float64{
		"":          0,
		"-":         0,
		"1250":      1250,
		"$1,250.50": 1250.5,
		"USD 3,000": 3000,
		"(300)":     -300,
		"£ 12.25":   12.25,
	}
	for in, want := range cases {
		got, err := ParseAmount(in)
		if err != nil {
			t.Fatalf("ParseAmount(%q) failed: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseAmount(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseAmount("n/a"); err == nil {
		t.Fatal("expected error for n/a")
	}
}

func TestTruncateText(t *testing.T) {
	if got := TruncateText("héllo wörld", 8); got != "héllo..." {
		t.Fatalf("unexpected %q", got)
	}
	if got := TruncateText("short", 10); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
}
