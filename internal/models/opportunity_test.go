package models

import (
	"errors"
	"testing"
	"time"
)

func TestOpenPolicy_IsOpen(t *testing.T) {
	p := DefaultOpenPolicy()
	tests := []struct {
		name   string
		status string
		stage  string
		want   bool
	}{
		{"approved prospect", "Approved", "Prospect", true},
		{"case insensitive", "in review", "business validation", true},
		{"launched", "Approved", "Launched", false},
		{"closed lost", "Closed Lost", "Qualified", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.IsOpen(Opportunity{Status: tt.status, Stage: tt.stage})
			if got != tt.want {
				t.Fatalf("IsOpen(%q,%q) = %v, want %v", tt.status, tt.stage, got, tt.want)
			}
		})
	}
}

func TestDaysSinceUpdate(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	past := now.Add(-31*24*time.Hour - time.Hour)
	future := now.Add(48 * time.Hour)

	if _, ok := (Opportunity{}).DaysSinceUpdate(now); ok {
		t.Fatal("expected ok=false without last updated")
	}
	if d, _ := (Opportunity{LastUpdated: &past}).DaysSinceUpdate(now); d != 31 {
		t.Fatalf("expected 31 days, got %d", d)
	}
	if d, ok := (Opportunity{LastUpdated: &future}).DaysSinceUpdate(now); !ok || d != 0 {
		t.Fatalf("future update should clamp to 0, got %d ok=%v", d, ok)
	}
}

func TestClassificationFlags(t *testing.T) {
	o := Opportunity{Programs: []string{"MAP", "AWS Well-Architected Partner Program"}, ProjectTitle: "Acme - Rapid Pilot phase 1"}
	if !o.IsWellArchitected() {
		t.Error("expected Well-Architected")
	}
	if !o.IsRapidPilot() {
		t.Error("expected RAPID PILOT")
	}
	if (Opportunity{}).IsWellArchitected() || (Opportunity{}).IsRapidPilot() {
		t.Error("empty opportunity should carry no flags")
	}
}

func TestParseReportWeek(t *testing.T) {
	if w, err := ParseReportWeek(" 2026-03-09 "); err != nil || w != "2026-03-09" {
		t.Fatalf("unexpected %q %v", w, err)
	}
	for _, bad := range []string{"", "09/03/2026", "2026-13-01"} {
		if _, err := ParseReportWeek(bad); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ParseReportWeek(%q) err = %v, want ErrInvalidInput", bad, err)
		}
	}
}

func TestErrorKinds(t *testing.T) {
	dup := &DuplicateReportError{ReportWeek: "2026-03-09", ExistingID: 4, ExistingCreatedAt: time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)}
	if !errors.Is(dup, ErrDuplicateReport) {
		t.Fatal("duplicate error should match ErrDuplicateReport")
	}
	cause := errors.New("disk full")
	bf := &BackupFailureError{ID: 3, Err: cause}
	if !errors.Is(bf, ErrBackupFailed) || !errors.Is(bf, cause) {
		t.Fatal("backup failure should match both sentinel and cause")
	}
	var pe *ProtectedResourceError
	if !errors.As(error(&ProtectedResourceError{ID: 1}), &pe) || pe.ID != 1 {
		t.Fatal("errors.As should extract ProtectedResourceError")
	}
}
