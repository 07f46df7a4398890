package ingest

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/formicag/ACEReportHub/internal/models"
)

const sampleExport = "\ufeffOpportunity ID,Customer Company Name,Status,Stage,Estimated AWS Monthly Recurring Revenue,Last Updated Date,Date Created,APN Programs,Opportunity Owner,Partner Project Title\n" +
	"o1234567,\"Acme, Ltd\",Approved,Qualified,\"$1,250.00\",03/04/2026,01/02/2026,Well-Architected; MAP,Jane Doe,RAPID PILOT migration\n" +
	",,,,,,,,,\n" +
	"O7654321,<b>Globex</b>,Draft,Prospect,,2026-03-01,,,,\n"

func TestReadCSV(t *testing.T) {
	records, err := ReadCSV(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records (blank row skipped), got %d", len(records))
	}

	first := records[0]
	if first.ID != "O1234567" {
		t.Fatalf("expected upper-cased id, got %s", first.ID)
	}
	if first.CustomerName != "Acme, Ltd" {
		t.Fatalf("unexpected customer %q", first.CustomerName)
	}
	if first.EstimatedRevenue != 1250 {
		t.Fatalf("expected revenue 1250, got %v", first.EstimatedRevenue)
	}
	if first.LastUpdated == nil || !first.LastUpdated.Equal(time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected day-first last updated 2026-04-03, got %v", first.LastUpdated)
	}
	if !reflect.DeepEqual(first.Programs, []string{"Well-Architected", "MAP"}) {
		t.Fatalf("unexpected programs %v", first.Programs)
	}
	if !first.IsWellArchitected() || !first.IsRapidPilot() {
		t.Fatal("expected Well-Architected and RAPID PILOT flags")
	}

	second := records[1]
	if second.CustomerName != "Globex" {
		t.Fatalf("expected markup stripped, got %q", second.CustomerName)
	}
	if second.EstimatedRevenue != 0 || second.DateCreated != nil {
		t.Fatalf("expected empty cells as zero values, got %+v", second)
	}
}

func TestReadCSV_MissingColumns(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("Opportunity ID,Status\nO1234567,Approved\n"))
	var ie *models.InvalidInputError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
	if !reflect.DeepEqual(ie.IDs, []string{"Last Updated Date", "Stage"}) {
		t.Fatalf("unexpected missing columns %v", ie.IDs)
	}
}

func TestReadCSV_BadCellRejectsUpload(t *testing.T) {
	in := "Opportunity ID,Status,Stage,Last Updated Date,ARR (USD)\n" +
		"O1234567,Approved,Qualified,yesterday,100\n" +
		"O7654321,Approved,Qualified,2026-03-01,lots\n"
	_, err := ReadCSV(strings.NewReader(in))
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	for _, want := range []string{"row 2", "last updated", "row 3", "revenue"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %q", err, want)
		}
	}
}

func TestReadCSV_Empty(t *testing.T) {
	for _, in := range []string{"", "Opportunity ID,Status,Stage,Last Updated Date\n"} {
		if _, err := ReadCSV(strings.NewReader(in)); !errors.Is(err, models.ErrInvalidInput) {
			t.Fatalf("input %q: expected invalid input, got %v", in, err)
		}
	}
}

func TestApplyExclusions(t *testing.T) {
	records := []models.Opportunity{{ID: "O18244"}, {ID: "O1"}, {ID: "o7015"}}
	if n := ApplyExclusions(records, DefaultExcludedIDs); n != 2 {
		t.Fatalf("expected 2 excluded, got %d", n)
	}
	if !records[0].Excluded || records[1].Excluded || !records[2].Excluded {
		t.Fatalf("unexpected flags %+v", records)
	}
}
