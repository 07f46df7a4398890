package main

import (
	"context"
	"strings"
	"testing"

	"github.com/formicag/ACEReportHub/internal/models"
	"github.com/formicag/ACEReportHub/internal/snapshots"
)

func TestVerify(t *testing.T) {
	store := snapshots.NewMemoryStore()
	ctx := context.Background()
	good := &models.Snapshot{
		ReportWeek:    "2026-03-02",
		Stats:         models.Stats{TotalAll: 2},
		Opportunities: []models.Opportunity{{ID: "O10001"}, {ID: "O10002"}},
	}
	bad := &models.Snapshot{
		ReportWeek:    "2026-03-09",
		Stats:         models.Stats{TotalAll: 5},
		Opportunities: []models.Opportunity{{ID: "O10001"}},
	}
	for _, sn := range []*models.Snapshot{good, bad} {
		if _, err := store.Insert(ctx, sn); err != nil {
			t.Fatal(err)
		}
	}

	rows, problems, err := verify(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || !rows[0].OK || rows[1].OK {
		t.Fatalf("rows = %+v", rows)
	}
	if len(problems) != 1 || !strings.Contains(problems[0], "#2 stores 1 records") {
		t.Fatalf("problems = %v", problems)
	}
}

func TestVerify_MissingBaseline(t *testing.T) {
	store := snapshots.NewMemoryStore()
	ctx := context.Background()
	for _, w := range []models.ReportWeek{"2026-03-02", "2026-03-09"} {
		if _, err := store.Insert(ctx, &models.Snapshot{ReportWeek: w}); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Delete(ctx, 1); err != nil {
		t.Fatal(err)
	}

	_, problems, err := verify(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	if len(problems) != 1 || !strings.Contains(problems[0], "baseline #1 is missing") {
		t.Fatalf("problems = %v", problems)
	}
}
