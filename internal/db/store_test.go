package db

import (
	"strings"
	"testing"
	"time"

	"github.com/formicag/ACEReportHub/internal/models"
)

func TestSnapshotCols_MatchesScan(t *testing.T) {
	cols := strings.Split(snapshotCols, ",")
	dest := 0
	_, _ = scanSnapshot(func(d ...any) error {
		dest = len(d)
		return nil
	})
	if len(cols) != dest {
		t.Fatalf("snapshotCols has %d columns, scanSnapshot reads %d", len(cols), dest)
	}
}

func TestOpportunityRows_KeepsOrderAndArity(t *testing.T) {
	updated := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []models.Opportunity{
		{ID: "O2", CustomerName: "Beta", LastUpdated: &updated},
		{ID: "O1", CustomerName: "Alpha", Programs: []string{"MAP"}},
	}

	rows := opportunityRows(7, records)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if len(row) != len(opportunityCols) {
			t.Fatalf("row %d has %d values for %d columns", i, len(row), len(opportunityCols))
		}
		if row[0] != int64(7) || row[1] != i {
			t.Fatalf("row %d: snapshot_id=%v position=%v", i, row[0], row[1])
		}
	}
	if rows[0][2] != "O2" || rows[1][2] != "O1" {
		t.Fatal("upload order not preserved")
	}
	if programs, ok := rows[0][15].([]string); !ok || programs == nil {
		t.Fatal("nil programs must be written as an empty array")
	}
}

func TestMigrationFiles_Ordered(t *testing.T) {
	files, err := migrationFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) < 2 || files[0] != "001_snapshots.sql" || files[1] != "002_audit_log.sql" {
		t.Fatalf("unexpected migration order %v", files)
	}

	content, err := migrationsFS.ReadFile("migrations/" + files[0])
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(strings.ToUpper(string(content)), "UNIQUE") {
		t.Fatal("report week uniqueness belongs to the guarded insert, not a constraint")
	}
}
