package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/formicag/ACEReportHub/internal/config"
	"github.com/formicag/ACEReportHub/internal/models"
	"github.com/formicag/ACEReportHub/internal/snapshots"
)

func TestNew_SQLiteWiring(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = config.DriverSQLite
	cfg.Store.SQLitePath = "file:app_wiring?mode=memory&cache=shared"
	cfg.Backup.Dir = filepath.Join(t.TempDir(), "backups")
	cfg.Auth.ConfirmSecret = "test"

	a, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()
	ctx := context.Background()

	updated := time.Now().UTC().AddDate(0, 0, -2)
	rec := []models.Opportunity{{ID: "O12345", CustomerName: "Acme", Owner: "Sam", Status: "Approved", Stage: "Qualified", LastUpdated: &updated}}
	for _, w := range []string{"2026-03-02", "2026-03-09"} {
		if _, err := a.Service.Save(ctx, snapshots.SaveRequest{Records: rec, ReportWeek: w}); err != nil {
			t.Fatalf("save %s: %v", w, err)
		}
	}

	loc, err := a.Service.Backup(ctx, "")
	if err != nil || filepath.Dir(loc) != cfg.Backup.Dir {
		t.Fatalf("Backup = %q, %v", loc, err)
	}

	events, err := a.RecentAudit(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) < 3 {
		t.Fatalf("expected save and backup events, got %d", len(events))
	}

	if err := a.Service.Delete(ctx, 1, ""); !errors.Is(err, models.ErrProtected) {
		t.Fatalf("expected baseline protection, got %v", err)
	}
}

func TestNew_MemoryWithoutBackupDir(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = config.DriverMemory
	cfg.Backup.Dir = ""

	a, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if a.RecentAudit != nil {
		t.Fatal("memory store keeps no audit log")
	}
	if _, err := a.Service.Backup(context.Background(), ""); !errors.Is(err, models.ErrBackupFailed) {
		t.Fatalf("expected backup failure without sinks, got %v", err)
	}
}
