// Command verify_db checks a snapshot store for consistency: the baseline is
// present, report weeks are unique and every snapshot holds as many records
// as its stats claim.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/formicag/ACEReportHub/internal/app"
	"github.com/formicag/ACEReportHub/internal/config"
	"github.com/formicag/ACEReportHub/internal/logger"
	"github.com/formicag/ACEReportHub/internal/models"
	"github.com/formicag/ACEReportHub/internal/snapshots"
	"github.com/jedib0t/go-pretty/v6/table"
)

func main() {
	configPath := flag.String("config", os.Getenv("ACE_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger.NewWithWriter(os.Stderr, "warn"))
	if err != nil {
		log.Fatalf("Unable to open store: %v", err)
	}
	defer a.Close()

	rows, problems, err := verify(ctx, a.Store)
	if err != nil {
		log.Fatalf("Verification failed: %v", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Week", "Stored", "Stats", "Reportable", "Stale", "OK"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.ID, r.Week, r.Stored, r.Claimed, r.Reportable, r.Stale, r.OK})
	}
	t.Render()

	if len(problems) == 0 {
		fmt.Printf("%d snapshots verified\n", len(rows))
		return
	}
	for _, p := range problems {
		fmt.Println("PROBLEM:", p)
	}
	os.Exit(1)
}

type checkRow struct {
	ID         int64
	Week       models.ReportWeek
	Stored     int
	Claimed    int
	Reportable int
	Stale      int
	OK         bool
}

func verify(ctx context.Context, store snapshots.Store) ([]checkRow, []string, error) {
	list, err := store.List(ctx)
	if err != nil {
		return nil, nil, err
	}

	var problems []string
	if len(list) > 0 && list[0].ID != models.BaselineID {
		problems = append(problems, fmt.Sprintf("baseline #%d is missing, oldest snapshot is #%d", models.BaselineID, list[0].ID))
	}

	weeks := make(map[models.ReportWeek]int64, len(list))
	rows := make([]checkRow, 0, len(list))
	for _, sn := range list {
		full, err := store.Get(ctx, sn.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("load #%d: %w", sn.ID, err)
		}
		r := checkRow{
			ID:         sn.ID,
			Week:       sn.ReportWeek,
			Stored:     len(full.Opportunities),
			Claimed:    sn.Stats.TotalAll,
			Reportable: sn.Stats.Reportable,
			Stale:      sn.Stats.StaleCount,
			OK:         true,
		}
		if r.Stored != r.Claimed {
			r.OK = false
			problems = append(problems, fmt.Sprintf("#%d stores %d records but its stats count %d", sn.ID, r.Stored, r.Claimed))
		}
		if prev, ok := weeks[sn.ReportWeek]; ok {
			r.OK = false
			problems = append(problems, fmt.Sprintf("#%d repeats report week %s of #%d", sn.ID, sn.ReportWeek, prev))
		}
		weeks[sn.ReportWeek] = sn.ID
		rows = append(rows, r)
	}
	return rows, problems, nil
}
