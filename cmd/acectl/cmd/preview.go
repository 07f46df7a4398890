package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/formicag/ACEReportHub/internal/app"
	"github.com/formicag/ACEReportHub/internal/compare"
	"github.com/formicag/ACEReportHub/internal/ingest"
	"github.com/formicag/ACEReportHub/internal/models"
	"github.com/formicag/ACEReportHub/internal/report"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func (c *cli) previewCmd() *cobra.Command {
	var week, htmlOut string
	cmd := &cobra.Command{
		Use:   "preview <export.csv>",
		Short: "Compare an export with the latest snapshot without storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := readExport(a, args[0])
			if err != nil {
				return err
			}
			p, err := a.Service.Preview(cmd.Context(), records, week)
			if err != nil {
				return err
			}
			if p.Duplicate != nil {
				cmd.Printf("Week %s is already stored as snapshot #%d; saving it would be refused.\n", p.ReportWeek, p.Duplicate.ID)
			}
			printWarnings(cmd, p.Warnings)
			v := renderView(cmd.Context(), a, p.Comparison, p.Target, p.ReportWeek, "")
			printComparison(cmd, v)
			return writeHTML(cmd, htmlOut, v)
		},
	}
	cmd.Flags().StringVar(&week, "week", "", "report week (YYYY-MM-DD) to check for duplicates")
	cmd.Flags().StringVar(&htmlOut, "html", "", "write the rendered report to this file")
	return cmd
}

func readExport(a *app.App, path string) ([]models.Opportunity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	records, err := ingest.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	ingest.ApplyExclusions(records, a.Config.Report.ExcludedIDs)
	return records, nil
}

func renderView(ctx context.Context, a *app.App, res *compare.Result, target *models.Snapshot, week models.ReportWeek, notes string) *report.View {
	v := report.Build(res, target)
	v.ReportWeek = week
	v.Notes = notes
	v.Summary, _ = a.Summarizer.Summarize(ctx, v)
	return v
}

func printComparison(cmd *cobra.Command, v *report.View) {
	if v.Framing == report.FramingBaseline {
		cmd.Println("No stored snapshot: this upload would become the baseline.")
	} else {
		cmd.Printf("Compared with snapshot #%d (week of %s)\n", v.TargetID, v.TargetWeek)
	}

	t := newTable(cmd)
	t.AppendHeader(table.Row{"Open", "Stale", "MRR", "Avg days", "WA", "RAPID", "New", "Closed", "Changed", "Unchanged", "No-stale weeks"})
	t.AppendRow(table.Row{
		v.Stats.Reportable, v.Stats.StaleCount, fmt.Sprintf("%.0f", v.Stats.TotalRevenue), fmt.Sprintf("%.1f", v.Stats.AvgDaysSince),
		v.Stats.WellArchitected, v.Stats.RapidPilot, v.NewCount, v.ClosedCount, v.ChangedCount, v.UnchangedCount, v.ConsecutiveWeeksNoStale,
	})
	t.Render()

	if len(v.Stale) > 0 {
		st := newTable(cmd)
		st.SetTitle("Stale")
		st.AppendHeader(table.Row{"ID", "Customer", "Owner", "Days"})
		for _, r := range v.Stale {
			st.AppendRow(table.Row{r.ID, r.Customer, r.Owner, r.DaysSince})
		}
		st.Render()
	}
	if v.Summary != "" {
		cmd.Println(v.Summary)
	}
}

func printWarnings(cmd *cobra.Command, warnings []string) {
	for _, w := range warnings {
		cmd.Println("warning:", w)
	}
}

func writeHTML(cmd *cobra.Command, path string, v *report.View) error {
	if path == "" {
		return nil
	}
	html, err := report.RenderHTML(v)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return err
	}
	cmd.Printf("Report written to %s\n", path)
	return nil
}
