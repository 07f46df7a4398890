package cmd

import (
	"fmt"

	"github.com/formicag/ACEReportHub/internal/models"
	"github.com/formicag/ACEReportHub/internal/snapshots"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func (c *cli) historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List stored snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.Service.History(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				cmd.Println("No snapshots stored yet.")
				return nil
			}
			guarded, _ := snapshots.GuardedID(list)

			t := newTable(cmd)
			t.AppendHeader(table.Row{"ID", "Week", "Created", "Source", "Open", "Stale", "MRR", "New", "Closed", "Changed", "No-stale weeks", ""})
			for _, s := range list {
				t.AppendRow(table.Row{
					s.ID, s.ReportWeek, s.CreatedAt.Format("2006-01-02 15:04"), s.SourceFilename,
					s.Stats.Reportable, s.Stats.StaleCount, fmt.Sprintf("%.0f", s.Stats.TotalRevenue),
					s.NewCount, s.ClosedCount, s.ChangedCount, s.ConsecutiveWeeksNoStale, marker(s.ID, guarded),
				})
			}
			t.Render()
			return nil
		},
	}
}

func marker(id, guarded int64) string {
	switch id {
	case models.BaselineID:
		return "baseline"
	case guarded:
		return "needs token"
	}
	return ""
}
