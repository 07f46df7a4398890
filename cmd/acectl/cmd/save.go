package cmd

import (
	"errors"
	"path/filepath"

	"github.com/formicag/ACEReportHub/internal/ingest"
	"github.com/formicag/ACEReportHub/internal/models"
	"github.com/formicag/ACEReportHub/internal/snapshots"
	"github.com/spf13/cobra"
)

func (c *cli) saveCmd() *cobra.Command {
	var week, notes, exportDate, htmlOut string
	var to []string
	cmd := &cobra.Command{
		Use:   "save <export.csv>",
		Short: "Store an export as the snapshot for a report week",
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
			exported, err := ingest.ParseDate(exportDate)
			if err != nil {
				return err
			}

			res, err := a.Service.Save(cmd.Context(), snapshots.SaveRequest{
				Records:        records,
				ReportWeek:     week,
				SourceFilename: filepath.Base(args[0]),
				ExportDate:     exported,
				Recipients:     to,
				Notes:          notes,
			})
			var dup *models.DuplicateReportError
			if errors.As(err, &dup) {
				cmd.Printf("Not saved: week %s already exists as snapshot #%d (created %s).\n",
					dup.ReportWeek, dup.ExistingID, dup.ExistingCreatedAt.Format("2006-01-02 15:04"))
				return err
			}
			if err != nil {
				return err
			}

			printWarnings(cmd, res.Warnings)
			cmd.Printf("Saved snapshot #%d for week %s (%d records).\n", res.Snapshot.ID, res.Snapshot.ReportWeek, len(records))

			var target *models.Snapshot
			if id := res.Comparison.TargetID; id != 0 {
				target, _ = a.Service.Get(cmd.Context(), id)
			}
			v := renderView(cmd.Context(), a, res.Comparison, target, res.Snapshot.ReportWeek, res.Snapshot.Notes)
			printComparison(cmd, v)
			return writeHTML(cmd, htmlOut, v)
		},
	}
	cmd.Flags().StringVar(&week, "week", "", "report week (YYYY-MM-DD)")
	cmd.Flags().StringVar(&notes, "notes", "", "notes included in the report")
	cmd.Flags().StringSliceVar(&to, "to", nil, "report recipients")
	cmd.Flags().StringVar(&exportDate, "export-date", "", "date the export was taken")
	cmd.Flags().StringVar(&htmlOut, "html", "", "write the rendered report to this file")
	_ = cmd.MarkFlagRequired("week")
	return cmd
}
