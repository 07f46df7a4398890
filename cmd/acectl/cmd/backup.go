package cmd

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func (c *cli) backupCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a full backup of every snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			loc, err := a.Service.Backup(cmd.Context(), reason)
			if err != nil {
				return err
			}
			cmd.Printf("Backup written to %s\n", loc)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "manual", "label stored in the archive name")
	return cmd
}

func (c *cli) auditCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent audit events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if a.RecentAudit == nil {
				cmd.Println("The configured store keeps no audit log.")
				return nil
			}
			events, err := a.RecentAudit(cmd.Context(), limit)
			if err != nil {
				return err
			}
			t := newTable(cmd)
			t.AppendHeader(table.Row{"At", "Action", "Snapshot", "Week", "Records", "OK", "Message"})
			for _, e := range events {
				t.AppendRow(table.Row{e.At.Format("2006-01-02 15:04:05"), e.Action, e.SnapshotID, e.ReportWeek, e.Records, e.Success, truncate(e.Message, 60)})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of events")
	return cmd
}
