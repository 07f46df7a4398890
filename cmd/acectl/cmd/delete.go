package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/formicag/ACEReportHub/internal/models"
	"github.com/spf13/cobra"
)

func (c *cli) deleteCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a snapshot after writing a full backup",
		Long: `Delete a snapshot after writing a full backup.

Snapshot #1 is the baseline and is never deleted. The second-oldest snapshot
needs a token from "acectl delete-token <id>" passed with --confirm.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			err = a.Service.Delete(cmd.Context(), id, token)
			if errors.Is(err, models.ErrConfirmationRequired) {
				cmd.Printf("Snapshot #%d needs confirmation: run `acectl delete-token %d` and pass the token with --confirm.\n", id, id)
			}
			if err != nil {
				return err
			}
			cmd.Printf("Deleted snapshot #%d.\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "confirm", "", "confirmation token for the guarded snapshot")
	return cmd
}

func (c *cli) deleteTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-token <id>",
		Short: "Issue a confirmation token for deleting a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			token, err := a.Service.IssueDeleteToken(cmd.Context(), id)
			if err != nil {
				return err
			}
			cmd.Println(token)
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid snapshot id %q", s)
	}
	return id, nil
}
