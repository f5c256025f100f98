package waitlist

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/classbook/adapter/cli"
	"github.com/felixgeelhaar/classbook/internal/booking/application/queries"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List a user's waitlist places",
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		user, err := uuid.Parse(userID)
		if err != nil {
			return fmt.Errorf("invalid user ID: %w", err)
		}

		entries, err := app.ListWaitlistEntriesHandler.Handle(cmd.Context(), queries.ListWaitlistEntriesQuery{UserID: user})
		if err != nil {
			return fmt.Errorf("failed to list waitlist entries: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "Not waiting for any class.")
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(out, "#%-3d %s  since %s\n", e.Position(), e.ClassID(), e.CreatedAt().Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}
