package class

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/classbook/adapter/cli"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <class-id>",
	Short: "Cancel a class",
	Long: `Cancel a class. Every confirmed booking is cancelled and the waitlist
is cleared; affected users are listed in the ClassCancelled event.

Examples:
  classbook class cancel abc123-def456-...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		classID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid class ID: %w", err)
		}

		if err := app.Engine.CancelClass(cmd.Context(), classID); err != nil {
			return fmt.Errorf("failed to cancel class: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Class cancelled.")
		return nil
	},
}
