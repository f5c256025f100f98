package waitlist

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/classbook/adapter/cli"
)

var leaveCmd = &cobra.Command{
	Use:   "leave <class-id>",
	Short: "Leave a class waitlist",
	Long: `Remove a user from a class waitlist. Users behind them move up one
place.`,
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
		user, err := uuid.Parse(userID)
		if err != nil {
			return fmt.Errorf("invalid user ID: %w", err)
		}

		if err := app.Engine.RemoveFromWaitlist(cmd.Context(), classID, user); err != nil {
			return fmt.Errorf("failed to leave waitlist: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Removed from the waitlist.")
		return nil
	},
}
