package booking

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/classbook/adapter/cli"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <class-id>",
	Short: "Cancel a booking",
	Long: `Cancel a user's confirmed booking. The first user on the waitlist
takes the freed seat.

Cancelling a booking that is already cancelled succeeds without change.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		classID, user, err := parseIDs(args[0])
		if err != nil {
			return err
		}

		if err := app.Engine.CancelBooking(cmd.Context(), classID, user); err != nil {
			return fmt.Errorf("failed to cancel booking: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Booking cancelled.")
		return nil
	},
}
