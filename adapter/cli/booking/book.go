package booking

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/classbook/adapter/cli"
)

var bookCmd = &cobra.Command{
	Use:   "book <class-id>",
	Short: "Book a seat in a class",
	Long: `Book a seat in a class for a user.

If the class is full the user joins the waitlist and is promoted in
first-come order when a seat frees up.

Examples:
  classbook booking book <class-id> --user <user-id>`,
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

		outcome, err := app.Engine.BookClass(cmd.Context(), classID, user)
		if err != nil {
			return fmt.Errorf("failed to book class: %w", err)
		}

		out := cmd.OutOrStdout()
		if outcome.IsBooked() {
			fmt.Fprintln(out, "Seat booked!")
			fmt.Fprintf(out, "  Booking ID: %s\n", outcome.Booking.ID())
			return nil
		}
		fmt.Fprintln(out, "Class is full, added to the waitlist.")
		fmt.Fprintf(out, "  Position: %d\n", outcome.Entry.Position())
		return nil
	},
}
