package class

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/classbook/adapter/cli"
	"github.com/felixgeelhaar/classbook/internal/booking/application/queries"
)

var showCmd = &cobra.Command{
	Use:   "show <class-id>",
	Short: "Show seats and waitlist for a class",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		classID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid class ID: %w", err)
		}

		roster, err := app.GetClassRosterHandler.Handle(cmd.Context(), queries.GetClassRosterQuery{ClassID: classID})
		if err != nil {
			return fmt.Errorf("failed to load class: %w", err)
		}

		out := cmd.OutOrStdout()
		printAvailability(out, roster.ClassAvailabilityDTO)

		fmt.Fprintln(out)
		fmt.Fprintln(out, "Seats:")
		if len(roster.Seats) == 0 {
			fmt.Fprintln(out, "  (none)")
		}
		for i, b := range roster.Seats {
			fmt.Fprintf(out, "  %2d. %s  booked %s\n", i+1, b.UserID(), b.BookedAt().Local().Format("2006-01-02 15:04"))
		}

		fmt.Fprintln(out, "Waitlist:")
		if len(roster.Waitlist) == 0 {
			fmt.Fprintln(out, "  (empty)")
		}
		for _, e := range roster.Waitlist {
			fmt.Fprintf(out, "  #%-2d %s  since %s\n", e.Position(), e.UserID(), e.CreatedAt().Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}
