package booking

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/classbook/adapter/cli"
	"github.com/felixgeelhaar/classbook/internal/booking/application/queries"
)

var listAll bool

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List a user's bookings",
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		user, err := uuid.Parse(userID)
		if err != nil {
			return fmt.Errorf("invalid user ID: %w", err)
		}

		bookings, err := app.ListUserBookingsHandler.Handle(cmd.Context(), queries.ListUserBookingsQuery{
			UserID:           user,
			IncludeCancelled: listAll,
		})
		if err != nil {
			return fmt.Errorf("failed to list bookings: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(bookings) == 0 {
			fmt.Fprintln(out, "No bookings.")
			return nil
		}
		for _, b := range bookings {
			fmt.Fprintf(out, "%-9s %s  booked %s\n", b.Status(), b.ClassID(), b.BookedAt().Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "include cancelled bookings")
}
