package class

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/classbook/adapter/cli"
	"github.com/felixgeelhaar/classbook/internal/booking/application/queries"
)

var (
	listFrom string
	listDays int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List upcoming classes",
	Long: `List classes starting in a time range with their seat counts.

Examples:
  classbook class list                     # Next 7 days
  classbook class list --days 30
  classbook class list --from 2026-03-01 --days 1`,
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		from := time.Now()
		if listFrom != "" {
			if from, err = time.Parse(time.DateOnly, listFrom); err != nil {
				return fmt.Errorf("invalid --from date (use YYYY-MM-DD): %w", err)
			}
		}
		if listDays < 1 {
			return fmt.Errorf("--days must be at least 1")
		}

		classes, err := app.ListClassesHandler.Handle(cmd.Context(), queries.ListClassesQuery{
			From: from,
			To:   from.AddDate(0, 0, listDays),
		})
		if err != nil {
			return fmt.Errorf("failed to list classes: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(classes) == 0 {
			fmt.Fprintln(out, "No classes scheduled.")
			return nil
		}
		for _, c := range classes {
			fmt.Fprintf(out, "%s  %-20s %-9s %d/%d  waitlist %d  %s\n",
				c.StartTime.Local().Format("2006-01-02 15:04"),
				c.Name,
				c.Status,
				c.Confirmed,
				c.Capacity,
				c.WaitlistSize,
				c.ClassID,
			)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listFrom, "from", "", "start of range (YYYY-MM-DD, default now)")
	listCmd.Flags().IntVar(&listDays, "days", 7, "length of range in days")
}
