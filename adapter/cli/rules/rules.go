package rules

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/classbook/adapter/cli"
	"github.com/felixgeelhaar/classbook/internal/booking/domain"
)

// Cmd is the rules command group
var Cmd = &cobra.Command{
	Use:   "rules",
	Short: "Show and change business rules",
	Long: `Show and change the business rules used for booking decisions.

Known rules:
  cancellation_window_hours       hours before start a booking can still be cancelled
  max_waitlist_size               waitlist places per class
  max_bookings_per_user_per_day   confirmed bookings a user may hold per day`,
}

var getCmd = &cobra.Command{
	Use:   "get [rule]",
	Short: "Show current rule values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		values := app.Rules.Values(cmd.Context())
		out := cmd.OutOrStdout()
		if len(args) == 1 {
			key, err := domain.ParseRuleKey(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, values[key])
			return nil
		}
		for _, key := range domain.RuleKeys {
			fmt.Fprintf(out, "%-30s %s\n", key, values[key])
		}
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set <rule> <value>",
	Short: "Change a rule value",
	Long: `Change a rule value. The next booking decision uses the new value.

Examples:
  classbook rules set max_waitlist_size 10
  classbook rules set cancellation_window_hours 12`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		key, err := domain.ParseRuleKey(args[0])
		if err != nil {
			return err
		}
		if err := app.Rules.Set(cmd.Context(), key, args[1]); err != nil {
			return fmt.Errorf("failed to set rule: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, app.Rules.Values(cmd.Context())[key])
		return nil
	},
}

func init() {
	Cmd.AddCommand(getCmd)
	Cmd.AddCommand(setCmd)
}
