package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/classbook/pkg/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the database and rule store",
	Long: `Run the same readiness probes as the worker's /readyz endpoint.

Exits non-zero when a critical dependency is down.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := RequireApp()
		if err != nil {
			return err
		}
		if app.Health == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		}

		report := app.Health.Run(cmd.Context())
		out := cmd.OutOrStdout()
		for _, name := range app.Health.Names() {
			check := report.Checks[name]
			fmt.Fprintf(out, "%-10s %-9s %s", name, check.Status, check.Duration)
			if check.Error != "" {
				fmt.Fprintf(out, "  %s", check.Error)
			}
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "status: %s\n", report.Status)

		if report.Status == observability.HealthStatusUnhealthy {
			return fmt.Errorf("a critical dependency is unhealthy")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
