package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	drainBatches  int
	retryingLimit int
)

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Inspect and publish the event outbox",
}

var outboxDrainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Publish pending outbox messages",
	Long: `Publish pending outbox messages once instead of waiting for the worker.

Each batch uses the worker's batch size. Messages that fail stay in the
outbox and are retried with backoff.

Examples:
  classbook outbox drain
  classbook outbox drain --batches 5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := RequireApp()
		if err != nil {
			return err
		}
		if app.Outbox == nil {
			return fmt.Errorf("outbox publishing is not configured")
		}
		if drainBatches < 1 {
			return fmt.Errorf("--batches must be at least 1")
		}
		if err := app.Outbox.Drain(cmd.Context(), drainBatches); err != nil {
			return fmt.Errorf("failed to drain outbox: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Processed %d outbox batch(es).\n", drainBatches)
		return nil
	},
}

var outboxRetryingCmd = &cobra.Command{
	Use:   "retrying",
	Short: "List outbox messages due for a publish retry",
	Long: `List messages whose last publish failed and whose backoff has elapsed.

Dead-lettered messages are not listed.

Examples:
  classbook outbox retrying
  classbook outbox retrying --limit 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := RequireApp()
		if err != nil {
			return err
		}
		if app.Outbox == nil {
			return fmt.Errorf("outbox publishing is not configured")
		}

		msgs, err := app.Outbox.Retrying(cmd.Context(), retryingLimit)
		if err != nil {
			return fmt.Errorf("failed to list retrying messages: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(msgs) == 0 {
			fmt.Fprintln(out, "No messages due for a retry.")
			return nil
		}
		for _, msg := range msgs {
			lastError := ""
			if msg.LastError != nil {
				lastError = *msg.LastError
			}
			fmt.Fprintf(out, "%-6d %-28s attempts %d  %s\n", msg.ID, msg.RoutingKey, msg.RetryCount, lastError)
		}
		return nil
	},
}

func init() {
	outboxDrainCmd.Flags().IntVar(&drainBatches, "batches", 1, "number of batches to process")
	outboxRetryingCmd.Flags().IntVar(&retryingLimit, "limit", 50, "maximum messages to list")
	outboxCmd.AddCommand(outboxDrainCmd)
	outboxCmd.AddCommand(outboxRetryingCmd)
	rootCmd.AddCommand(outboxCmd)
}
