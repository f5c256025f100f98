package class

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/classbook/adapter/cli"
	"github.com/felixgeelhaar/classbook/internal/booking/application/commands"
)

var (
	className  string
	locationID string
	coachID    string
	classType  string
	room       string
	startAt    string
	duration   time.Duration
	capacity   int
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Schedule a new class",
	Long: `Schedule a new class at a location.

The start time is RFC 3339 (for example 2026-03-05T07:00:00Z) and must be
in the future.

Examples:
  classbook class create --name Spin --location <id> --start 2026-03-05T07:00:00Z --capacity 12
  classbook class create --name Yoga --location <id> --start 2026-03-05T18:00:00+01:00 --duration 90m --capacity 20`,
	Aliases: []string{"new", "add"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		location, err := uuid.Parse(locationID)
		if err != nil {
			return fmt.Errorf("invalid location ID: %w", err)
		}
		var coach uuid.UUID
		if coachID != "" {
			if coach, err = uuid.Parse(coachID); err != nil {
				return fmt.Errorf("invalid coach ID: %w", err)
			}
		}
		start, err := time.Parse(time.RFC3339, startAt)
		if err != nil {
			return fmt.Errorf("invalid start time (use RFC 3339): %w", err)
		}

		result, err := app.CreateClassHandler.Handle(cmd.Context(), commands.CreateClassCommand{
			LocationID: location,
			CoachID:    coach,
			Name:       className,
			ClassType:  classType,
			Room:       room,
			StartTime:  start,
			EndTime:    start.Add(duration),
			Capacity:   capacity,
		})
		if err != nil {
			return fmt.Errorf("failed to create class: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Class scheduled!")
		fmt.Fprintf(out, "  Class ID: %s\n", result.ClassID)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&className, "name", "", "class name")
	createCmd.Flags().StringVar(&locationID, "location", "", "location ID")
	createCmd.Flags().StringVar(&coachID, "coach", "", "coach ID")
	createCmd.Flags().StringVar(&classType, "type", "", "class type")
	createCmd.Flags().StringVar(&room, "room", "", "room")
	createCmd.Flags().StringVar(&startAt, "start", "", "start time (RFC 3339)")
	createCmd.Flags().DurationVar(&duration, "duration", time.Hour, "class length")
	createCmd.Flags().IntVar(&capacity, "capacity", 0, "number of seats")
	_ = createCmd.MarkFlagRequired("name")
	_ = createCmd.MarkFlagRequired("location")
	_ = createCmd.MarkFlagRequired("start")
	_ = createCmd.MarkFlagRequired("capacity")
}
