package class

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/classbook/internal/booking/application/queries"
)

// Cmd is the class command group
var Cmd = &cobra.Command{
	Use:   "class",
	Short: "Manage classes",
	Long:  `Schedule, list, inspect, and cancel fitness classes.`,
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(cancelCmd)
}

func printAvailability(out io.Writer, dto *queries.ClassAvailabilityDTO) {
	fmt.Fprintf(out, "%s\n", dto.Name)
	fmt.Fprintln(out, strings.Repeat("-", 40))
	fmt.Fprintf(out, "  Class ID:  %s\n", dto.ClassID)
	fmt.Fprintf(out, "  Starts:    %s\n", dto.StartTime.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "  Ends:      %s (%s)\n", dto.EndTime.Local().Format(time.RFC3339), dto.Duration)
	fmt.Fprintf(out, "  Status:    %s\n", dto.Status)
	fmt.Fprintf(out, "  Seats:     %d/%d booked, %d left\n", dto.Confirmed, dto.Capacity, dto.SeatsLeft)
	fmt.Fprintf(out, "  Waitlist:  %d\n", dto.WaitlistSize)
}
