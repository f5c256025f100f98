package waitlist

import (
	"github.com/spf13/cobra"
)

var userID string

// Cmd is the waitlist command group
var Cmd = &cobra.Command{
	Use:   "waitlist",
	Short: "Inspect and leave waitlists",
}

func init() {
	Cmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "user ID")
	_ = Cmd.MarkPersistentFlagRequired("user")

	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(leaveCmd)
}
