package booking

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var userID string

// Cmd is the booking command group
var Cmd = &cobra.Command{
	Use:   "booking",
	Short: "Book and cancel seats",
	Long: `Book a seat in a class, or cancel one. Full classes put the user on
the waitlist instead.`,
}

func init() {
	Cmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "user ID")
	_ = Cmd.MarkPersistentFlagRequired("user")

	Cmd.AddCommand(bookCmd)
	Cmd.AddCommand(cancelCmd)
	Cmd.AddCommand(listCmd)
}

func parseIDs(classArg string) (classID, user uuid.UUID, err error) {
	if classID, err = uuid.Parse(classArg); err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid class ID: %w", err)
	}
	if user, err = uuid.Parse(userID); err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid user ID: %w", err)
	}
	return classID, user, nil
}
