// Package clitest builds a CLI application over a throwaway SQLite database.
package clitest

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/classbook/adapter/cli"
	bootstrap "github.com/felixgeelhaar/classbook/internal/app"
	"github.com/felixgeelhaar/classbook/internal/booking/application/commands"
	"github.com/felixgeelhaar/classbook/pkg/config"
)

// Config returns a development configuration pointing at a temp database.
func Config(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AppEnv:                "test",
		DatabaseDriver:        "sqlite",
		SQLitePath:            filepath.Join(t.TempDir(), "classbook.db"),
		RulesBackend:          config.RulesBackendSQL,
		BookingMaxAttempts:    3,
		BookingRetryBaseDelay: time.Millisecond,
		BookingRetryMaxDelay:  5 * time.Millisecond,
		OutboxPollInterval:    10 * time.Millisecond,
		OutboxBatchSize:       50,
		OutboxMaxRetries:      3,
	}
}

// Setup builds a container and installs its CLI app as the global app.
// The global app is cleared when the test ends.
func Setup(t *testing.T) (*cli.App, *bootstrap.Container) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	container, err := bootstrap.NewContainer(context.Background(), Config(t), logger)
	require.NoError(t, err)
	t.Cleanup(container.Close)

	a := cli.NewAppFromContainer(container)
	cli.SetApp(a)
	t.Cleanup(func() { cli.SetApp(nil) })
	return a, container
}

// CreateClass schedules a class starting in the given offset from now.
func CreateClass(t *testing.T, a *cli.App, capacity int, startsIn time.Duration) uuid.UUID {
	t.Helper()
	start := time.Now().Add(startsIn).Truncate(time.Second)
	result, err := a.CreateClassHandler.Handle(context.Background(), commands.CreateClassCommand{
		LocationID: uuid.New(),
		Name:       "Spin",
		StartTime:  start,
		EndTime:    start.Add(45 * time.Minute),
		Capacity:   capacity,
	})
	require.NoError(t, err)
	return result.ClassID
}

// Run executes cmd with args and returns what it wrote to stdout.
func Run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}
