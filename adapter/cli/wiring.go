package cli

import (
	"context"

	bootstrap "github.com/felixgeelhaar/classbook/internal/app"
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/outbox"
)

// NewAppFromContainer wires the CLI application to a container.
func NewAppFromContainer(c *bootstrap.Container) *App {
	a := NewApp(
		c.Engine,
		c.RuleStore,
		c.CreateClassHandler,
		c.GetClassAvailabilityHandler,
		c.GetClassRosterHandler,
		c.ListClassesHandler,
		c.ListUserBookingsHandler,
		c.ListWaitlistEntriesHandler,
	)
	a.SetMigrator(func(ctx context.Context) error {
		return migrations.Run(ctx, c.DBConn)
	})
	a.SetOutbox(containerOutbox{container: c})
	a.Health = c.HealthChecks()
	return a
}

// containerOutbox connects a publisher only when a drain is requested.
type containerOutbox struct {
	container *bootstrap.Container
}

func (d containerOutbox) Drain(ctx context.Context, batches int) error {
	publisher, err := d.container.NewPublisher()
	if err != nil {
		return err
	}
	defer publisher.Close()

	processor := d.container.NewOutboxProcessor(publisher)
	for i := 0; i < batches; i++ {
		if err := processor.ProcessOnce(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (d containerOutbox) Retrying(ctx context.Context, limit int) ([]*outbox.Message, error) {
	return d.container.OutboxRepo.GetFailed(ctx, d.container.Config.OutboxMaxRetries, limit)
}
