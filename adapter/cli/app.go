package cli

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/classbook/internal/booking/application/commands"
	"github.com/felixgeelhaar/classbook/internal/booking/application/queries"
	"github.com/felixgeelhaar/classbook/internal/booking/domain"
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/classbook/pkg/observability"
)

// BookingEngine is the write side used by the booking commands.
type BookingEngine interface {
	BookClass(ctx context.Context, classID, userID uuid.UUID) (*domain.BookingOutcome, error)
	CancelBooking(ctx context.Context, classID, userID uuid.UUID) error
	RemoveFromWaitlist(ctx context.Context, classID, userID uuid.UUID) error
	CancelClass(ctx context.Context, classID uuid.UUID) error
}

// RuleStore reads and changes the live business rules.
type RuleStore interface {
	Set(ctx context.Context, key domain.RuleKey, raw string) error
	Values(ctx context.Context) map[domain.RuleKey]string
}

// OutboxOperator publishes pending outbox messages in batches and lists
// the failed ones due for a retry.
type OutboxOperator interface {
	Drain(ctx context.Context, batches int) error
	Retrying(ctx context.Context, limit int) ([]*outbox.Message, error)
}

// App holds the CLI application dependencies.
type App struct {
	Engine BookingEngine
	Rules  RuleStore

	// Command Handlers
	CreateClassHandler *commands.CreateClassHandler

	// Query Handlers
	GetClassAvailabilityHandler *queries.GetClassAvailabilityHandler
	GetClassRosterHandler       *queries.GetClassRosterHandler
	ListClassesHandler          *queries.ListClassesHandler
	ListUserBookingsHandler     *queries.ListUserBookingsHandler
	ListWaitlistEntriesHandler  *queries.ListWaitlistEntriesHandler

	// Operations
	Migrate func(ctx context.Context) error
	Outbox  OutboxOperator
	Health  *observability.HealthRegistry
}

// NewApp creates a new CLI application with the provided handlers.
func NewApp(
	engine BookingEngine,
	rules RuleStore,
	createClassHandler *commands.CreateClassHandler,
	getClassAvailabilityHandler *queries.GetClassAvailabilityHandler,
	getClassRosterHandler *queries.GetClassRosterHandler,
	listClassesHandler *queries.ListClassesHandler,
	listUserBookingsHandler *queries.ListUserBookingsHandler,
	listWaitlistEntriesHandler *queries.ListWaitlistEntriesHandler,
) *App {
	return &App{
		Engine:                      engine,
		Rules:                       rules,
		CreateClassHandler:          createClassHandler,
		GetClassAvailabilityHandler: getClassAvailabilityHandler,
		GetClassRosterHandler:       getClassRosterHandler,
		ListClassesHandler:          listClassesHandler,
		ListUserBookingsHandler:     listUserBookingsHandler,
		ListWaitlistEntriesHandler:  listWaitlistEntriesHandler,
	}
}

// SetMigrator sets the schema migration function.
func (a *App) SetMigrator(fn func(ctx context.Context) error) {
	a.Migrate = fn
}

// SetOutbox sets the outbox operator.
func (a *App) SetOutbox(op OutboxOperator) {
	a.Outbox = op
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}

// RequireApp returns the app or the error shown when no database is
// reachable.
func RequireApp() (*App, error) {
	if app == nil {
		return nil, errNoApp
	}
	return app, nil
}
