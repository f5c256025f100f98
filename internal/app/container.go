package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/classbook/internal/booking/application/commands"
	"github.com/felixgeelhaar/classbook/internal/booking/application/queries"
	"github.com/felixgeelhaar/classbook/internal/booking/application/services"
	"github.com/felixgeelhaar/classbook/internal/booking/application/subscribers"
	"github.com/felixgeelhaar/classbook/internal/booking/infrastructure/persistence"
	"github.com/felixgeelhaar/classbook/internal/booking/infrastructure/rules"
	sharedApplication "github.com/felixgeelhaar/classbook/internal/shared/application"
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/classbook/internal/shared/infrastructure/database/postgres" // Register Postgres driver
	_ "github.com/felixgeelhaar/classbook/internal/shared/infrastructure/database/sqlite"   // Register SQLite driver
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/classbook/pkg/config"
	"github.com/felixgeelhaar/classbook/pkg/observability"
)

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.InMemoryMetrics

	// Infrastructure
	DBConn      database.Connection
	DBDriver    database.Driver
	RedisClient *redis.Client
	UnitOfWork  sharedApplication.UnitOfWork

	// Repositories
	ClassRepo    *persistence.ClassRepository
	BookingRepo  *persistence.BookingRepository
	WaitlistRepo *persistence.WaitlistRepository
	OutboxRepo   *outbox.SQLRepository

	// Rules
	RuleStore *rules.Store

	// Booking
	Engine *services.BookingEngine

	// Command handlers
	CreateClassHandler *commands.CreateClassHandler

	// Query handlers
	GetClassAvailabilityHandler *queries.GetClassAvailabilityHandler
	GetClassRosterHandler       *queries.GetClassRosterHandler
	ListClassesHandler          *queries.ListClassesHandler
	ListUserBookingsHandler     *queries.ListUserBookingsHandler
	ListWaitlistEntriesHandler  *queries.ListWaitlistEntriesHandler

	// Subscribers
	RuleUpdateSubscriber *subscribers.RuleUpdateSubscriber
}

// NewContainer connects to the configured stores and builds the booking
// services. SQLite databases are migrated on open.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewInMemoryMetrics(),
	}

	conn, err := database.NewConnection(ctx, database.Config{
		Driver:     database.ParseDriver(cfg.DatabaseDriver, cfg.DatabaseURL),
		URL:        cfg.DatabaseURL,
		SQLitePath: cfg.SQLitePath,
		MaxConns:   cfg.DatabaseMaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DBConn = conn
	c.DBDriver = conn.Driver()
	logger.Info("connected to database", "driver", c.DBDriver)

	if c.DBDriver == database.DriverSQLite {
		if err := migrations.Run(ctx, conn); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	if cfg.RedisURL != "" {
		client, err := connectRedis(ctx, cfg.RedisURL)
		switch {
		case err == nil:
			c.RedisClient = client
			logger.Info("connected to Redis")
		case cfg.RulesBackend == config.RulesBackendRedis || !cfg.IsDevelopment():
			c.Close()
			return nil, err
		default:
			logger.Warn("Redis not available, rules stay in the database", "error", err)
		}
	}

	factory := NewRepositoryFactory(conn)
	c.UnitOfWork = database.NewUnitOfWork(conn)
	c.ClassRepo = factory.ClassRepository()
	c.BookingRepo = factory.BookingRepository()
	c.WaitlistRepo = factory.WaitlistRepository()
	c.OutboxRepo = factory.OutboxRepository()

	ruleRepo, err := factory.RuleRepository(cfg.RulesBackend, c.RedisClient)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.RuleStore = rules.NewStore(ruleRepo, logger)
	if err := c.RuleStore.Load(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to load business rules: %w", err)
	}

	c.Engine = services.NewBookingEngine(
		c.UnitOfWork,
		c.ClassRepo,
		c.BookingRepo,
		c.WaitlistRepo,
		c.OutboxRepo,
		c.RuleStore,
		services.WithLogger(logger),
		services.WithMetrics(c.Metrics),
		services.WithRetryPolicy(services.RetryPolicy{
			MaxAttempts:  cfg.BookingMaxAttempts,
			BaseDelay:    cfg.BookingRetryBaseDelay,
			MaxDelay:     cfg.BookingRetryMaxDelay,
			JitterFactor: cfg.BookingRetryJitter,
		}),
		services.WithConflictClassifier(database.IsSerializationFailure),
	)

	c.CreateClassHandler = commands.NewCreateClassHandler(c.ClassRepo, c.UnitOfWork)
	c.GetClassAvailabilityHandler = queries.NewGetClassAvailabilityHandler(c.ClassRepo, c.BookingRepo, c.WaitlistRepo)
	c.GetClassRosterHandler = queries.NewGetClassRosterHandler(c.GetClassAvailabilityHandler, c.BookingRepo, c.WaitlistRepo)
	c.ListClassesHandler = queries.NewListClassesHandler(c.ClassRepo, c.BookingRepo, c.WaitlistRepo)
	c.ListUserBookingsHandler = queries.NewListUserBookingsHandler(c.BookingRepo)
	c.ListWaitlistEntriesHandler = queries.NewListWaitlistEntriesHandler(c.WaitlistRepo)
	c.RuleUpdateSubscriber = subscribers.NewRuleUpdateSubscriber(c.RuleStore, logger, c.Metrics)

	return c, nil
}

// NewPublisher returns the broker publisher behind a circuit breaker, or an
// in-process bus delivering to the rule subscriber when no broker is set.
func (c *Container) NewPublisher() (eventbus.Publisher, error) {
	if !c.Config.HasBroker() {
		bus := eventbus.NewInProcessEventBus(c.Logger)
		bus.RegisterConsumer(c.RuleUpdateSubscriber)
		c.Logger.Info("no RabbitMQ configured, using in-process event bus")
		return bus, nil
	}

	publisher, err := eventbus.NewRabbitMQPublisher(eventbus.RabbitMQPublisherConfig{
		URL:            c.Config.RabbitMQURL,
		Exchange:       c.Config.RabbitMQExchange,
		ConfirmTimeout: c.Config.RabbitMQConfirmTimeout,
		Logger:         c.Logger,
	})
	if err != nil {
		return nil, err
	}
	return eventbus.NewBreakerPublisher(publisher, eventbus.BreakerConfig{
		Name:             "broker-publish",
		MaxRequests:      uint32(max(c.Config.PublisherBreakerMaxRequests, 1)),
		Interval:         c.Config.PublisherBreakerInterval,
		Timeout:          c.Config.PublisherBreakerTimeout,
		FailureThreshold: uint32(max(c.Config.PublisherBreakerThreshold, 1)),
	}, c.Logger), nil
}

// NewRuleConsumer connects a RabbitMQ consumer for rule notifications.
func (c *Container) NewRuleConsumer() (*eventbus.RabbitMQConsumer, error) {
	consumer, err := eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
		URL:                c.Config.RabbitMQURL,
		Exchange:           c.Config.RabbitMQExchange,
		QueueName:          c.Config.RabbitMQRulesQueue,
		DeadLetterExchange: c.Config.RabbitMQDeadLetters,
		Logger:             c.Logger,
	}, eventbus.NewConsumerRegistry(c.Logger))
	if err != nil {
		return nil, err
	}
	consumer.RegisterConsumer(c.RuleUpdateSubscriber)
	return consumer, nil
}

// HealthChecks returns probes for the database and, when connected, Redis.
// Redis is critical only when it backs the rule store.
func (c *Container) HealthChecks() *observability.HealthRegistry {
	health := observability.NewHealthRegistry()
	health.Register("database", true, c.DBConn.Ping)
	if c.RedisClient != nil {
		health.Register("redis", c.Config.RulesBackend == config.RulesBackendRedis, func(ctx context.Context) error {
			return c.RedisClient.Ping(ctx).Err()
		})
	}
	return health
}

// NewOutboxProcessor builds a processor publishing through publisher.
func (c *Container) NewOutboxProcessor(publisher eventbus.Publisher) *outbox.Processor {
	cfg := outbox.DefaultProcessorConfig()
	cfg.PollInterval = c.Config.OutboxPollInterval
	cfg.BatchSize = c.Config.OutboxBatchSize
	cfg.MaxRetries = c.Config.OutboxMaxRetries
	return outbox.NewProcessor(c.OutboxRepo, publisher, cfg, c.Logger)
}

// Close cleans up all resources.
func (c *Container) Close() {
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		} else {
			c.Logger.Info("Redis connection closed")
		}
	}

	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("error closing database connection", "error", err)
		} else {
			c.Logger.Info("database connection closed", "driver", c.DBDriver)
		}
	}
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
