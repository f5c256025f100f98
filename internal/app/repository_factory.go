package app

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/classbook/internal/booking/domain"
	"github.com/felixgeelhaar/classbook/internal/booking/infrastructure/persistence"
	"github.com/felixgeelhaar/classbook/internal/booking/infrastructure/rules"
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/classbook/pkg/config"
)

// RepositoryFactory creates repositories over one connection. The booking
// repositories write portable SQL, so only the rule backend varies.
type RepositoryFactory struct {
	conn   database.Connection
	driver database.Driver
}

// NewRepositoryFactory creates a new repository factory.
func NewRepositoryFactory(conn database.Connection) *RepositoryFactory {
	return &RepositoryFactory{
		conn:   conn,
		driver: conn.Driver(),
	}
}

// ClassRepository creates the class repository.
func (f *RepositoryFactory) ClassRepository() *persistence.ClassRepository {
	return persistence.NewClassRepository(f.conn)
}

// BookingRepository creates the booking repository.
func (f *RepositoryFactory) BookingRepository() *persistence.BookingRepository {
	return persistence.NewBookingRepository(f.conn)
}

// WaitlistRepository creates the waitlist repository.
func (f *RepositoryFactory) WaitlistRepository() *persistence.WaitlistRepository {
	return persistence.NewWaitlistRepository(f.conn)
}

// OutboxRepository creates the outbox repository.
func (f *RepositoryFactory) OutboxRepository() *outbox.SQLRepository {
	return outbox.NewSQLRepository(f.conn)
}

// RuleRepository creates the rule repository for the configured backend.
func (f *RepositoryFactory) RuleRepository(backend string, client *redis.Client) (domain.RuleRepository, error) {
	switch backend {
	case "", config.RulesBackendSQL:
		return persistence.NewRuleRepository(f.conn), nil

	case config.RulesBackendRedis:
		if client == nil {
			return nil, fmt.Errorf("rules backend %q needs a Redis connection", backend)
		}
		return rules.NewRedisRepository(client, rules.DefaultRedisKey), nil

	default:
		return nil, fmt.Errorf("unsupported rules backend: %s", backend)
	}
}

// Driver returns the database driver type.
func (f *RepositoryFactory) Driver() database.Driver {
	return f.driver
}

// Connection returns the underlying database connection.
func (f *RepositoryFactory) Connection() database.Connection {
	return f.conn
}
