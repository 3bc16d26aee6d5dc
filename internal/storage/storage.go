// Package storage selects and opens the persistence backend and hands the
// resulting repositories to the rest of the application.
package storage

import (
	"context"
	"fmt"
	"time"

	"royalchoice/internal/repositories"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Supported drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Options configures Open.
type Options struct {
	Driver         string
	MongoURI       string
	MongoDatabase  string
	DSN            string
	ConnectTimeout time.Duration
	Logger         *zap.Logger
}

// Store bundles the repositories of one backend.
type Store struct {
	Driver    string
	Products  repositories.ProductRepository
	Users     repositories.UserRepository
	Orders    repositories.OrderRepository
	Migrator  repositories.CartMigrator
	Available bool

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// Open connects to the configured backend. The connection attempt is bounded
// by opts.ConnectTimeout.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}

	switch opts.Driver {
	case DriverMongo, "":
		if opts.MongoURI == "" {
			return nil, fmt.Errorf("MONGODB_CONNECTION_URL is not set")
		}
		db, err := repositories.ConnectMongoDB(ctx, opts.MongoURI, opts.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := repositories.EnsureMongoIndexes(ctx, db); err != nil {
			_ = db.Client().Disconnect(context.Background())
			return nil, err
		}
		users := repositories.NewMongoUserRepository(db, opts.Logger)
		return &Store{
			Driver:    DriverMongo,
			Products:  repositories.NewMongoProductRepository(db),
			Users:     users,
			Orders:    repositories.NewMongoOrderRepository(db),
			Migrator:  users,
			Available: true,
			ping:      func(ctx context.Context) error { return db.Client().Ping(ctx, nil) },
			close:     func(ctx context.Context) error { return db.Client().Disconnect(ctx) },
		}, nil

	case DriverPostgres, DriverSQLite:
		db, err := repositories.OpenGORM(opts.Driver, opts.DSN)
		if err != nil {
			return nil, err
		}
		return NewGORM(opts.Driver, db)

	case DriverMemory:
		return Memory(), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}

// NewGORM wraps an already migrated GORM database.
func NewGORM(driver string, db *gorm.DB) (*Store, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return &Store{
		Driver:    driver,
		Products:  repositories.NewGORMProductRepository(db),
		Users:     repositories.NewGORMUserRepository(db),
		Orders:    repositories.NewGORMOrderRepository(db),
		Migrator:  repositories.NewGORMCartMigrator(db),
		Available: true,
		ping:      sqlDB.PingContext,
		close:     func(context.Context) error { return sqlDB.Close() },
	}, nil
}

// Memory returns a process-local store.
func Memory() *Store {
	users := repositories.NewMockUserRepository()
	return &Store{
		Driver:    DriverMemory,
		Products:  repositories.NewMockProductRepository(),
		Users:     users,
		Orders:    repositories.NewMockOrderRepository(),
		Migrator:  users,
		Available: true,
	}
}

// Unavailable returns the degraded store used when the backend could not be reached.
func Unavailable(driver string, cause error) *Store {
	users := repositories.NewUnavailableUserRepository(cause)
	return &Store{
		Driver:   driver,
		Products: repositories.NewUnavailableProductRepository(cause),
		Users:    users,
		Orders:   repositories.NewUnavailableOrderRepository(cause),
		Migrator: users,
		ping: func(context.Context) error {
			return fmt.Errorf("%w: %v", repositories.ErrStorageUnavailable, cause)
		},
	}
}

// Ping checks the backend connection.
func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the backend connection.
func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}
