package repositories

import (
	"context"

	"royalchoice/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// UpdateCart replaces the whole cart of the user.
	UpdateCart(ctx context.Context, userID string, cart []models.CartItem) error
}

// MigrationReport summarises one pass of the cart layout migration.
type MigrationReport struct {
	Scanned          int // users below the current schema version
	Upgraded         int // users stamped with the current schema version
	EntriesRewritten int // legacy bare-id cart entries turned into records
	EntriesDropped   int // unreadable cart entries removed
}

// CartMigrator brings stored carts to models.CurrentUserSchemaVersion.
type CartMigrator interface {
	MigrateCarts(ctx context.Context) (MigrationReport, error)
}
