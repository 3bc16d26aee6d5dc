package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"royalchoice/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.SchemaVersion == 0 {
		user.SchemaVersion = models.CurrentUserSchemaVersion
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("email %s: %w", user.Email, ErrEmailTaken)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByEmail retrieves a user and its cart by email.
func (r *GORMUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

// GetByID retrieves a user and its cart by ID.
func (r *GORMUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *GORMUserRepository) first(ctx context.Context, query string, arg string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("UserCart", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&user, query, arg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", arg, ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to get user %s: %w", arg, err)
	}
	return &user, nil
}

// UpdateCart replaces the cart rows of a user inside one transaction.
func (r *GORMUserRepository) UpdateCart(ctx context.Context, userID string, cart []models.CartItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", userID).Update("updated_at", time.Now())
		if res.Error != nil {
			return fmt.Errorf("failed to update cart: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("user with ID %s: %w", userID, ErrUserNotFound)
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		if len(cart) == 0 {
			return nil
		}
		rows := make([]models.CartItem, len(cart))
		for i, item := range cart {
			rows[i] = models.CartItem{UserID: userID, ProductID: item.ProductID, Quantity: item.Quantity}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to store cart: %w", err)
		}
		return nil
	})
}

// GORMCartMigrator stamps users with the current schema version. Relational
// carts are normalised rows, so no legacy entries exist to rewrite.
type GORMCartMigrator struct {
	db *gorm.DB
}

// NewGORMCartMigrator creates a new instance of GORMCartMigrator.
func NewGORMCartMigrator(db *gorm.DB) *GORMCartMigrator {
	return &GORMCartMigrator{db: db}
}

// MigrateCarts implements CartMigrator.
func (m *GORMCartMigrator) MigrateCarts(ctx context.Context) (MigrationReport, error) {
	var report MigrationReport
	res := m.db.WithContext(ctx).Model(&models.User{}).
		Where("schema_version < ?", models.CurrentUserSchemaVersion).
		Update("schema_version", models.CurrentUserSchemaVersion)
	if res.Error != nil {
		return report, fmt.Errorf("failed to stamp user schema version: %w", res.Error)
	}
	report.Scanned = int(res.RowsAffected)
	report.Upgraded = int(res.RowsAffected)
	return report, nil
}
