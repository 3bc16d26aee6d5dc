package repositories

import (
	"context"

	"royalchoice/internal/models"
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	// GetLimited returns at most limit products in creation order.
	GetLimited(ctx context.Context, limit int) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	// GetByIDs returns the products that exist among ids, in no particular order.
	GetByIDs(ctx context.Context, ids []string) ([]models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	// Update overwrites the mutable fields of the product with product.ID and
	// refreshes product with the stored state.
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
}
