package repositories

import (
	"context"

	"royalchoice/internal/models"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// GetByUser returns the orders of a user, newest first.
	GetByUser(ctx context.Context, userID string) ([]models.Order, error)
}
