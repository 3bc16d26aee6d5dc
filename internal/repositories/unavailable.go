package repositories

import (
	"context"
	"fmt"

	"royalchoice/internal/models"
)

// Unavailable repositories back a process that started without its database.
// Every call fails with ErrStorageUnavailable.

type UnavailableProductRepository struct{ cause error }

type UnavailableUserRepository struct{ cause error }

type UnavailableOrderRepository struct{ cause error }

func NewUnavailableProductRepository(cause error) *UnavailableProductRepository {
	return &UnavailableProductRepository{cause: cause}
}

func NewUnavailableUserRepository(cause error) *UnavailableUserRepository {
	return &UnavailableUserRepository{cause: cause}
}

func NewUnavailableOrderRepository(cause error) *UnavailableOrderRepository {
	return &UnavailableOrderRepository{cause: cause}
}

func unavailable(cause error) error {
	if cause == nil {
		return ErrStorageUnavailable
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, cause)
}

func (r *UnavailableProductRepository) GetAll(context.Context) ([]models.Product, error) {
	return nil, unavailable(r.cause)
}

func (r *UnavailableProductRepository) GetLimited(context.Context, int) ([]models.Product, error) {
	return nil, unavailable(r.cause)
}

func (r *UnavailableProductRepository) GetByID(context.Context, string) (*models.Product, error) {
	return nil, unavailable(r.cause)
}

func (r *UnavailableProductRepository) GetByIDs(context.Context, []string) ([]models.Product, error) {
	return nil, unavailable(r.cause)
}

func (r *UnavailableProductRepository) Create(context.Context, *models.Product) error {
	return unavailable(r.cause)
}

func (r *UnavailableProductRepository) Update(context.Context, *models.Product) error {
	return unavailable(r.cause)
}

func (r *UnavailableProductRepository) Delete(context.Context, string) error {
	return unavailable(r.cause)
}

func (r *UnavailableUserRepository) Create(context.Context, *models.User) error {
	return unavailable(r.cause)
}

func (r *UnavailableUserRepository) GetByEmail(context.Context, string) (*models.User, error) {
	return nil, unavailable(r.cause)
}

func (r *UnavailableUserRepository) GetByID(context.Context, string) (*models.User, error) {
	return nil, unavailable(r.cause)
}

func (r *UnavailableUserRepository) UpdateCart(context.Context, string, []models.CartItem) error {
	return unavailable(r.cause)
}

func (r *UnavailableUserRepository) MigrateCarts(context.Context) (MigrationReport, error) {
	return MigrationReport{}, unavailable(r.cause)
}

func (r *UnavailableOrderRepository) Create(context.Context, *models.Order) error {
	return unavailable(r.cause)
}

func (r *UnavailableOrderRepository) GetByID(context.Context, string) (*models.Order, error) {
	return nil, unavailable(r.cause)
}

func (r *UnavailableOrderRepository) GetByUser(context.Context, string) ([]models.Order, error) {
	return nil, unavailable(r.cause)
}
