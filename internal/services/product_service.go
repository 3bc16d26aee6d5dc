package services

import (
	"context"
	"errors"

	"royalchoice/internal/cache"
	"royalchoice/internal/models"
	"royalchoice/internal/repositories"

	"go.uber.org/zap"
)

// FeaturedProductsLimit caps the public featured feed.
const FeaturedProductsLimit = 12

// ProductService handles business logic related to products.
type ProductService struct {
	repo  repositories.ProductRepository
	cache cache.ProductCache
	log   *zap.Logger
}

// NewProductService creates a new ProductService. A nil cache disables caching.
func NewProductService(repo repositories.ProductRepository, productCache cache.ProductCache, log *zap.Logger) *ProductService {
	if productCache == nil {
		productCache = cache.NoopCache{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductService{
		repo:  repo,
		cache: productCache,
		log:   log,
	}
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.GetAll(ctx)
}

// GetFeaturedProducts returns up to FeaturedProductsLimit products, or
// ErrNoFeaturedProducts when the catalog is empty.
func (s *ProductService) GetFeaturedProducts(ctx context.Context) ([]models.Product, error) {
	cached, err := s.cache.GetFeatured(ctx)
	switch {
	case err == nil && len(cached) > 0:
		return cached, nil
	case err != nil && !errors.Is(err, cache.ErrCacheMiss):
		s.log.Warn("featured cache read failed", zap.Error(err))
	}

	products, err := s.repo.GetLimited(ctx, FeaturedProductsLimit)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrNoFeaturedProducts
	}

	if err := s.cache.SetFeatured(ctx, products); err != nil {
		s.log.Warn("featured cache write failed", zap.Error(err))
	}
	return products, nil
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateProduct stores a new product. Field validation happens at the edge.
func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) error {
	product.ID = ""
	if err := s.repo.Create(ctx, product); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// UpdateProduct overwrites the seven mutable fields of product id and returns the result.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, fields models.Product) (*models.Product, error) {
	product := &models.Product{ID: id}
	product.ApplyFields(fields)
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return product, nil
}

// DeleteProduct deletes a product by its ID. Carts keep their references.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *ProductService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateFeatured(ctx); err != nil {
		s.log.Warn("featured cache invalidation failed", zap.Error(err))
	}
}
