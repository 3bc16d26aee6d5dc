package cache

import (
	"context"
	"errors"

	"royalchoice/internal/models"
)

var ErrCacheMiss = errors.New("cache miss")

// ProductCache stores the featured products feed.
type ProductCache interface {
	GetFeatured(ctx context.Context) ([]models.Product, error)
	SetFeatured(ctx context.Context, products []models.Product) error
	InvalidateFeatured(ctx context.Context) error
}

// NoopCache always misses. It is used when Redis is not configured.
type NoopCache struct{}

func (NoopCache) GetFeatured(context.Context) ([]models.Product, error) { return nil, ErrCacheMiss }

func (NoopCache) SetFeatured(context.Context, []models.Product) error { return nil }

func (NoopCache) InvalidateFeatured(context.Context) error { return nil }
