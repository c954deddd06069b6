package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"packbot/internal/cache"
	"packbot/internal/repo"
)

const listingTTL = 5 * time.Minute

// Service serves catalog traversal with a Redis cache in front of Postgres.
type Service struct {
	repo   repo.Store
	cache  *cache.Redis
	logger *slog.Logger
}

// New creates a catalog service. cache may be nil in tests.
func New(store repo.Store, redis *cache.Redis, logger *slog.Logger) *Service {
	return &Service{
		repo:   store,
		cache:  redis,
		logger: logger.With("component", "catalog"),
	}
}

// TopCategories lists root categories.
func (s *Service) TopCategories(ctx context.Context) ([]repo.Category, error) {
	key := "catalog:top"
	var cats []repo.Category
	if s.cachedGet(ctx, key, &cats) {
		return cats, nil
	}
	cats, err := s.repo.ListTopCategories(ctx)
	if err != nil {
		return nil, err
	}
	s.cachedSet(ctx, key, cats)
	return cats, nil
}

// SubCategories lists children of a category.
func (s *Service) SubCategories(ctx context.Context, parentID string) ([]repo.Category, error) {
	key := "catalog:sub:" + parentID
	var cats []repo.Category
	if s.cachedGet(ctx, key, &cats) {
		return cats, nil
	}
	cats, err := s.repo.ListSubCategories(ctx, parentID)
	if err != nil {
		return nil, err
	}
	s.cachedSet(ctx, key, cats)
	return cats, nil
}

// Products lists products of a category.
func (s *Service) Products(ctx context.Context, categoryID string) ([]repo.Product, error) {
	key := "catalog:products:" + categoryID
	var products []repo.Product
	if s.cachedGet(ctx, key, &products) {
		return products, nil
	}
	products, err := s.repo.ListProducts(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	s.cachedSet(ctx, key, products)
	return products, nil
}

// Product fetches one product by id.
func (s *Service) Product(ctx context.Context, id string) (*repo.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// InvalidateListings drops cached listings after an admin catalog change.
func (s *Service) InvalidateListings(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	// Keys are few and well known; per-category keys expire on their own TTL.
	if err := s.cache.Delete(ctx, "catalog:top"); err != nil {
		return fmt.Errorf("invalidate catalog cache: %w", err)
	}
	return nil
}

func (s *Service) cachedGet(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	ok, err := s.cache.GetJSON(ctx, key, dest)
	if err != nil {
		s.logger.Warn("catalog cache read failed", "key", key, "error", err)
		return false
	}
	return ok
}

func (s *Service) cachedSet(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, key, value, listingTTL); err != nil {
		s.logger.Warn("catalog cache write failed", "key", key, "error", err)
	}
}
