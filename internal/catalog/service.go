// Package catalog implements the read-only catalog query service.
package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/jcmexdev/storefront/internal/pkg/cache"
	"github.com/jcmexdev/storefront/internal/store"
)

// cacheTTL bounds how stale a cached product or the category list can get.
// Catalog rows are mutated externally, so a short TTL is the consistency model.
const cacheTTL = 5 * time.Minute

type Service struct {
	repo  store.CatalogStore
	cache cache.Cache // nil-safe: caching skipped if nil
}

// NewService builds the catalog service. cache may be nil — in that case every
// read goes straight to the store.
func NewService(repo store.CatalogStore, c cache.Cache) *Service {
	return &Service{repo: repo, cache: c}
}

// Products lists products matching the filter. Filtered listings are not
// cached: the query-string space is too wide for useful hit rates.
func (s *Service) Products(ctx context.Context, filter store.ProductFilter) ([]store.Product, error) {
	return s.repo.ListProducts(ctx, filter)
}

// Product returns a single product, read-through cached as JSON.
func (s *Service) Product(ctx context.Context, id int64) (*store.Product, error) {
	if s.cache != nil {
		key := s.cache.GenerateKey("product", formatID(id))
		if cached, err := s.cache.Get(ctx, key); err == nil && cached != "" {
			var p store.Product
			if err := json.Unmarshal([]byte(cached), &p); err == nil {
				return &p, nil
			}
		}
	}

	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	s.put(ctx, "product", formatID(id), p)
	return p, nil
}

// Categories returns all categories, read-through cached under a single key.
func (s *Service) Categories(ctx context.Context) ([]store.Category, error) {
	if s.cache != nil {
		key := s.cache.GenerateKey("categories", "all")
		if cached, err := s.cache.Get(ctx, key); err == nil && cached != "" {
			var categories []store.Category
			if err := json.Unmarshal([]byte(cached), &categories); err == nil {
				return categories, nil
			}
		}
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	s.put(ctx, "categories", "all", categories)
	return categories, nil
}

// put stores v in the cache, logging and moving on if redis is unhappy.
// A cache failure must never fail a catalog read.
func (s *Service) put(ctx context.Context, operation, key string, v any) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	fullKey := s.cache.GenerateKey(operation, key)
	if err := s.cache.Set(ctx, fullKey, payload, cacheTTL); err != nil {
		slog.DebugContext(ctx, "catalog cache write failed", "key", fullKey, "error", err)
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
