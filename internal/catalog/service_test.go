package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/storefront/internal/pkg/cache"
	"github.com/jcmexdev/storefront/internal/store"
	"github.com/jcmexdev/storefront/internal/store/sqlite"
)

func setupRepo(t *testing.T) *sqlite.Repository {
	t.Helper()

	repo, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	require.NoError(t, repo.RunMigrations(filepath.Join("..", "store", "sqlite", "migrations")))
	return repo
}

func setupCache(t *testing.T) cache.Cache {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedisCacheWithClient(client, "storefront")
}

func seedProduct(t *testing.T, repo *sqlite.Repository) *store.Product {
	t.Helper()
	ctx := context.Background()

	category := &store.Category{Name: "Audio"}
	require.NoError(t, repo.CreateCategory(ctx, category))
	product := &store.Product{Name: "Earbuds", Price: 19.99, CategoryID: category.ID}
	require.NoError(t, repo.CreateProduct(ctx, product))
	return product
}

func TestProduct_CachedReadSurvivesDBChange(t *testing.T) {
	repo := setupRepo(t)
	svc := NewService(repo, setupCache(t))
	ctx := context.Background()
	product := seedProduct(t, repo)

	first, err := svc.Product(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 19.99, first.Price)

	// Within the TTL the cached copy wins over the updated row.
	require.NoError(t, repo.UpdateProductPrice(ctx, product.ID, 29.99))

	second, err := svc.Product(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 19.99, second.Price)
}

func TestProduct_NilCacheReadsThrough(t *testing.T) {
	repo := setupRepo(t)
	svc := NewService(repo, nil)
	ctx := context.Background()
	product := seedProduct(t, repo)

	first, err := svc.Product(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 19.99, first.Price)

	require.NoError(t, repo.UpdateProductPrice(ctx, product.ID, 29.99))

	second, err := svc.Product(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 29.99, second.Price)
}

func TestProduct_NotFound(t *testing.T) {
	repo := setupRepo(t)
	svc := NewService(repo, setupCache(t))

	_, err := svc.Product(context.Background(), 999)
	assert.ErrorIs(t, err, store.ErrProductNotFound)
}

func TestCategories_Cached(t *testing.T) {
	repo := setupRepo(t)
	svc := NewService(repo, setupCache(t))
	ctx := context.Background()

	require.NoError(t, repo.CreateCategory(ctx, &store.Category{Name: "Audio"}))

	first, err := svc.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// A category added after the first read is invisible until the TTL expires.
	require.NoError(t, repo.CreateCategory(ctx, &store.Category{Name: "Video"}))

	second, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, second, 1)
}

func TestProducts_FilterPassthrough(t *testing.T) {
	repo := setupRepo(t)
	svc := NewService(repo, setupCache(t))
	ctx := context.Background()
	seedProduct(t, repo)

	products, err := svc.Products(ctx, store.ProductFilter{NameContains: "Ear"})
	require.NoError(t, err)
	require.Len(t, products, 1)

	products, err = svc.Products(ctx, store.ProductFilter{NameContains: "Keyboard"})
	require.NoError(t, err)
	assert.Empty(t, products)
}
