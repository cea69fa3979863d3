package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/storefront/internal/catalog"
	"github.com/jcmexdev/storefront/internal/orders"
	"github.com/jcmexdev/storefront/internal/store"
	"github.com/jcmexdev/storefront/internal/store/sqlite"
	"github.com/jcmexdev/storefront/internal/users"
)

type apiFixture struct {
	server *httptest.Server
	repo   *sqlite.Repository
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()

	repo, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	require.NoError(t, repo.RunMigrations(filepath.Join("..", "store", "sqlite", "migrations")))

	catalogService := catalog.NewService(repo, nil)
	orderService := orders.NewService(repo, repo)
	userService := users.NewService(repo)

	handler := NewHandler(catalogService, orderService, userService)
	server := httptest.NewServer(NewRouter(handler, userService))
	t.Cleanup(server.Close)

	return &apiFixture{server: server, repo: repo}
}

func (f *apiFixture) seedProduct(t *testing.T, name string, price float64) *store.Product {
	t.Helper()
	ctx := context.Background()

	category := &store.Category{Name: name + " category"}
	require.NoError(t, f.repo.CreateCategory(ctx, category))
	product := &store.Product{Name: name, Price: price, CategoryID: category.ID}
	require.NoError(t, f.repo.CreateProduct(ctx, product))
	return product
}

// do sends a JSON request and decodes the JSON response body into out (when
// out is non-nil), returning the status code.
func (f *apiFixture) do(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// register creates an account and logs in, returning the bearer token.
func (f *apiFixture) register(t *testing.T, username string) string {
	t.Helper()

	status := f.do(t, http.MethodPost, "/api/users", "", RegisterRequest{Username: username, Password: "s3cret"}, nil)
	require.Equal(t, http.StatusCreated, status)

	var tok TokenResponse
	status = f.do(t, http.MethodPost, "/api/token", "", TokenRequest{Username: username, Password: "s3cret"}, &tok)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, tok.Token)
	return tok.Token
}

func TestPublicCatalogEndpoints(t *testing.T) {
	f := setupAPI(t)
	product := f.seedProduct(t, "Earbuds", 19.99)

	var products []ProductResponse
	status := f.do(t, http.MethodGet, "/api/products", "", nil, &products)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, products, 1)
	assert.Equal(t, product.ID, products[0].ID)
	assert.Equal(t, 19.99, products[0].Price)

	var single ProductResponse
	status = f.do(t, http.MethodGet, fmt.Sprintf("/api/products/%d", product.ID), "", nil, &single)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Earbuds", single.Name)

	var categories []CategoryResponse
	status = f.do(t, http.MethodGet, "/api/categories", "", nil, &categories)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, categories, 1)
}

func TestGetProduct_Errors(t *testing.T) {
	f := setupAPI(t)

	var errResp ErrorResponse
	status := f.do(t, http.MethodGet, "/api/products/999", "", nil, &errResp)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", errResp.Error)

	status = f.do(t, http.MethodGet, "/api/products/abc", "", nil, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_id", errResp.Error)
}

func TestListProducts_Filters(t *testing.T) {
	f := setupAPI(t)
	cheap := f.seedProduct(t, "Earbuds", 19.99)
	dear := f.seedProduct(t, "Speaker", 89.00)

	var products []ProductResponse
	status := f.do(t, http.MethodGet, "/api/products?price__gte=50", "", nil, &products)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, products, 1)
	assert.Equal(t, dear.ID, products[0].ID)

	status = f.do(t, http.MethodGet, "/api/products?name__contains=Ear", "", nil, &products)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, products, 1)
	assert.Equal(t, cheap.ID, products[0].ID)

	status = f.do(t, http.MethodGet, "/api/products?ordering=-price", "", nil, &products)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, products, 2)
	assert.Equal(t, dear.ID, products[0].ID)

	var errResp ErrorResponse
	status = f.do(t, http.MethodGet, "/api/products?price__gte=abc", "", nil, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_filter", errResp.Error)

	status = f.do(t, http.MethodGet, "/api/products?ordering=name", "", nil, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_filter", errResp.Error)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := setupAPI(t)

	for _, path := range []string{"/api/orders", "/api/order-items"} {
		var errResp ErrorResponse
		status := f.do(t, http.MethodGet, path, "", nil, &errResp)
		assert.Equal(t, http.StatusUnauthorized, status, path)
		assert.Equal(t, "unauthorized", errResp.Error, path)
	}

	var errResp ErrorResponse
	status := f.do(t, http.MethodGet, "/api/orders", "bogus-token", nil, &errResp)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRegister_Duplicate(t *testing.T) {
	f := setupAPI(t)
	f.register(t, "alice")

	var errResp ErrorResponse
	status := f.do(t, http.MethodPost, "/api/users", "", RegisterRequest{Username: "alice", Password: "x"}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", errResp.Error)
}

func TestCreateToken_WrongPassword(t *testing.T) {
	f := setupAPI(t)
	f.register(t, "alice")

	var errResp ErrorResponse
	status := f.do(t, http.MethodPost, "/api/token", "", TokenRequest{Username: "alice", Password: "wrong"}, &errResp)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", errResp.Error)
}

func TestOrderItemLifecycle(t *testing.T) {
	f := setupAPI(t)
	token := f.register(t, "alice")
	product := f.seedProduct(t, "Earbuds", 19.99)

	var item OrderItemResponse
	status := f.do(t, http.MethodPost, "/api/order-items", token,
		CreateOrderItemRequest{Product: product.ID, Quantity: 2}, &item)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, product.ID, item.Product)
	assert.Equal(t, 19.99, item.Price)
	assert.Nil(t, item.Order)

	var cart []OrderItemResponse
	status = f.do(t, http.MethodGet, "/api/order-items", token, nil, &cart)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, cart, 1)

	var updated OrderItemResponse
	status = f.do(t, http.MethodPut, fmt.Sprintf("/api/order-items/%d", item.ID), token,
		UpdateOrderItemRequest{Quantity: 5}, &updated)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 5, updated.Quantity)
	assert.Equal(t, 19.99, updated.Price)

	status = f.do(t, http.MethodDelete, fmt.Sprintf("/api/order-items/%d", item.ID), token, nil, nil)
	require.Equal(t, http.StatusNoContent, status)

	status = f.do(t, http.MethodGet, "/api/order-items", token, nil, &cart)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, cart)
}

func TestCreateOrderItem_Validation(t *testing.T) {
	f := setupAPI(t)
	token := f.register(t, "alice")
	product := f.seedProduct(t, "Earbuds", 19.99)

	var errResp ErrorResponse
	status := f.do(t, http.MethodPost, "/api/order-items", token,
		CreateOrderItemRequest{Product: product.ID, Quantity: 0}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", errResp.Error)

	status = f.do(t, http.MethodPost, "/api/order-items", token,
		CreateOrderItemRequest{Product: 999, Quantity: 1}, &errResp)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", errResp.Error)
}

func TestOrderLifecycle(t *testing.T) {
	f := setupAPI(t)
	token := f.register(t, "alice")
	product := f.seedProduct(t, "Earbuds", 19.99)

	var i1, i2 OrderItemResponse
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/order-items", token,
		CreateOrderItemRequest{Product: product.ID, Quantity: 1}, &i1))
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/order-items", token,
		CreateOrderItemRequest{Product: product.ID, Quantity: 3}, &i2))

	var order OrderResponse
	status := f.do(t, http.MethodPost, "/api/orders", token,
		CreateOrderRequest{ShippingAddress: "12 Main St", OrderItems: []int64{i1.ID, i2.ID}}, &order)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "12 Main St", order.ShippingAddress)
	assert.Len(t, order.Items, 2)
	assert.InDelta(t, 4*19.99, order.Total, 1e-9)
	assert.NotEmpty(t, order.CreatedAt)

	// Assembled items are no longer in the cart.
	var cart []OrderItemResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/order-items", token, nil, &cart))
	assert.Empty(t, cart)

	var list []OrderResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/orders", token, nil, &list))
	require.Len(t, list, 1)
	assert.Equal(t, order.ID, list[0].ID)

	var updated OrderResponse
	status = f.do(t, http.MethodPut, fmt.Sprintf("/api/orders/%d", order.ID), token,
		UpdateOrderRequest{ShippingAddress: "99 Oak Ave"}, &updated)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "99 Oak Ave", updated.ShippingAddress)
}

func TestCreateOrder_UnknownItemKeepsCartIntact(t *testing.T) {
	f := setupAPI(t)
	token := f.register(t, "alice")
	product := f.seedProduct(t, "Earbuds", 19.99)

	var item OrderItemResponse
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/order-items", token,
		CreateOrderItemRequest{Product: product.ID, Quantity: 1}, &item))

	var errResp ErrorResponse
	status := f.do(t, http.MethodPost, "/api/orders", token,
		CreateOrderRequest{ShippingAddress: "12 Main St", OrderItems: []int64{item.ID, 999}}, &errResp)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", errResp.Error)

	var cart []OrderItemResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/order-items", token, nil, &cart))
	assert.Len(t, cart, 1)
}

func TestCreateOrder_Validation(t *testing.T) {
	f := setupAPI(t)
	token := f.register(t, "alice")
	product := f.seedProduct(t, "Earbuds", 19.99)

	var item OrderItemResponse
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/order-items", token,
		CreateOrderItemRequest{Product: product.ID, Quantity: 1}, &item))

	var errResp ErrorResponse
	status := f.do(t, http.MethodPost, "/api/orders", token,
		CreateOrderRequest{ShippingAddress: "  ", OrderItems: []int64{item.ID}}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", errResp.Error)

	status = f.do(t, http.MethodPost, "/api/orders", token,
		CreateOrderRequest{ShippingAddress: "12 Main St"}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", errResp.Error)
}

func TestCartIsolationBetweenUsers(t *testing.T) {
	f := setupAPI(t)
	aliceToken := f.register(t, "alice")
	bobToken := f.register(t, "bob")
	product := f.seedProduct(t, "Earbuds", 19.99)

	var item OrderItemResponse
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/order-items", aliceToken,
		CreateOrderItemRequest{Product: product.ID, Quantity: 1}, &item))

	var cart []OrderItemResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/order-items", bobToken, nil, &cart))
	assert.Empty(t, cart)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/order-items", aliceToken, nil, &cart))
	assert.Len(t, cart, 1)
}
