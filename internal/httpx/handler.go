package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/storefront/internal/catalog"
	"github.com/jcmexdev/storefront/internal/httpx/middlewares"
	"github.com/jcmexdev/storefront/internal/orders"
	"github.com/jcmexdev/storefront/internal/store"
	"github.com/jcmexdev/storefront/internal/users"
)

// Handler handles incoming HTTP requests for the storefront domain.
type Handler struct {
	catalog *catalog.Service
	orders  *orders.Service
	users   *users.Service
}

func NewHandler(c *catalog.Service, o *orders.Service, u *users.Service) *Handler {
	return &Handler{catalog: c, orders: o, users: u}
}

// ---- catalog ----

// ListProducts serves GET /api/products with the filter query-string surface:
// name__contains, price, price__gte, price__lte, category,
// model_number__contains, other__contains, search, ordering=price|-price.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := productFilterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}

	products, err := h.catalog.Products(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	out := make([]ProductResponse, len(products))
	for i := range products {
		out[i] = mapProductToResponse(&products[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	product, err := h.catalog.Product(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProductToResponse(product))
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	out := make([]CategoryResponse, len(categories))
	for i, c := range categories {
		out[i] = CategoryResponse{ID: c.ID, Name: c.Name}
	}
	writeJSON(w, http.StatusOK, out)
}

// ---- users ----

func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	user, err := h.users.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, UserResponse{ID: user.ID, Username: user.Username})
}

func (h *Handler) CreateToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	token, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

// ---- cart / order items ----

// CreateOrderItem runs the order item factory: price is snapshotted from the
// product and the item lands in the caller's cart.
func (h *Handler) CreateOrderItem(w http.ResponseWriter, r *http.Request) {
	user, ok := middlewares.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	var req CreateOrderItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	item, err := h.orders.AddItem(r.Context(), user.ID, req.Product, req.Quantity)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapItemToResponse(item))
}

// ListCartItems returns the caller's staged items.
func (h *Handler) ListCartItems(w http.ResponseWriter, r *http.Request) {
	user, ok := middlewares.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	items, err := h.orders.CartItems(r.Context(), user.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapItemsToResponse(items))
}

func (h *Handler) GetOrderItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	item, err := h.orders.Item(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapItemToResponse(item))
}

func (h *Handler) UpdateOrderItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdateOrderItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	item, err := h.orders.UpdateItemQuantity(r.Context(), id, req.Quantity)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapItemToResponse(item))
}

func (h *Handler) DeleteOrderItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.orders.RemoveItem(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- orders ----

// CreateOrder runs order assembly for the caller.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := middlewares.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	order, err := h.orders.Assemble(r.Context(), user.ID, req.ShippingAddress, req.OrderItems)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapOrderToResponse(order))
}

// ListOrders returns only the caller's orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := middlewares.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	list, err := h.orders.Orders(r.Context(), user.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	out := make([]OrderResponse, len(list))
	for i := range list {
		out[i] = mapOrderToResponse(&list[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	order, err := h.orders.Order(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderToResponse(order))
}

func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	order, err := h.orders.UpdateShippingAddress(r.Context(), id, req.ShippingAddress)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderToResponse(order))
}

// ---- helpers ----

// respondError maps domain errors to HTTP statuses in one place.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrProductNotFound),
		errors.Is(err, store.ErrOrderNotFound),
		errors.Is(err, store.ErrOrderItemNotFound),
		errors.Is(err, store.ErrCategoryNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, orders.ErrInvalidQuantity),
		errors.Is(err, orders.ErrEmptyShippingAddress),
		errors.Is(err, orders.ErrNoItems),
		errors.Is(err, users.ErrMissingCredentials),
		errors.Is(err, store.ErrUsernameTaken):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, users.ErrInvalidCredentials),
		errors.Is(err, store.ErrTokenNotFound):
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	default:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}

// pathID parses the {id} URL parameter, writing a 400 on malformed input.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be an integer")
		return 0, false
	}
	return id, true
}

func productFilterFromQuery(r *http.Request) (store.ProductFilter, error) {
	q := r.URL.Query()
	var filter store.ProductFilter

	filter.NameContains = q.Get("name__contains")
	filter.ModelNumberContains = q.Get("model_number__contains")
	filter.OtherContains = q.Get("other__contains")
	filter.Search = q.Get("search")

	var err error
	if filter.Price, err = floatParam(q.Get("price"), "price"); err != nil {
		return filter, err
	}
	if filter.PriceGTE, err = floatParam(q.Get("price__gte"), "price__gte"); err != nil {
		return filter, err
	}
	if filter.PriceLTE, err = floatParam(q.Get("price__lte"), "price__lte"); err != nil {
		return filter, err
	}

	if raw := q.Get("category"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, errors.New("category must be an integer id")
		}
		filter.CategoryID = &id
	}

	switch ordering := q.Get("ordering"); ordering {
	case "":
		filter.Ordering = store.OrderingNone
	case string(store.OrderingPriceAsc):
		filter.Ordering = store.OrderingPriceAsc
	case string(store.OrderingPriceDesc):
		filter.Ordering = store.OrderingPriceDesc
	default:
		return filter, errors.New("ordering must be price or -price")
	}

	return filter, nil
}

func floatParam(raw, name string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.New(name + " must be a number")
	}
	return &v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
