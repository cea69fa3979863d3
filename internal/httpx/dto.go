package httpx

import (
	"time"

	"github.com/jcmexdev/storefront/internal/store"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type CategoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type ProductResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Category    int64   `json:"category"`
	ModelNumber string  `json:"model_number"`
	Other       string  `json:"other"`
}

type CreateOrderItemRequest struct {
	Product  int64 `json:"product"`
	Quantity int   `json:"quantity"`
}

type UpdateOrderItemRequest struct {
	Quantity int `json:"quantity"`
}

// OrderItemResponse.Order is null while the item is staged in a cart.
type OrderItemResponse struct {
	ID       int64   `json:"id"`
	Product  int64   `json:"product"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Order    *int64  `json:"order"`
}

type CreateOrderRequest struct {
	ShippingAddress string  `json:"shipping_address"`
	OrderItems      []int64 `json:"order_item"`
}

type UpdateOrderRequest struct {
	ShippingAddress string `json:"shipping_address"`
}

type OrderResponse struct {
	ID              int64               `json:"id"`
	User            int64               `json:"user"`
	ShippingAddress string              `json:"shipping_address"`
	Total           float64             `json:"total"`
	Items           []OrderItemResponse `json:"items"`
	CreatedAt       string              `json:"created_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func mapProductToResponse(p *store.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Category:    p.CategoryID,
		ModelNumber: p.ModelNumber,
		Other:       p.Other,
	}
}

func mapItemToResponse(it *store.OrderItem) OrderItemResponse {
	return OrderItemResponse{
		ID:       it.ID,
		Product:  it.ProductID,
		Quantity: it.Quantity,
		Price:    it.Price,
		Order:    it.OrderID,
	}
}

func mapItemsToResponse(items []store.OrderItem) []OrderItemResponse {
	out := make([]OrderItemResponse, len(items))
	for i := range items {
		out[i] = mapItemToResponse(&items[i])
	}
	return out
}

func mapOrderToResponse(o *store.Order) OrderResponse {
	return OrderResponse{
		ID:              o.ID,
		User:            o.UserID,
		ShippingAddress: o.ShippingAddress,
		Total:           o.Total(),
		Items:           mapItemsToResponse(o.Items),
		CreatedAt:       o.CreatedAt.UTC().Format(time.RFC3339),
	}
}
