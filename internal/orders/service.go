// Package orders implements the cart and order lifecycle: staging priced
// items in a cart and assembling staged items into orders.
package orders

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jcmexdev/storefront/internal/store"
)

type Service struct {
	repo    store.OrderStore
	catalog store.CatalogStore
}

func NewService(repo store.OrderStore, catalog store.CatalogStore) *Service {
	return &Service{repo: repo, catalog: catalog}
}

// AddItem creates an order item for the product and stages it in the user's
// cart. The item's price is snapshotted from the product at this instant;
// later product price changes never touch it.
func (s *Service) AddItem(ctx context.Context, userID, productID int64, quantity int) (*store.OrderItem, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	item := &store.OrderItem{
		ProductID: product.ID,
		Quantity:  quantity,
		Price:     product.Price,
	}
	if err := s.repo.CreateOrderItem(ctx, userID, item); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "order item staged",
		"user_id", userID, "item_id", item.ID, "product_id", productID, "quantity", quantity)
	return item, nil
}

// CartItems returns the items currently staged for the user.
func (s *Service) CartItems(ctx context.Context, userID int64) ([]store.OrderItem, error) {
	return s.repo.ListCartItems(ctx, userID)
}

// Assemble converts the referenced staged items into a committed order with
// the given shipping address. All-or-nothing: one unknown item id fails the
// whole request and leaves every cart entry in place.
func (s *Service) Assemble(ctx context.Context, userID int64, shippingAddress string, itemIDs []int64) (*store.Order, error) {
	if strings.TrimSpace(shippingAddress) == "" {
		return nil, ErrEmptyShippingAddress
	}
	if len(itemIDs) == 0 {
		return nil, ErrNoItems
	}

	order, err := s.repo.AssembleOrder(ctx, userID, shippingAddress, itemIDs)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "order assembled",
		"user_id", userID, "order_id", order.ID, "items", len(order.Items))
	return order, nil
}

func (s *Service) Order(ctx context.Context, id int64) (*store.Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// Orders lists the orders belonging to the user.
func (s *Service) Orders(ctx context.Context, userID int64) ([]store.Order, error) {
	return s.repo.ListOrdersByUser(ctx, userID)
}

func (s *Service) UpdateShippingAddress(ctx context.Context, id int64, shippingAddress string) (*store.Order, error) {
	if strings.TrimSpace(shippingAddress) == "" {
		return nil, ErrEmptyShippingAddress
	}
	if err := s.repo.UpdateOrderShippingAddress(ctx, id, shippingAddress); err != nil {
		return nil, err
	}
	return s.repo.GetOrder(ctx, id)
}

func (s *Service) Item(ctx context.Context, id int64) (*store.OrderItem, error) {
	return s.repo.GetOrderItem(ctx, id)
}

// UpdateItemQuantity changes an item's quantity. The price snapshot is left
// untouched regardless of the product's current price.
func (s *Service) UpdateItemQuantity(ctx context.Context, id int64, quantity int) (*store.OrderItem, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if err := s.repo.UpdateOrderItemQuantity(ctx, id, quantity); err != nil {
		return nil, err
	}
	return s.repo.GetOrderItem(ctx, id)
}

// RemoveItem deletes an order item and its cart entry, if any.
func (s *Service) RemoveItem(ctx context.Context, id int64) error {
	return s.repo.DeleteOrderItem(ctx, id)
}
