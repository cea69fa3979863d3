package store

import "context"

// CatalogStore is the port for catalog reads. Products and categories are
// mutated externally (seeding, back office); the HTTP surface only reads them.
type CatalogStore interface {
	ListCategories(ctx context.Context) ([]Category, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
}

// OrderStore is the port for the cart/order lifecycle.
type OrderStore interface {
	// CreateOrderItem persists a new staged item together with the cart entry
	// linking it to userID. One unit of work: either both rows exist or neither.
	CreateOrderItem(ctx context.Context, userID int64, item *OrderItem) error

	GetOrderItem(ctx context.Context, id int64) (*OrderItem, error)
	UpdateOrderItemQuantity(ctx context.Context, id int64, quantity int) error

	// DeleteOrderItem removes the item and any cart entry referencing it.
	DeleteOrderItem(ctx context.Context, id int64) error

	// ListCartItems returns the items staged for userID, in id order.
	ListCartItems(ctx context.Context, userID int64) ([]OrderItem, error)

	// AssembleOrder creates an order for userID and attaches every item in
	// itemIDs to it, deleting their cart entries. The whole batch is a single
	// transaction: an unknown item id rolls everything back and returns
	// ErrOrderItemNotFound.
	AssembleOrder(ctx context.Context, userID int64, shippingAddress string, itemIDs []int64) (*Order, error)

	GetOrder(ctx context.Context, id int64) (*Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]Order, error)
	UpdateOrderShippingAddress(ctx context.Context, id int64, shippingAddress string) error
}

// UserStore is the port for accounts and bearer tokens.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	SaveToken(ctx context.Context, token string, userID int64) error
	GetUserByToken(ctx context.Context, token string) (*User, error)
}
