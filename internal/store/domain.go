// Package store defines the domain types and repository ports shared by the
// storefront services. Implementations live in subpackages (sqlite).
package store

import "time"

type Category struct {
	ID   int64
	Name string
}

type Product struct {
	ID          int64
	Name        string
	Price       float64
	CategoryID  int64
	ModelNumber string
	Other       string
}

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// OrderItem is a priced line item. Price is a snapshot of the product price
// at creation time; later product price changes never alter it.
//
// OrderID is nil exactly while the item is staged in a cart. Once an order
// is assembled from it, OrderID is set and the cart entry is gone.
type OrderItem struct {
	ID        int64
	ProductID int64
	Quantity  int
	Price     float64
	OrderID   *int64
}

// Staged reports whether the item still belongs to a cart.
func (i OrderItem) Staged() bool {
	return i.OrderID == nil
}

func (i OrderItem) Subtotal() float64 {
	return float64(i.Quantity) * i.Price
}

type Order struct {
	ID              int64
	UserID          int64
	ShippingAddress string
	Items           []OrderItem
	CreatedAt       time.Time
}

func (o Order) Total() float64 {
	var total float64
	for _, it := range o.Items {
		total += it.Subtotal()
	}
	return total
}

// ProductOrdering selects the sort direction for catalog listings.
type ProductOrdering string

const (
	OrderingNone      ProductOrdering = ""
	OrderingPriceAsc  ProductOrdering = "price"
	OrderingPriceDesc ProductOrdering = "-price"
)

// ProductFilter mirrors the catalog query-string surface. Zero values mean
// "not filtered". Pointer fields distinguish "absent" from a zero value.
type ProductFilter struct {
	NameContains        string
	Price               *float64
	PriceGTE            *float64
	PriceLTE            *float64
	CategoryID          *int64
	ModelNumberContains string
	OtherContains       string

	// Search matches a substring against name, category name, model number
	// and the free-text other field.
	Search string

	Ordering ProductOrdering
}
