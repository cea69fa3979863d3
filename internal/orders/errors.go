package orders

import "errors"

var (
	ErrInvalidQuantity      = errors.New("quantity must be a positive integer")
	ErrEmptyShippingAddress = errors.New("shipping address is required")
	ErrNoItems              = errors.New("order must reference at least one order item")
)
