package domain

import "errors"

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrItemUnavailable   = errors.New("item not available")
	ErrTotalMismatch     = errors.New("order total does not match item prices")
	ErrMixedCafeterias   = errors.New("all items must belong to one cafeteria")
	ErrPhoneRequired     = errors.New("phone number is required for mpesa payments")
	ErrOrderNotPending   = errors.New("order is not awaiting payment")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrWrongCafeteria    = errors.New("order belongs to another cafeteria")
	ErrVersionConflict   = errors.New("order was modified concurrently")
	ErrInvoiceExists     = errors.New("invoice already exists for this order")
	ErrInvoiceNotFound   = errors.New("invoice not found")
	ErrRailUnavailable   = errors.New("payment provider unreachable")
	ErrPaymentDeclined   = errors.New("payment was declined")
)
