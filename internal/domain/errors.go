package domain

import "errors"

// Sentinel errors for rejected operations. Every failed lifecycle operation
// leaves the entity unchanged; callers match with errors.Is and retry or
// abandon.
var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrAmountMismatch      = errors.New("payment amount does not match order total")
	ErrInvalidPaymentState = errors.New("invalid payment state")
	ErrInvalidPromo        = errors.New("invalid promo code")
)
