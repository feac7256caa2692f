package service

import "errors"

// Sentinel errors; callers match with errors.Is and the HTTP layer maps
// them onto response codes. Details are attached via fmt.Errorf("%w: ...").
var (
	ErrValidation           = errors.New("validation")             // 400
	ErrNotFound             = errors.New("not found")              // 404
	ErrForbidden            = errors.New("forbidden")              // 403
	ErrEmptyCart            = errors.New("cart is empty")          // 400
	ErrInvalidPaymentMethod = errors.New("invalid payment method") // 400
	ErrInsufficientStock    = errors.New("not enough stock")       // 400
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrAmountMismatch       = errors.New("amount paid does not match order total")
)
