package services

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNoFeaturedProducts = errors.New("no featured products found")
	ErrEmailRequired      = errors.New("email is required")
	ErrEmailMismatch      = errors.New("email does not belong to the signed-in user")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrCartItemNotFound   = errors.New("product not in cart")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrPaymentsDisabled   = errors.New("payments are not configured")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
)
