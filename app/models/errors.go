package models

import "errors"

// Domain errors shared by services and repositories. Handlers map these to
// HTTP statuses; anything else is treated as a server-side failure.
var (
	// ErrFoodNotFound means a line's foodId no longer resolves in the
	// catalog. The whole mutation aborts and the stored cart is unchanged.
	ErrFoodNotFound = errors.New("food not found in catalog")

	// ErrLineNotFound means the referenced lineId is not in the user's cart.
	ErrLineNotFound = errors.New("cart line not found")

	// ErrCartNotFound means an operation that requires an existing cart was
	// called for a user with no cart document.
	ErrCartNotFound = errors.New("cart not found")

	// ErrVersionConflict means a concurrent writer updated the cart between
	// this mutation's read and write. The service retries the whole
	// read-modify-write before surfacing it.
	ErrVersionConflict = errors.New("cart modified concurrently")
)
