package orders

import "errors"

// Error taxonomy. The HTTP layer maps these 1:1 onto status codes; the store
// and coordinator wrap them with context but never replace one with another.
var (
	// ErrValidation: malformed input, the caller fixes and resubmits.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound: unknown order or product id.
	ErrNotFound = errors.New("not found")

	// ErrConflict: a compare-and-set lost the race. Non-retryable as a win;
	// the caller must resynchronize its local state instead.
	ErrConflict = errors.New("conflict")

	// ErrForbidden: the actor is not authorized for the requested transition.
	ErrForbidden = errors.New("forbidden")
)
