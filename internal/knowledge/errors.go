package knowledge

import "errors"

var (
	// ErrNotFound is returned when a knowledge document does not exist at its source.
	ErrNotFound = errors.New("knowledge: document not found")
	// ErrMissingBusinessName is returned when a business profile has no name.
	ErrMissingBusinessName = errors.New("knowledge: businessName is required")
)
