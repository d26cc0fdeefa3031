package catalog

import "errors"

// Domain-specific errors for catalog operations.
var (
	// ErrMalformedInventory is returned by Build when a record lacks an id.
	// The previous snapshot stays published.
	ErrMalformedInventory = errors.New("catalog: malformed inventory")

	// ErrSourceUnavailable is returned when an inventory source cannot be read.
	ErrSourceUnavailable = errors.New("catalog: inventory source unavailable")

	// ErrNoSnapshot is returned by a cache that has never stored an inventory.
	ErrNoSnapshot = errors.New("catalog: no cached snapshot")
)
