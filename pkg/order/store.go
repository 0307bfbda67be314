package order

import "context"

// Store defines the interface for order ledger persistence.
// Orders are mutated only through these operations; rows are never deleted
// by the checkout engine.
type Store interface {
	// Create inserts a new order row.
	Create(ctx context.Context, o *Order) error

	// Get retrieves an order by ID.
	// Returns ErrOrderNotFound if no order exists.
	Get(ctx context.Context, orderID string) (*Order, error)

	// SetSession records the provider checkout session id on an order once
	// the provider returns it.
	SetSession(ctx context.Context, orderID, sessionID string) error

	// UpdateStatus moves an order to a new status, rejecting transitions
	// that violate the monotonic lifecycle, and merges extra metadata in
	// the same write.
	UpdateStatus(ctx context.Context, orderID string, status Status, extra map[string]string) error

	// MergeMetadata merges the partial map into the order's metadata,
	// overwriting existing keys and leaving others untouched.
	MergeMetadata(ctx context.Context, orderID string, partial map[string]string) error

	// CountPaidByUserProduct returns how many paid orders the user has for
	// the product. Used for intro-discount eligibility.
	CountPaidByUserProduct(ctx context.Context, userID, productID string) (int64, error)
}
