package checkout

import "errors"

var (
	// ErrUnknownProduct is returned for product ids or pricing the catalog
	// does not know.
	ErrUnknownProduct = errors.New("unknown product")

	// ErrUnauthenticated is returned when no authenticated user is attached
	// to the request.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrAlreadyActive is returned when the user's membership is already
	// active at the requested billing period.
	ErrAlreadyActive = errors.New("membership already active at requested period")

	// ErrSubscriptionNotFound is returned when no provider subscription can
	// be resolved for a paid membership. No charge was attempted; the caller
	// should refresh the order status and retry.
	ErrSubscriptionNotFound = errors.New("subscription not found, refresh order status and retry")

	// ErrUpgradeRequestFailed is returned when the provider's plan-change
	// call itself failed. No charge was captured, so retrying is safe.
	ErrUpgradeRequestFailed = errors.New("upgrade request failed")

	// ErrUpgradeInFlight is returned when another upgrade for the same user
	// currently holds the advisory lock.
	ErrUpgradeInFlight = errors.New("another upgrade is already in flight")

	// ErrMembershipUnavailable is returned when the membership status could
	// not be resolved.
	ErrMembershipUnavailable = errors.New("failed to resolve membership status")
)
