package order

import (
	"context"

	"github.com/dmitrymomot/billingkit/pkg/catalog"
)

// MembershipStatus is the resolved paid/free state for a user, derived from
// the ledger. It is never stored directly.
type MembershipStatus struct {
	IsPaid         bool
	Period         catalog.Period // zero value when not paid
	SubscriptionID string         // provider subscription id, may be empty
	SessionID      string         // provider checkout session id, may be empty
	OrderID        string         // ledger row backing the active membership
	HasPaidHistory bool
}

// MembershipResolver derives the current membership status for a user.
// Resolution lives outside this core (it combines the ledger with provider
// status refreshes), so the checkout engine only consumes the result.
type MembershipResolver interface {
	Resolve(ctx context.Context, userID string) (*MembershipStatus, error)
}
