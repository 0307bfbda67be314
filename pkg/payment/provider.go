package payment

import (
	"context"
	"time"
)

// Provider defines the minimal interface for payment provider integrations.
// This abstraction allows support for different providers (Paddle, Stripe,
// Lemonsqueezy) while avoiding vendor lock-in. The provider handles all
// payment complexity through hosted checkouts, so the caller never touches
// card data.
//
// Implementations should use official provider SDKs and handle provider
// quirks internally (e.g., Paddle models a checkout as a draft transaction,
// others have a dedicated session object).
type Provider interface {
	// CreateCheckout opens a hosted checkout session for a single price.
	// Metadata is echoed back by the provider on the resulting objects and
	// is the only reliable way to correlate provider state with the ledger.
	CreateCheckout(ctx context.Context, params CheckoutParams) (*Checkout, error)

	// RetrieveCheckout fetches a previously created checkout session.
	// A completed subscription checkout carries the subscription reference.
	RetrieveCheckout(ctx context.Context, checkoutID string) (*Checkout, error)

	// ChangeSubscriptionPlan moves a subscription to the target price with
	// proration charged immediately. Returning an error guarantees no charge
	// was captured by the provider.
	ChangeSubscriptionPlan(ctx context.Context, subscriptionID, targetPriceID string) error

	// RetrieveSubscription fetches the current provider-side subscription
	// state, including its last transaction reference when available.
	RetrieveSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)

	// SearchTransactions lists a customer's transactions, newest first.
	// Pagination is provider-driven; callers are expected to bound their
	// own search effort.
	SearchTransactions(ctx context.Context, customerID string, page, perPage int) ([]Transaction, error)

	// CreateDiscount registers a single-use discount code restricted to one
	// provider price.
	CreateDiscount(ctx context.Context, params DiscountParams) error
}

// CheckoutParams contains data needed to create a checkout session.
type CheckoutParams struct {
	PriceID       string            // provider's price identifier
	RequestID     string            // caller-generated idempotency/request id
	CustomerEmail string            // optional billing email
	DiscountCode  string            // optional discount code to pre-apply
	SuccessURL    string            // redirect after successful payment
	Metadata      map[string]string // echoed back by the provider
}

// Checkout represents a hosted checkout session.
type Checkout struct {
	ID             string // provider's session identifier
	URL            string // hosted checkout URL
	SubscriptionID string // set once a subscription checkout completed
}

// Subscription is the provider-side subscription state needed for upgrade
// confirmation.
type Subscription struct {
	ID                string
	PriceID           string // price currently billed
	CustomerID        string
	LastTransactionID string
	LastTransaction   *Transaction // embedded when the provider returns it
}

// Transaction is a captured provider payment. Amounts are in the smallest
// currency unit; CreatedAt is a Unix epoch whose precision varies by
// provider (seconds or milliseconds).
type Transaction struct {
	ID         string
	Amount     int64
	AmountPaid int64
	Currency   string
	CreatedAt  int64
}

// DiscountParams describes a single-use fixed-amount discount.
type DiscountParams struct {
	Name           string
	Code           string
	Amount         int64 // smallest currency unit
	Currency       string
	ExpiresAt      time.Time
	AppliesToPrice string // provider price id the code is restricted to
}
