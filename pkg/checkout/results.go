package checkout

import (
	"github.com/dmitrymomot/billingkit/pkg/payment"
)

// Action identifies which flow produced a Result.
type Action string

const (
	// ActionCheckout means a new checkout session was opened.
	ActionCheckout Action = "checkout"
	// ActionUpgraded means the billing-period upgrade was confirmed and
	// recorded in the ledger.
	ActionUpgraded Action = "upgraded"
	// ActionUpgradePending means the upgrade call succeeded but the charge
	// is not yet confirmed. A charge may exist; the caller must not blindly
	// retry, only refresh status later.
	ActionUpgradePending Action = "upgrade_pending"
)

// Result is the typed outcome of a checkout request.
type Result struct {
	Action Action

	// New-checkout fields.
	RequestID   string
	SessionID   string
	CheckoutURL string
	OrderID     string

	// Upgrade fields.
	RedirectURL    string
	Message        string
	SubscriptionID string
}

// resolution is the typed outcome of subscription resolution.
type resolution struct {
	subscriptionID string
	healed         bool // subscription id was recovered from the checkout session
}

// confirmation is the typed outcome of the confirmation poll.
type confirmation struct {
	confirmed bool
	sub       *payment.Subscription // last retrieved state, nil if every poll failed
}
