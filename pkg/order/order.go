package order

import (
	"fmt"
	"time"
)

// Status represents the lifecycle state of an order.
// Transitions are monotonic: pending moves to paid/failed/cancelled,
// paid moves only to refunded, and nothing ever moves back to pending.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusPaid || to == StatusFailed || to == StatusCancelled
	case StatusPaid:
		return to == StatusRefunded
	default:
		return false
	}
}

// Kind distinguishes what a ledger row records.
type Kind string

const (
	KindCheckout Kind = "checkout"
	KindUpgrade  Kind = "subscription_upgrade"
	KindRefund   Kind = "refund"
)

// Metadata keys written by the checkout and upgrade flows. The upgrade link
// is bidirectional: the new row points back via MetaUpgradeFromOrderID and
// the source row forward via MetaUpgradedOrderID.
const (
	MetaUpgradeFromOrderID = "upgrade_from_order_id"
	MetaUpgradedOrderID    = "upgraded_order_id"
	MetaUpgradeFromPeriod  = "upgrade_from_period"
	MetaUpgradeToPeriod    = "upgrade_to_period"
	MetaUpgradedAt         = "upgraded_at"
	MetaProviderTxnID      = "provider_transaction_id"
	MetaTargetPriceID      = "target_price_id"
	MetaDiscountCode       = "discount_code"
	MetaSubscriptionID     = "subscription_id"
)

// Order is the system-of-record row for one payment or upgrade attempt.
type Order struct {
	ID          string
	UserID      string
	ProductID   string
	ProductType string
	Kind        Kind
	Amount      string // decimal string with minor-unit precision, e.g. "12.00"
	Currency    string
	Status      Status
	Provider    string
	RequestID   string
	SessionID   string
	Metadata    map[string]string
	CreatedAt   time.Time
	PaidAt      *time.Time
}

// IsPaid reports whether the order represents a captured payment.
func (o *Order) IsPaid() bool {
	return o.Status == StatusPaid
}

// FormatAmount renders a minor-unit amount as a two-decimal string.
// Ledger amounts are stored as strings to avoid float drift across systems.
func FormatAmount(minorUnits int64) string {
	return fmt.Sprintf("%d.%02d", minorUnits/100, minorUnits%100)
}
