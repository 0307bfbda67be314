package checkout

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/billingkit/pkg/catalog"
)

// Option configures a Service instance.
type Option func(*service)

// WithLogger sets the structured logger. Defaults to a discard logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithPollPolicy overrides the confirmation poll policy.
// Tests use this to run the poll with zero delay and an exact attempt count.
func WithPollPolicy(p PollPolicy) Option {
	return func(s *service) {
		if p.MaxAttempts > 0 {
			s.poll = p
		}
	}
}

// WithTransactionSearchLimit bounds the fallback transaction search.
// The search stays a deliberate single-page bounded effort; only the page
// size is tunable.
func WithTransactionSearchLimit(n int) Option {
	return func(s *service) {
		if n > 0 {
			s.searchLimit = n
		}
	}
}

// WithUpgradeLocker enables per-user serialization of upgrade requests.
// Without a locker, only the "already active at requested period" guard
// protects against duplicates.
func WithUpgradeLocker(l Locker) Option {
	return func(s *service) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithClock overrides the time source, for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(s *service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDGenerator overrides request/order id generation, for deterministic
// tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithDiscountAmount sets the intro discount value. Defaults to $2.00 USD.
func WithDiscountAmount(m catalog.Money) Option {
	return func(s *service) {
		if m.Amount > 0 && m.Currency != "" {
			s.discountAmount = m
		}
	}
}

// WithSuccessURL sets the post-payment redirect target.
func WithSuccessURL(u string) Option {
	return func(s *service) {
		if u != "" {
			s.successURL = u
		}
	}
}

// WithSubscriptionProduct names the product id treated as the recurring
// subscription plan. Membership guards and the upgrade flow apply only to
// it. When unset, every cataloged product is treated as subscription-capable.
func WithSubscriptionProduct(productID string) Option {
	return func(s *service) {
		s.subscriptionProduct = productID
	}
}

// WithProviderName sets the provider label written to ledger rows.
// Defaults to "paddle".
func WithProviderName(name string) Option {
	return func(s *service) {
		if name != "" {
			s.providerName = name
		}
	}
}
