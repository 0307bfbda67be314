package checkout

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/billingkit/pkg/catalog"
	"github.com/dmitrymomot/billingkit/pkg/order"
	"github.com/dmitrymomot/billingkit/pkg/payment"
)

// upgrade drives the in-place billing-period change as a sequence of typed
// states: resolve subscription, request the prorated plan change, poll for
// confirmation, locate the charge, record the ledger rows.
//
// The safety line sits between the plan-change call and everything after it.
// Failures before or during that call are hard errors with zero ledger
// writes; failures after it degrade to a soft "upgrade_pending" outcome,
// because a charge may already exist and must never look like a failure.
func (s *service) upgrade(ctx context.Context, req Request, plan catalog.Plan, target catalog.Period, ms *order.MembershipStatus) (*Result, error) {
	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, req.User.ID)
		if err != nil {
			return nil, errors.Join(ErrUpgradeInFlight, err)
		}
		defer unlock()
	}

	res, err := s.resolveSubscription(ctx, ms)
	if err != nil {
		return nil, err
	}

	targetPriceID, err := s.mapping.Resolve(req.ProductID, target)
	if err != nil {
		return nil, err
	}

	// An error from the plan change guarantees no charge was captured, so
	// nothing is written and the caller may retry.
	if err := s.provider.ChangeSubscriptionPlan(ctx, res.subscriptionID, targetPriceID); err != nil {
		s.log.ErrorContext(ctx, "subscription plan change failed",
			slog.String("subscription_id", res.subscriptionID),
			slog.String("target_price_id", targetPriceID),
			slog.Any("error", err))
		return nil, errors.Join(ErrUpgradeRequestFailed, err)
	}

	conf := s.pollConfirmation(ctx, res.subscriptionID, targetPriceID)
	if !conf.confirmed {
		return s.pendingResult(req.Locale, res.subscriptionID), nil
	}

	txn := s.locateTransaction(ctx, conf.sub)
	if txn == nil {
		// Bounded-effort lookup exhausted; reconcile later rather than
		// paginating through the customer's history.
		return s.pendingResult(req.Locale, res.subscriptionID), nil
	}

	if ok := s.recordLedger(ctx, req, plan, target, ms, targetPriceID, txn); !ok {
		return s.pendingResult(req.Locale, res.subscriptionID), nil
	}

	return &Result{
		Action:      ActionUpgraded,
		RedirectURL: s.redirectURL(req.Locale),
	}, nil
}

// resolveSubscription finds the provider subscription to act on. When the
// membership record lacks a subscription id but carries a checkout session,
// the session is retrieved and, if it embeds a subscription reference, the
// original order self-heals with it.
func (s *service) resolveSubscription(ctx context.Context, ms *order.MembershipStatus) (resolution, error) {
	if ms.SubscriptionID != "" {
		return resolution{subscriptionID: ms.SubscriptionID}, nil
	}

	if ms.SessionID != "" {
		session, err := s.provider.RetrieveCheckout(ctx, ms.SessionID)
		if err == nil && session.SubscriptionID != "" {
			if ms.OrderID != "" {
				if err := s.store.MergeMetadata(ctx, ms.OrderID, map[string]string{
					order.MetaSubscriptionID: session.SubscriptionID,
				}); err != nil {
					s.log.WarnContext(ctx, "failed to self-heal subscription id",
						slog.String("order_id", ms.OrderID), slog.Any("error", err))
				}
			}
			return resolution{subscriptionID: session.SubscriptionID, healed: true}, nil
		}
		if err != nil {
			s.log.WarnContext(ctx, "failed to retrieve checkout session",
				slog.String("session_id", ms.SessionID), slog.Any("error", err))
		}
	}

	return resolution{}, ErrSubscriptionNotFound
}

// pollConfirmation waits for the provider to apply the prorated change.
// Proration is asynchronous, so the subscription is re-read with bounded
// linear backoff until its price flips to the target or a last-transaction
// reference shows up.
func (s *service) pollConfirmation(ctx context.Context, subscriptionID, targetPriceID string) confirmation {
	var last *payment.Subscription

	for attempt := 1; attempt <= s.poll.MaxAttempts; attempt++ {
		s.poll.wait(attempt)

		sub, err := s.provider.RetrieveSubscription(ctx, subscriptionID)
		if err != nil {
			s.log.WarnContext(ctx, "confirmation poll failed",
				slog.String("subscription_id", subscriptionID),
				slog.Int("attempt", attempt), slog.Any("error", err))
			continue
		}
		last = sub

		if sub.PriceID == targetPriceID || sub.LastTransactionID != "" {
			return confirmation{confirmed: true, sub: sub}
		}
	}

	return confirmation{confirmed: false, sub: last}
}

// locateTransaction finds the charge behind a confirmed upgrade: prefer the
// transaction embedded on the subscription, otherwise run one bounded page
// of the customer's transaction search for the referenced id.
func (s *service) locateTransaction(ctx context.Context, sub *payment.Subscription) *payment.Transaction {
	if sub == nil {
		return nil
	}
	if sub.LastTransaction != nil {
		return sub.LastTransaction
	}
	if sub.LastTransactionID == "" || sub.CustomerID == "" {
		return nil
	}

	transactions, err := s.provider.SearchTransactions(ctx, sub.CustomerID, 1, s.searchLimit)
	if err != nil {
		s.log.WarnContext(ctx, "transaction search failed",
			slog.String("customer_id", sub.CustomerID), slog.Any("error", err))
		return nil
	}
	for i := range transactions {
		if transactions[i].ID == sub.LastTransactionID {
			return &transactions[i]
		}
	}
	return nil
}

// recordLedger writes one new paid upgrade order plus the backlink merge
// onto the source order. Reports false on any failure so the caller degrades
// to the soft-pending outcome.
func (s *service) recordLedger(ctx context.Context, req Request, plan catalog.Plan, target catalog.Period, ms *order.MembershipStatus, targetPriceID string, txn *payment.Transaction) bool {
	amount := txn.AmountPaid
	if amount <= 0 {
		amount = txn.Amount
	}

	currency := txn.Currency
	if currency == "" {
		if price, err := plan.Price(target); err == nil {
			currency = price.Currency
		}
	}

	paidAt := paidTime(txn.CreatedAt, s.clock)

	upgraded := &order.Order{
		ID:          s.newID(),
		UserID:      req.User.ID,
		ProductID:   req.ProductID,
		ProductType: "subscription",
		Kind:        order.KindUpgrade,
		Amount:      order.FormatAmount(amount),
		Currency:    currency,
		Status:      order.StatusPaid,
		Provider:    s.providerName,
		Metadata: map[string]string{
			order.MetaUpgradeFromOrderID: ms.OrderID,
			order.MetaUpgradeFromPeriod:  string(ms.Period),
			order.MetaUpgradeToPeriod:    string(target),
			order.MetaProviderTxnID:      txn.ID,
			order.MetaTargetPriceID:      targetPriceID,
		},
		CreatedAt: s.clock(),
		PaidAt:    &paidAt,
	}
	if err := s.store.Create(ctx, upgraded); err != nil {
		s.log.ErrorContext(ctx, "failed to record upgrade order",
			slog.String("transaction_id", txn.ID), slog.Any("error", err))
		return false
	}

	if ms.OrderID != "" {
		if err := s.store.MergeMetadata(ctx, ms.OrderID, map[string]string{
			order.MetaUpgradeToPeriod: string(target),
			order.MetaUpgradedOrderID: upgraded.ID,
			order.MetaUpgradedAt:      s.clock().Format(time.RFC3339),
		}); err != nil {
			s.log.ErrorContext(ctx, "failed to backlink source order",
				slog.String("order_id", ms.OrderID), slog.Any("error", err))
			return false
		}
	}

	return true
}

func (s *service) pendingResult(locale, subscriptionID string) *Result {
	return &Result{
		Action:         ActionUpgradePending,
		RedirectURL:    s.redirectURL(locale),
		SubscriptionID: subscriptionID,
		Message:        "The plan change was accepted but the charge is still being confirmed. Check the provider's transaction log or refresh the order status in a few minutes.",
	}
}

// paidTime converts a provider transaction timestamp to time.Time.
// Values below 10^12 are treated as seconds, larger ones as milliseconds;
// zero falls back to the current time.
func paidTime(ts int64, clock func() time.Time) time.Time {
	switch {
	case ts <= 0:
		return clock()
	case ts < 1_000_000_000_000:
		return time.Unix(ts, 0).UTC()
	default:
		return time.UnixMilli(ts).UTC()
	}
}
