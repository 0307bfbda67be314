// Package checkout is the purchase and billing-period upgrade engine.
//
// A single entry point, Service.Checkout, decides between opening a new
// hosted checkout session and reconciling an in-place billing-period
// upgrade for an already-paid member. The upgrade path is a small state
// machine over typed results: resolve the provider subscription (with
// self-healing from the checkout session), request the prorated plan
// change, poll for confirmation with bounded linear backoff, locate the
// captured transaction, and record the paid ledger row with bidirectional
// metadata links to the source order.
//
// Two guarantees shape the error handling. Before the plan-change call
// succeeds, every failure is a hard, retry-safe error and nothing is
// written. After it succeeds, a charge may exist, so every failure degrades
// to the soft "upgrade_pending" outcome and reconciliation happens later
// through a status refresh. Discount provisioning is best-effort on top of
// the checkout path and never blocks a purchase.
package checkout
