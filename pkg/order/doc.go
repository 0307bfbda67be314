// Package order is the payment ledger: one row per payment or upgrade
// attempt, with a monotonic status lifecycle and metadata cross-links
// between upgrade source and result rows.
//
// The Store interface is the only mutation path; the Postgres implementation
// enforces the transition rules with row locks. MembershipStatus is derived
// state consumed by the checkout engine, resolved by an external
// collaborator.
package order
