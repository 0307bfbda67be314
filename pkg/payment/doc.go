// Package payment abstracts the payment provider behind a narrow Provider
// interface covering exactly what the checkout and upgrade flows consume:
// hosted checkout sessions, subscription plan changes with immediate
// proration, bounded transaction search, and single-use discount codes.
//
// The Paddle implementation is the production provider; tests substitute
// mocks of the Provider interface.
package payment
