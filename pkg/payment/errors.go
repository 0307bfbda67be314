package payment

import "errors"

var (
	ErrMissingAPIKey      = errors.New("payment provider API key is required")
	ErrInvalidEnvironment = errors.New("invalid payment provider environment")
	ErrMissingPriceID     = errors.New("price ID is required")
	ErrNoCheckoutURL      = errors.New("no checkout URL returned from provider")
)
