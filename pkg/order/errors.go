package order

import "errors"

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidTransition   = errors.New("invalid order status transition")
	ErrFailedToOpenDB      = errors.New("failed to open database connection")
	ErrFailedToParseDBConf = errors.New("failed to parse database config")
	ErrFailedToMigrate     = errors.New("failed to apply ledger migrations")
)
