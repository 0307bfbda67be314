package catalog

import "errors"

var (
	ErrPlanNotFound             = errors.New("plan not found")
	ErrInvalidPeriod            = errors.New("invalid billing period")
	ErrInvalidPlanConfiguration = errors.New("invalid plan configuration")
	ErrFailedToLoadPlans        = errors.New("failed to load plans")
	ErrPriceMappingNotFound     = errors.New("provider price mapping not found")
)
