package catalog

import (
	"fmt"
	"strings"
)

// Period represents the billing period of a subscription plan.
type Period string

const (
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// ParsePeriod normalizes and validates a billing period string.
// An empty value defaults to monthly, matching checkout requests that omit it.
func ParsePeriod(s string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return PeriodMonthly, nil
	case PeriodMonthly:
		return PeriodMonthly, nil
	case PeriodYearly:
		return PeriodYearly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
}

// Money represents a monetary amount in the smallest currency unit.
// For example, $10.99 USD would be Amount: 1099, Currency: "USD".
type Money struct {
	Amount   int64  `yaml:"amount"`
	Currency string `yaml:"currency"`
}

// Plan describes a purchasable product and its per-period pricing.
type Plan struct {
	ID      string           `yaml:"id"`
	Name    string           `yaml:"name"`
	Pricing map[Period]Money `yaml:"pricing"`
}

// Price returns the list price for the given billing period.
func (p Plan) Price(period Period) (Money, error) {
	price, ok := p.Pricing[period]
	if !ok {
		return Money{}, fmt.Errorf("%w: plan %s has no %s pricing", ErrPlanNotFound, p.ID, period)
	}
	return price, nil
}

// Validate ensures plan configurations are internally consistent.
// Catches common configuration errors early to prevent runtime issues.
func Validate(plans map[string]Plan) error {
	for planID, plan := range plans {
		if plan.ID != planID {
			return fmt.Errorf("%w: map key %s != plan.ID %s", ErrInvalidPlanConfiguration, planID, plan.ID)
		}
		for period, price := range plan.Pricing {
			if price.Amount < 0 {
				return fmt.Errorf("%w: plan %s has negative %s price", ErrInvalidPlanConfiguration, planID, period)
			}
			if price.Currency == "" {
				return fmt.Errorf("%w: plan %s has no currency for %s price", ErrInvalidPlanConfiguration, planID, period)
			}
		}
	}
	return nil
}
