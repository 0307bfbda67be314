package catalog

import (
	"fmt"
	"slices"
	"strings"
)

// PriceMapping resolves a (product, period) pair to the payment provider's
// price identifier. The mapping is supplied by external configuration; a
// missing entry is a configuration error, never a silent fallback.
type PriceMapping map[string]string

// MappingKey builds the canonical "product:period" lookup key.
func MappingKey(productID string, period Period) string {
	return productID + ":" + string(period)
}

// Resolve returns the provider price ID configured for the given product and
// period. A missing mapping fails with a diagnostic enumerating the attempted
// key and every configured key, so misconfiguration is obvious in logs rather
// than surfacing as a confusing provider error later.
func (m PriceMapping) Resolve(productID string, period Period) (string, error) {
	key := MappingKey(productID, period)
	if priceID, ok := m[key]; ok && priceID != "" {
		return priceID, nil
	}

	configured := make([]string, 0, len(m))
	for k := range m {
		configured = append(configured, k)
	}
	slices.Sort(configured)

	return "", fmt.Errorf("%w: no provider price for %q (configured: %s)",
		ErrPriceMappingNotFound, key, strings.Join(configured, ", "))
}
