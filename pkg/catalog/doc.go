// Package catalog provides plan definitions, per-period pricing, and the
// mapping from (product, period) pairs to payment provider price identifiers.
//
// Plans are loaded through a Source, either in-memory for tests or from a
// YAML file for deployments:
//
//	src := catalog.NewFileSource("config/plans.yaml")
//	plans, err := src.Load(ctx)
//
// The provider price mapping is deliberately strict: resolving a pair that
// was never configured returns an error enumerating every configured key,
// because a silent fallback would send checkouts to the wrong provider price.
package catalog
