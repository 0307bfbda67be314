package billing

import (
	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/billingkit/pkg/checkout"
)

// Router creates the billing module router.
//
// Example:
//
//	svc, _ := checkout.NewService(ctx, src, mapping, provider, store, membership)
//
//	r := chi.NewRouter()
//	r.Mount("/billing", billing.Router(svc))
//
// Authentication is an upstream concern: a middleware is expected to attach
// the resolved user with billing.WithUser before requests reach this router.
func Router(svc checkout.Service) chi.Router {
	r := chi.NewRouter()
	r.Post("/checkout", CheckoutHandler(svc))
	return r
}
