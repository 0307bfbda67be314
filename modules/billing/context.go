package billing

import (
	"context"

	"github.com/dmitrymomot/billingkit/pkg/checkout"
)

type userCtxKey struct{}

// WithUser attaches the authenticated user to the context. Auth middleware
// calls this after session resolution.
func WithUser(ctx context.Context, u checkout.User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from the context.
func UserFromContext(ctx context.Context) (checkout.User, bool) {
	u, ok := ctx.Value(userCtxKey{}).(checkout.User)
	return u, ok
}
