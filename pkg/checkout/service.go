package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/dmitrymomot/billingkit/pkg/catalog"
	"github.com/dmitrymomot/billingkit/pkg/order"
	"github.com/dmitrymomot/billingkit/pkg/payment"
)

// User identifies the authenticated buyer.
type User struct {
	ID    string
	Email string
}

// Request is a checkout or upgrade request.
type Request struct {
	ProductID     string
	Period        string // raw period string, validated during handling
	Locale        string
	IntroDiscount bool
	User          User
}

// Service is the public interface of the checkout engine.
type Service interface {
	// Checkout handles a purchase request: it either opens a new checkout
	// session or, for a paid member requesting a different billing period,
	// runs the in-place upgrade reconciliation.
	Checkout(ctx context.Context, req Request) (*Result, error)
}

type service struct {
	plans      map[string]catalog.Plan
	mapping    catalog.PriceMapping
	provider   payment.Provider
	store      order.Store
	membership order.MembershipResolver

	log                 *slog.Logger
	poll                PollPolicy
	searchLimit         int
	locker              Locker
	clock               func() time.Time
	newID               func() string
	discountAmount      catalog.Money
	successURL          string
	subscriptionProduct string
	providerName        string
}

// NewService creates the checkout engine. Panics if required dependencies
// are nil to fail fast during initialization.
func NewService(
	ctx context.Context,
	src catalog.Source,
	mapping catalog.PriceMapping,
	provider payment.Provider,
	store order.Store,
	membership order.MembershipResolver,
	opts ...Option,
) (Service, error) {
	if src == nil {
		panic("checkout: catalog.Source is required")
	}
	if provider == nil {
		panic("checkout: payment.Provider is required")
	}
	if store == nil {
		panic("checkout: order.Store is required")
	}
	if membership == nil {
		panic("checkout: order.MembershipResolver is required")
	}

	plans, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(catalog.ErrFailedToLoadPlans, err)
	}
	if err := catalog.Validate(plans); err != nil {
		return nil, err
	}

	s := &service{
		plans:          plans,
		mapping:        mapping,
		provider:       provider,
		store:          store,
		membership:     membership,
		log:            slog.New(slog.DiscardHandler),
		poll:           defaultPollPolicy(),
		searchLimit:    50,
		clock:          func() time.Time { return time.Now().UTC() },
		newID:          uuid.NewString,
		discountAmount: catalog.Money{Amount: 200, Currency: "USD"},
		providerName:   "paddle",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *service) Checkout(ctx context.Context, req Request) (*Result, error) {
	plan, exists := s.plans[req.ProductID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, req.ProductID)
	}

	if req.User.ID == "" {
		return nil, ErrUnauthenticated
	}

	period, err := catalog.ParsePeriod(req.Period)
	if err != nil {
		return nil, errors.Join(ErrUnknownProduct, err)
	}

	if s.isSubscriptionProduct(req.ProductID) {
		ms, err := s.membership.Resolve(ctx, req.User.ID)
		if err != nil {
			return nil, errors.Join(ErrMembershipUnavailable, err)
		}
		if ms != nil && ms.IsPaid {
			if ms.Period == period {
				return nil, ErrAlreadyActive
			}
			return s.upgrade(ctx, req, plan, period, ms)
		}
	}

	return s.newCheckout(ctx, req, plan, period)
}

// newCheckout creates a pending order and opens a provider checkout session.
// Exactly one order write plus one provider call; a provider failure
// surfaces as a checkout failure with the pending order left recoverable
// out-of-band.
func (s *service) newCheckout(ctx context.Context, req Request, plan catalog.Plan, period catalog.Period) (*Result, error) {
	price, err := plan.Price(period)
	if err != nil {
		return nil, errors.Join(ErrUnknownProduct, err)
	}

	priceID, err := s.mapping.Resolve(req.ProductID, period)
	if err != nil {
		return nil, err
	}

	requestID := s.newID()

	discountCode, amountOff := s.provisionDiscount(ctx, req, period, price, priceID)

	metadata := map[string]string{}
	if discountCode != "" {
		metadata[order.MetaDiscountCode] = discountCode
	}

	o := &order.Order{
		ID:          s.newID(),
		UserID:      req.User.ID,
		ProductID:   req.ProductID,
		ProductType: "subscription",
		Kind:        order.KindCheckout,
		Amount:      order.FormatAmount(price.Amount - amountOff),
		Currency:    price.Currency,
		Status:      order.StatusPending,
		Provider:    s.providerName,
		RequestID:   requestID,
		Metadata:    metadata,
		CreatedAt:   s.clock(),
	}
	if err := s.store.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	session, err := s.provider.CreateCheckout(ctx, payment.CheckoutParams{
		PriceID:       priceID,
		RequestID:     requestID,
		CustomerEmail: req.User.Email,
		DiscountCode:  discountCode,
		SuccessURL:    s.redirectURL(req.Locale),
		Metadata:      map[string]string{"order_id": o.ID},
	})
	if err != nil {
		s.log.ErrorContext(ctx, "checkout session creation failed",
			slog.String("order_id", o.ID), slog.Any("error", err))
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	if err := s.store.SetSession(ctx, o.ID, session.ID); err != nil {
		// Session exists provider-side; losing the link is recoverable
		// through a status refresh, so the checkout still succeeds.
		s.log.WarnContext(ctx, "failed to persist checkout session id",
			slog.String("order_id", o.ID), slog.Any("error", err))
	}

	return &Result{
		Action:      ActionCheckout,
		RequestID:   requestID,
		SessionID:   session.ID,
		CheckoutURL: session.URL,
		OrderID:     o.ID,
	}, nil
}

func (s *service) isSubscriptionProduct(productID string) bool {
	return s.subscriptionProduct == "" || s.subscriptionProduct == productID
}

// redirectURL decorates the success URL with a validated locale. An invalid
// locale is dropped rather than failing the flow, since it only affects the
// landing page language.
func (s *service) redirectURL(locale string) string {
	if s.successURL == "" {
		return ""
	}
	if locale == "" {
		return s.successURL
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return s.successURL
	}

	u, err := url.Parse(s.successURL)
	if err != nil {
		return s.successURL
	}
	q := u.Query()
	q.Set("locale", tag.String())
	u.RawQuery = q.Encode()
	return u.String()
}
