package checkout_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/catalog"
	"github.com/dmitrymomot/billingkit/pkg/checkout"
	"github.com/dmitrymomot/billingkit/pkg/order"
	"github.com/dmitrymomot/billingkit/pkg/payment"
)

// Mock implementations

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) CreateCheckout(ctx context.Context, params payment.CheckoutParams) (*payment.Checkout, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Checkout), args.Error(1)
}

func (m *mockProvider) RetrieveCheckout(ctx context.Context, checkoutID string) (*payment.Checkout, error) {
	args := m.Called(ctx, checkoutID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Checkout), args.Error(1)
}

func (m *mockProvider) ChangeSubscriptionPlan(ctx context.Context, subscriptionID, targetPriceID string) error {
	args := m.Called(ctx, subscriptionID, targetPriceID)
	return args.Error(0)
}

func (m *mockProvider) RetrieveSubscription(ctx context.Context, subscriptionID string) (*payment.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Subscription), args.Error(1)
}

func (m *mockProvider) SearchTransactions(ctx context.Context, customerID string, page, perPage int) ([]payment.Transaction, error) {
	args := m.Called(ctx, customerID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payment.Transaction), args.Error(1)
}

func (m *mockProvider) CreateDiscount(ctx context.Context, params payment.DiscountParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Create(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *mockStore) Get(ctx context.Context, orderID string) (*order.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *mockStore) SetSession(ctx context.Context, orderID, sessionID string) error {
	args := m.Called(ctx, orderID, sessionID)
	return args.Error(0)
}

func (m *mockStore) UpdateStatus(ctx context.Context, orderID string, status order.Status, extra map[string]string) error {
	args := m.Called(ctx, orderID, status, extra)
	return args.Error(0)
}

func (m *mockStore) MergeMetadata(ctx context.Context, orderID string, partial map[string]string) error {
	args := m.Called(ctx, orderID, partial)
	return args.Error(0)
}

func (m *mockStore) CountPaidByUserProduct(ctx context.Context, userID, productID string) (int64, error) {
	args := m.Called(ctx, userID, productID)
	return args.Get(0).(int64), args.Error(1)
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, userID string) (*order.MembershipStatus, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.MembershipStatus), args.Error(1)
}

// Test helpers

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testPlans() catalog.Source {
	return catalog.NewInMemSource(catalog.Plan{
		ID:   "professional",
		Name: "Professional",
		Pricing: map[catalog.Period]catalog.Money{
			catalog.PeriodMonthly: {Amount: 1200, Currency: "USD"},
			catalog.PeriodYearly:  {Amount: 9900, Currency: "USD"},
		},
	})
}

func testMapping() catalog.PriceMapping {
	return catalog.PriceMapping{
		"professional:monthly": "pri_monthly",
		"professional:yearly":  "pri_yearly",
	}
}

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestService(t *testing.T, provider payment.Provider, store order.Store, resolver order.MembershipResolver, opts ...checkout.Option) checkout.Service {
	t.Helper()
	base := []checkout.Option{
		checkout.WithPollPolicy(checkout.PollPolicy{MaxAttempts: 4, Backoff: checkout.NoBackoff()}),
		checkout.WithSuccessURL("https://app.example.com/account"),
		checkout.WithIDGenerator(seqIDs()),
		checkout.WithClock(func() time.Time { return testTime }),
	}
	svc, err := checkout.NewService(context.Background(), testPlans(), testMapping(), provider, store, resolver, append(base, opts...)...)
	require.NoError(t, err)
	return svc
}

func freeUser() *order.MembershipStatus {
	return &order.MembershipStatus{IsPaid: false}
}

func monthlyMember() *order.MembershipStatus {
	return &order.MembershipStatus{
		IsPaid:         true,
		Period:         catalog.PeriodMonthly,
		SubscriptionID: "sub_1",
		OrderID:        "ord_src",
		HasPaidHistory: true,
	}
}

func checkoutRequest() checkout.Request {
	return checkout.Request{
		ProductID: "professional",
		Period:    "monthly",
		User:      checkout.User{ID: "user_1", Email: "buyer@example.com"},
	}
}

// Validation and guards

func TestCheckout_Validation(t *testing.T) {
	t.Parallel()

	t.Run("unknown product", func(t *testing.T) {
		t.Parallel()
		provider, store, resolver := &mockProvider{}, &mockStore{}, &mockResolver{}
		svc := newTestService(t, provider, store, resolver)

		req := checkoutRequest()
		req.ProductID = "nonexistent"
		_, err := svc.Checkout(context.Background(), req)
		assert.ErrorIs(t, err, checkout.ErrUnknownProduct)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unauthenticated user", func(t *testing.T) {
		t.Parallel()
		provider, store, resolver := &mockProvider{}, &mockStore{}, &mockResolver{}
		svc := newTestService(t, provider, store, resolver)

		req := checkoutRequest()
		req.User = checkout.User{}
		_, err := svc.Checkout(context.Background(), req)
		assert.ErrorIs(t, err, checkout.ErrUnauthenticated)
	})

	t.Run("invalid period", func(t *testing.T) {
		t.Parallel()
		provider, store, resolver := &mockProvider{}, &mockStore{}, &mockResolver{}
		svc := newTestService(t, provider, store, resolver)

		req := checkoutRequest()
		req.Period = "weekly"
		_, err := svc.Checkout(context.Background(), req)
		assert.ErrorIs(t, err, checkout.ErrUnknownProduct)
	})

	t.Run("already active at requested period", func(t *testing.T) {
		t.Parallel()
		provider, store, resolver := &mockProvider{}, &mockStore{}, &mockResolver{}
		resolver.On("Resolve", mock.Anything, "user_1").Return(monthlyMember(), nil)
		svc := newTestService(t, provider, store, resolver)

		_, err := svc.Checkout(context.Background(), checkoutRequest())
		assert.ErrorIs(t, err, checkout.ErrAlreadyActive)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		resolver.AssertExpectations(t)
	})
}

// New checkout path

func TestCheckout_New(t *testing.T) {
	t.Parallel()

	t.Run("creates pending order before session with matching request id", func(t *testing.T) {
		t.Parallel()
		provider, store, resolver := &mockProvider{}, &mockStore{}, &mockResolver{}
		resolver.On("Resolve", mock.Anything, "user_1").Return(freeUser(), nil)

		var created *order.Order
		store.On("Create", mock.Anything, mock.AnythingOfType("*order.Order")).Run(func(args mock.Arguments) {
			created = args.Get(1).(*order.Order)
		}).Return(nil)
		store.On("SetSession", mock.Anything, mock.Anything, "sess_1").Return(nil)

		provider.On("CreateCheckout", mock.Anything, mock.MatchedBy(func(p payment.CheckoutParams) bool {
			// The order row must exist before the provider call, with the
			// same request id that is sent to the provider.
			return created != nil && p.RequestID == created.RequestID && p.PriceID == "pri_monthly"
		})).Return(&payment.Checkout{ID: "sess_1", URL: "https://pay.example.com/sess_1"}, nil)

		svc := newTestService(t, provider, store, resolver)
		result, err := svc.Checkout(context.Background(), checkoutRequest())
		require.NoError(t, err)

		assert.Equal(t, checkout.ActionCheckout, result.Action)
		assert.Equal(t, "sess_1", result.SessionID)
		assert.Equal(t, "https://pay.example.com/sess_1", result.CheckoutURL)
		assert.Equal(t, created.ID, result.OrderID)
		assert.Equal(t, created.RequestID, result.RequestID)

		assert.Equal(t, order.StatusPending, created.Status)
		assert.Equal(t, order.KindCheckout, created.Kind)
		assert.Equal(t, "12.00", created.Amount)
		assert.Equal(t, "USD", created.Currency)

		provider.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("provider failure surfaces as checkout failure, order stays pending", func(t *testing.T) {
		t.Parallel()
		provider, store, resolver := &mockProvider{}, &mockStore{}, &mockResolver{}
		resolver.On("Resolve", mock.Anything, "user_1").Return(freeUser(), nil)
		store.On("Create", mock.Anything, mock.Anything).Return(nil)
		provider.On("CreateCheckout", mock.Anything, mock.Anything).Return(nil, errors.New("provider down"))

		svc := newTestService(t, provider, store, resolver)
		_, err := svc.Checkout(context.Background(), checkoutRequest())
		require.Error(t, err)

		store.AssertNumberOfCalls(t, "Create", 1)
		store.AssertNotCalled(t, "SetSession", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing price mapping enumerates configured keys", func(t *testing.T) {
		t.Parallel()
		provider, store, resolver := &mockProvider{}, &mockStore{}, &mockResolver{}
		resolver.On("Resolve", mock.Anything, "user_1").Return(freeUser(), nil)

		svc, err := checkout.NewService(context.Background(), testPlans(),
			catalog.PriceMapping{"professional:monthly": "pri_monthly"},
			provider, store, resolver,
			checkout.WithPollPolicy(checkout.PollPolicy{MaxAttempts: 4, Backoff: checkout.NoBackoff()}),
		)
		require.NoError(t, err)

		req := checkoutRequest()
		req.Period = "yearly"
		_, err = svc.Checkout(context.Background(), req)
		require.ErrorIs(t, err, catalog.ErrPriceMappingNotFound)
		assert.Contains(t, err.Error(), `"professional:yearly"`)
		assert.Contains(t, err.Error(), "professional:monthly")
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

// Intro discount

func TestCheckout_IntroDiscount(t *testing.T) {
	t.Parallel()

	discountReq := func() checkout.Request {
		req := checkoutRequest()
		req.IntroDiscount = true
		return req
	}

	t.Run("eligible first-time monthly USD buyer gets two dollars off", func(t *testing.T) {
		t.Parallel()
		provider, store, resolver := &mockProvider{}, &mockStore{}, &mockResolver{}
		resolver.On("Resolve", mock.Anything, "user_1").Return(freeUser(), nil)
		store.On("CountPaidByUserProduct", mock.Anything, "user_1", "professional").Return(int64(0), nil)

		var created *order.Order
		store.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			created = args.Get(1).(*order.Order)
		}).Return(nil)
		store.On("SetSession", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		provider.On("CreateDiscount", mock.Anything, mock.MatchedBy(func(p payment.DiscountParams) bool {
			return p.Amount == 200 && p.Currency == "USD" &&
				p.AppliesToPrice == "pri_monthly" &&
				p.ExpiresAt.Equal(testTime.AddDate(0, 0, 30))
		})).Return(nil)
		provider.On("CreateCheckout", mock.Anything, mock.MatchedBy(func(p payment.CheckoutParams) bool {
			return p.DiscountCode != ""
		})).Return(&payment.Checkout{ID: "sess_1", URL: "https://pay.example.com/sess_1"}, nil)

		svc := newTestService(t, provider, store, resolver)
		_, err := svc.Checkout(context.Background(), discountReq())
		require.NoError(t, err)

		assert.Equal(t, "10.00", created.Amount) // 12.00 list minus 2.00 intro
		assert.NotEmpty(t, created.Metadata[order.MetaDiscountCode])
		provider.AssertExpectations(t)
	})

	t.Run("discount failure degrades to full list price", func(t *testing.T) {
		t.Parallel()
		provider, store, resolver := &mockProvider{}, &mockStore{}, &mockResolver{}
		resolver.On("Resolve", mock.Anything, "user_1").Return(freeUser(), nil)
		store.On("CountPaidByUserProduct", mock.Anything, "user_1", "professional").Return(int64(0), nil)

		var created *order.Order
		store.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			created = args.Get(1).(*order.Order)
		}).Return(nil)
		store.On("SetSession", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		provider.On("CreateDiscount", mock.Anything, mock.Anything).Return(errors.New("discount API down"))
		provider.On("CreateCheckout", mock.Anything, mock.MatchedBy(func(p payment.CheckoutParams) bool {
			return p.DiscountCode == ""
		})).Return(&payment.Checkout{ID: "sess_1", URL: "https://pay.example.com/sess_1"}, nil)

		svc := newTestService(t, provider, store, resolver)
		_, err := svc.Checkout(context.Background(), discountReq())
		require.NoError(t, err)

		assert.Equal(t, "12.00", created.Amount)
		assert.NotContains(t, created.Metadata, order.MetaDiscountCode)
	})

	t.Run("user with paid history never gets a discount", func(t *testing.T) {
		t.Parallel()
		provider, store, resolver := &mockProvider{}, &mockStore{}, &mockResolver{}
		resolver.On("Resolve", mock.Anything, "user_1").Return(freeUser(), nil)
		store.On("CountPaidByUserProduct", mock.Anything, "user_1", "professional").Return(int64(2), nil)
		store.On("Create", mock.Anything, mock.Anything).Return(nil)
		store.On("SetSession", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		provider.On("CreateCheckout", mock.Anything, mock.Anything).
			Return(&payment.Checkout{ID: "sess_1", URL: "https://pay.example.com/sess_1"}, nil)

		svc := newTestService(t, provider, store, resolver)
		_, err := svc.Checkout(context.Background(), discountReq())
		require.NoError(t, err)

		provider.AssertNotCalled(t, "CreateDiscount", mock.Anything, mock.Anything)
	})

	t.Run("yearly period is never discounted", func(t *testing.T) {
		t.Parallel()
		provider, store, resolver := &mockProvider{}, &mockStore{}, &mockResolver{}
		resolver.On("Resolve", mock.Anything, "user_1").Return(freeUser(), nil)
		store.On("Create", mock.Anything, mock.Anything).Return(nil)
		store.On("SetSession", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		provider.On("CreateCheckout", mock.Anything, mock.Anything).
			Return(&payment.Checkout{ID: "sess_1", URL: "https://pay.example.com/sess_1"}, nil)

		svc := newTestService(t, provider, store, resolver)
		req := discountReq()
		req.Period = "yearly"
		_, err := svc.Checkout(context.Background(), req)
		require.NoError(t, err)

		provider.AssertNotCalled(t, "CreateDiscount", mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "CountPaidByUserProduct", mock.Anything, mock.Anything, mock.Anything)
	})
}
