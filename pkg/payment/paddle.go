package payment

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds configuration for the Paddle billing provider.
type PaddleConfig struct {
	APIKey      string `env:"PADDLE_API_KEY,required"`
	Environment string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// PaddleProvider implements Provider on the official Paddle SDK.
//
// Paddle has no standalone checkout object: a hosted checkout is a draft
// transaction whose Checkout.URL is the session link, and the transaction ID
// doubles as the session ID. That quirk stays inside this type.
type PaddleProvider struct {
	client *paddle.SDK
	config PaddleConfig
}

// NewPaddleProvider creates a new Paddle billing provider.
func NewPaddleProvider(config PaddleConfig) (*PaddleProvider, error) {
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	var client *paddle.SDK
	var err error

	switch strings.ToLower(config.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(config.APIKey)
	case "production", "":
		client, err = paddle.New(config.APIKey)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidEnvironment, config.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &PaddleProvider{client: client, config: config}, nil
}

// CreateCheckout creates a hosted checkout session in Paddle.
func (p *PaddleProvider) CreateCheckout(ctx context.Context, params CheckoutParams) (*Checkout, error) {
	if params.PriceID == "" {
		return nil, ErrMissingPriceID
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  params.PriceID,
		Quantity: 1,
	})

	customData := paddle.CustomData{"request_id": params.RequestID}
	for k, v := range params.Metadata {
		customData[k] = v
	}
	if params.CustomerEmail != "" {
		customData["email"] = params.CustomerEmail
	}
	if params.DiscountCode != "" {
		customData["discount_code"] = params.DiscountCode
	}

	req := &paddle.CreateTransactionRequest{
		Items:      []paddle.CreateTransactionItems{*item},
		CustomData: customData,
	}
	if params.SuccessURL != "" {
		req.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(params.SuccessURL),
		}
	}

	transaction, err := p.client.TransactionsClient.CreateTransaction(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle transaction: %w", err)
	}

	if transaction.Checkout == nil || transaction.Checkout.URL == nil {
		return nil, ErrNoCheckoutURL
	}

	checkout := &Checkout{
		ID:  transaction.ID,
		URL: *transaction.Checkout.URL,
	}
	if transaction.SubscriptionID != nil {
		checkout.SubscriptionID = *transaction.SubscriptionID
	}
	return checkout, nil
}

// RetrieveCheckout fetches the transaction backing a checkout session.
func (p *PaddleProvider) RetrieveCheckout(ctx context.Context, checkoutID string) (*Checkout, error) {
	transaction, err := p.client.TransactionsClient.GetTransaction(ctx, &paddle.GetTransactionRequest{
		TransactionID: checkoutID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve paddle transaction: %w", err)
	}

	checkout := &Checkout{ID: transaction.ID}
	if transaction.Checkout != nil && transaction.Checkout.URL != nil {
		checkout.URL = *transaction.Checkout.URL
	}
	if transaction.SubscriptionID != nil {
		checkout.SubscriptionID = *transaction.SubscriptionID
	}
	return checkout, nil
}

// ChangeSubscriptionPlan moves the subscription to the target price,
// charging the prorated difference immediately.
func (p *PaddleProvider) ChangeSubscriptionPlan(ctx context.Context, subscriptionID, targetPriceID string) error {
	item := paddle.NewUpdateSubscriptionItemsSubscriptionUpdateItemFromCatalog(&paddle.SubscriptionUpdateItemFromCatalog{
		PriceID:  targetPriceID,
		Quantity: 1,
	})

	_, err := p.client.SubscriptionsClient.UpdateSubscription(ctx, &paddle.UpdateSubscriptionRequest{
		SubscriptionID:       subscriptionID,
		Items:                paddle.NewPatchField([]paddle.UpdateSubscriptionItems{*item}),
		ProrationBillingMode: paddle.NewPatchField(paddle.ProrationBillingModeProratedImmediately),
	})
	if err != nil {
		return fmt.Errorf("failed to update paddle subscription: %w", err)
	}
	return nil
}

// RetrieveSubscription fetches the subscription and, when possible, its most
// recent transaction. Paddle does not embed a last-transaction reference on
// the subscription object, so the latest transaction is looked up separately
// and the lookup failure is not fatal.
func (p *PaddleProvider) RetrieveSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	sub, err := p.client.SubscriptionsClient.GetSubscription(ctx, &paddle.GetSubscriptionRequest{
		SubscriptionID: subscriptionID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve paddle subscription: %w", err)
	}

	result := &Subscription{
		ID:         sub.ID,
		CustomerID: sub.CustomerID,
	}
	if len(sub.Items) > 0 {
		result.PriceID = sub.Items[0].Price.ID
	}

	if latest := p.latestTransaction(ctx, subscriptionID); latest != nil {
		result.LastTransactionID = latest.ID
		result.LastTransaction = latest
	}
	return result, nil
}

func (p *PaddleProvider) latestTransaction(ctx context.Context, subscriptionID string) *Transaction {
	res, err := p.client.TransactionsClient.ListTransactions(ctx, &paddle.ListTransactionsRequest{
		SubscriptionID: []string{subscriptionID},
		PerPage:        paddle.PtrTo(1),
	})
	if err != nil {
		return nil
	}

	var latest *Transaction
	_ = res.Iter(ctx, func(t *paddle.Transaction) (bool, error) {
		latest = mapPaddleTransaction(t)
		return false, nil
	})
	return latest
}

// SearchTransactions lists a customer's transactions. Paddle paginates with
// cursors rather than page numbers, so only the first page is served; later
// pages return empty, which callers treat as a bounded miss.
func (p *PaddleProvider) SearchTransactions(ctx context.Context, customerID string, page, perPage int) ([]Transaction, error) {
	if page > 1 {
		return nil, nil
	}

	res, err := p.client.TransactionsClient.ListTransactions(ctx, &paddle.ListTransactionsRequest{
		CustomerID: []string{customerID},
		PerPage:    paddle.PtrTo(perPage),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list paddle transactions: %w", err)
	}

	transactions := make([]Transaction, 0, perPage)
	err = res.Iter(ctx, func(t *paddle.Transaction) (bool, error) {
		transactions = append(transactions, *mapPaddleTransaction(t))
		return len(transactions) < perPage, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate paddle transactions: %w", err)
	}
	return transactions, nil
}

// CreateDiscount registers a single-use flat-amount discount code.
func (p *PaddleProvider) CreateDiscount(ctx context.Context, params DiscountParams) error {
	req := &paddle.CreateDiscountRequest{
		Description:        params.Name,
		Type:               paddle.DiscountTypeFlat,
		Amount:             strconv.FormatInt(params.Amount, 10),
		CurrencyCode:       paddle.PtrTo(paddle.CurrencyCode(params.Currency)),
		Code:               paddle.PtrTo(params.Code),
		EnabledForCheckout: paddle.PtrTo(true),
		Recur:              paddle.PtrTo(false),
		UsageLimit:         paddle.PtrTo(1),
		RestrictTo:         []string{params.AppliesToPrice},
	}
	if !params.ExpiresAt.IsZero() {
		req.ExpiresAt = paddle.PtrTo(params.ExpiresAt.UTC().Format(time.RFC3339))
	}

	if _, err := p.client.DiscountsClient.CreateDiscount(ctx, req); err != nil {
		return fmt.Errorf("failed to create paddle discount: %w", err)
	}
	return nil
}

func mapPaddleTransaction(t *paddle.Transaction) *Transaction {
	out := &Transaction{ID: t.ID}

	out.Amount = parseMinorUnits(t.Details.Totals.Total)
	out.AmountPaid = parseMinorUnits(t.Details.Totals.GrandTotal)
	out.Currency = string(t.Details.Totals.CurrencyCode)
	if ts, err := time.Parse(time.RFC3339, t.CreatedAt); err == nil {
		out.CreatedAt = ts.UnixMilli()
	}
	return out
}

// parseMinorUnits converts Paddle's stringified minor-unit amounts ("1099")
// to int64. Malformed values collapse to zero rather than failing a flow
// that only needs the amount for ledger display.
func parseMinorUnits(s string) int64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

var _ Provider = (*PaddleProvider)(nil)
