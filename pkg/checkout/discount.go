package checkout

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dmitrymomot/billingkit/pkg/catalog"
	"github.com/dmitrymomot/billingkit/pkg/payment"
)

const discountValidityDays = 30

// provisionDiscount creates a single-use intro discount when the request is
// eligible: subscription product, monthly period, USD pricing, and zero
// prior paid orders for the product. Issuance is strictly best-effort; any
// failure returns no discount and never blocks the checkout.
func (s *service) provisionDiscount(ctx context.Context, req Request, period catalog.Period, price catalog.Money, priceID string) (code string, amountOff int64) {
	if !req.IntroDiscount {
		return "", 0
	}
	if !s.isSubscriptionProduct(req.ProductID) || period != catalog.PeriodMonthly {
		return "", 0
	}
	if price.Currency != s.discountAmount.Currency {
		return "", 0
	}

	paid, err := s.store.CountPaidByUserProduct(ctx, req.User.ID, req.ProductID)
	if err != nil {
		s.log.WarnContext(ctx, "discount eligibility check failed",
			slog.String("user_id", req.User.ID), slog.Any("error", err))
		return "", 0
	}
	if paid > 0 {
		return "", 0
	}

	code = s.discountCode()
	err = s.provider.CreateDiscount(ctx, payment.DiscountParams{
		Name:           "Intro discount " + code,
		Code:           code,
		Amount:         s.discountAmount.Amount,
		Currency:       s.discountAmount.Currency,
		ExpiresAt:      s.clock().AddDate(0, 0, discountValidityDays),
		AppliesToPrice: priceID,
	})
	if err != nil {
		s.log.WarnContext(ctx, "discount creation failed",
			slog.String("code", code), slog.Any("error", err))
		return "", 0
	}

	amountOff = min(s.discountAmount.Amount, price.Amount)
	return code, amountOff
}

// discountCode derives a short unique uppercase code from the id generator,
// so deterministic tests produce deterministic codes.
func (s *service) discountCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(s.newID(), "-", ""))
	if len(raw) > 8 {
		raw = raw[:8]
	}
	return "INTRO" + raw
}
