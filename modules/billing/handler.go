package billing

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/billingkit/pkg/catalog"
	"github.com/dmitrymomot/billingkit/pkg/checkout"
)

// checkoutRequest is the JSON body of the checkout endpoint.
type checkoutRequest struct {
	ProductID     string `json:"product_id"`
	Period        string `json:"period,omitempty"`
	Locale        string `json:"locale,omitempty"`
	IntroDiscount bool   `json:"intro_discount,omitempty"`
}

// envelope is the response wrapper shared by all outcomes.
type envelope struct {
	OK      bool   `json:"ok"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type checkoutData struct {
	RequestID   string `json:"request_id"`
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
	OrderID     string `json:"order_id"`
}

type upgradeData struct {
	Action         string `json:"action"`
	RedirectURL    string `json:"redirect_url"`
	Message        string `json:"message,omitempty"`
	SubscriptionID string `json:"subscription_id,omitempty"`
}

// CheckoutHandler handles POST checkout requests. Every service error is
// converted to the envelope here; nothing propagates as an unhandled error.
func CheckoutHandler(svc checkout.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body checkoutRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, envelope{OK: false, Message: "invalid request body"})
			return
		}

		user, _ := UserFromContext(r.Context())

		result, err := svc.Checkout(r.Context(), checkout.Request{
			ProductID:     body.ProductID,
			Period:        body.Period,
			Locale:        body.Locale,
			IntroDiscount: body.IntroDiscount,
			User:          user,
		})
		if err != nil {
			writeJSON(w, statusFor(err), envelope{OK: false, Message: err.Error()})
			return
		}

		switch result.Action {
		case checkout.ActionCheckout:
			writeJSON(w, http.StatusOK, envelope{OK: true, Data: checkoutData{
				RequestID:   result.RequestID,
				SessionID:   result.SessionID,
				CheckoutURL: result.CheckoutURL,
				OrderID:     result.OrderID,
			}})
		default:
			writeJSON(w, http.StatusOK, envelope{OK: true, Data: upgradeData{
				Action:         string(result.Action),
				RedirectURL:    result.RedirectURL,
				Message:        result.Message,
				SubscriptionID: result.SubscriptionID,
			}})
		}
	}
}

// statusFor maps the error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, checkout.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, checkout.ErrAlreadyActive),
		errors.Is(err, checkout.ErrSubscriptionNotFound),
		errors.Is(err, checkout.ErrUpgradeInFlight):
		return http.StatusConflict
	case errors.Is(err, checkout.ErrUpgradeRequestFailed),
		errors.Is(err, checkout.ErrMembershipUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, checkout.ErrUnknownProduct),
		errors.Is(err, catalog.ErrInvalidPeriod),
		errors.Is(err, catalog.ErrPlanNotFound),
		errors.Is(err, catalog.ErrPriceMappingNotFound):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
