package controllers

import (
	"net/http"

	"github.com/angelmondragon/checkout-backend/api/responses"
	"github.com/angelmondragon/checkout-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/checkout-backend/internal/checkout"
	internalorders "github.com/angelmondragon/checkout-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
)

// CreateCheckoutSession prices the storefront cart and returns the hosted
// payment link.
func CreateCheckoutSession(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload createSessionRequest
		if err := validators.DecodeJSONBodyLenient(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if len(payload.Products) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Invalid or empty products array"))
			return
		}

		result, err := svc.CreateSession(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteJSON(w, http.StatusOK, createSessionResponse{
			ID:          result.SessionID,
			PaymentLink: result.PaymentLink,
		})
	}
}

// ConfirmPayment reconciles a paid reference into a durable order.
func ConfirmPayment(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload confirmPaymentRequest
		if err := validators.DecodeJSONBodyLenient(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Confirm(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteJSON(w, http.StatusOK, map[string]any{
			"order": internalorders.NewOrderResponse(order),
		})
	}
}
