// Package checkout drives the shopper's checkout wizard over HTTP.
package checkout

import (
	"net/http"

	"github.com/compunet/storefront/api/middleware"
	"github.com/compunet/storefront/api/responses"
	"github.com/compunet/storefront/api/validators"
	checkoutsvc "github.com/compunet/storefront/internal/checkout"
	"github.com/compunet/storefront/internal/shopper"
	"github.com/compunet/storefront/pkg/logger"
)

type fieldsResponse struct {
	Fields   []checkoutsvc.FieldResult `json:"fields"`
	Checkout checkoutsvc.View          `json:"checkout"`
}

type confirmResponse struct {
	Order    checkoutsvc.Receipt `json:"order"`
	Checkout checkoutsvc.View    `json:"checkout"`
	Cart     shopper.CartView    `json:"cart"`
}

// Enter starts checkout over the selected cart lines.
func Enter(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, err := middleware.RequireShopper(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.EnterCheckout(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session.View())
	}
}

func Fetch(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, err := middleware.RequireShopper(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Checkout()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session.View())
	}
}

// Abandon leaves checkout. The cart is untouched.
func Abandon(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, err := middleware.RequireShopper(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.AbandonCheckout(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "abandoned", "redirect": "/cart"})
	}
}

// UpdateBilling applies billing field edits. Edits that fail normalization
// are reported with accepted=false rather than as an error.
func UpdateBilling(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, err := middleware.RequireShopper(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutsvc.BillingUpdate
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Checkout()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		fields, err := session.UpdateBilling(payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, fieldsResponse{Fields: nonNil(fields), Checkout: session.View()})
	}
}

func UpdatePayment(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, err := middleware.RequireShopper(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutsvc.PaymentUpdate
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Checkout()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		fields, err := session.UpdatePayment(payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, fieldsResponse{Fields: nonNil(fields), Checkout: session.View()})
	}
}

func Next(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, err := middleware.RequireShopper(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Next()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session.View())
	}
}

func Back(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, err := middleware.RequireShopper(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Back()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session.View())
	}
}

// Confirm submits the order with the caller's optional bearer credential.
// On success the cart has already been cleared.
func Confirm(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, err := middleware.RequireShopper(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		receipt, err := svc.Confirm(r.Context(), middleware.CredentialFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := confirmResponse{Order: receipt, Cart: svc.CartView()}
		if session, err := svc.Checkout(); err == nil {
			resp.Checkout = session.View()
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

func nonNil(fields []checkoutsvc.FieldResult) []checkoutsvc.FieldResult {
	if fields == nil {
		return []checkoutsvc.FieldResult{}
	}
	return fields
}
