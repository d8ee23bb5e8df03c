// Package orders proxies the shopper's order history and receipts from the
// commerce API.
package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/compunet/storefront/api/middleware"
	"github.com/compunet/storefront/api/responses"
	internalorders "github.com/compunet/storefront/internal/orders"
	"github.com/compunet/storefront/pkg/auth"
	pkgerrors "github.com/compunet/storefront/pkg/errors"
	"github.com/compunet/storefront/pkg/logger"
)

// Service is the slice of the order gateway the handlers use.
type Service interface {
	ListOrders(ctx context.Context, cred auth.Credential) ([]json.RawMessage, error)
	DownloadReceipt(ctx context.Context, cred auth.Credential, orderID string) (*internalorders.Receipt, error)
}

// List returns the signed-in shopper's orders as the commerce API sent them.
func List(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orders, err := svc.ListOrders(r.Context(), middleware.CredentialFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders)
	}
}

// Receipt streams an order's PDF receipt as an attachment.
func Receipt(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
		if orderID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id required"))
			return
		}

		receipt, err := svc.DownloadReceipt(r.Context(), middleware.CredentialFromContext(r.Context()), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Content-Type", receipt.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", receipt.Filename))
		w.Header().Set("Content-Length", strconv.Itoa(len(receipt.Body)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(receipt.Body); err != nil && logg != nil {
			logg.Warn(logg.WithError(r.Context(), err), "orders.receipt.write_failed")
		}
	}
}
