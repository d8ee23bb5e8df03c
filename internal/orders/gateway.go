// Package orders talks to the commerce API's order endpoints.
package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/compunet/storefront/internal/checkout"
	"github.com/compunet/storefront/pkg/auth"
	"github.com/compunet/storefront/pkg/config"
	pkgerrors "github.com/compunet/storefront/pkg/errors"
	"github.com/compunet/storefront/pkg/logger"
	"github.com/compunet/storefront/pkg/metrics"
)

const (
	ordersPath        = "/api/orders"
	maxErrorBodyBytes = 64 << 10

	listFailureMessage    = "Error al cargar pedidos"
	receiptFailureMessage = "Error al descargar el comprobante"
)

// IdempotencyHeader carries the checkout session's idempotency key.
const IdempotencyHeader = "Idempotency-Key"

// Gateway submits orders, lists a shopper's orders and downloads receipts.
// It never touches cart state.
type Gateway struct {
	baseURL string
	client  *http.Client
	logg    *logger.Logger
	metrics *metrics.Storefront
}

// NewGateway builds a gateway for cfg.BaseURL. A nil client gets one with cfg.Timeout.
func NewGateway(cfg config.OrdersConfig, client *http.Client, logg *logger.Logger, m *metrics.Storefront) (*Gateway, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("orders base url required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parsing orders base url: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Gateway{baseURL: base, client: client, logg: logg, metrics: m}, nil
}

func (g *Gateway) newRequest(ctx context.Context, method, path string, body io.Reader, cred auth.Credential) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if header := cred.Header(); header != "" {
		req.Header.Set("Authorization", header)
	}
	return req, nil
}

// Submit posts the order. Non-success responses become ORDER_SUBMISSION_FAILED
// carrying the API's "message" when it sent one.
func (g *Gateway) Submit(ctx context.Context, order checkout.Order, cred auth.Credential) (checkout.Receipt, error) {
	start := time.Now()
	ctx = g.logg.WithFields(ctx, map[string]any{
		"idempotency_key": order.IdempotencyKey,
		"items":           len(order.Items),
		"payment_method":  order.PaymentMethod.String(),
	})
	if cred.Subject != "" {
		ctx = g.logg.WithUserID(ctx, cred.Subject)
	}

	receipt, err := g.submit(ctx, order, cred)
	if err != nil {
		g.metrics.ObserveSubmission("failure", time.Since(start))
		g.logg.Error(ctx, "orders.submit.failed", err)
		return checkout.Receipt{}, err
	}
	g.metrics.ObserveSubmission("success", time.Since(start))
	g.logg.Info(g.logg.WithOrderID(ctx, receipt.OrderID), "orders.submit.succeeded")
	return receipt, nil
}

func (g *Gateway) submit(ctx context.Context, order checkout.Order, cred auth.Credential) (checkout.Receipt, error) {
	payload, err := json.Marshal(order)
	if err != nil {
		return checkout.Receipt{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding order")
	}
	req, err := g.newRequest(ctx, http.MethodPost, ordersPath, bytes.NewReader(payload), cred)
	if err != nil {
		return checkout.Receipt{}, pkgerrors.Wrap(pkgerrors.CodeSubmission, err, checkout.GenericFailureMessage)
	}
	if order.IdempotencyKey != "" {
		req.Header.Set(IdempotencyHeader, order.IdempotencyKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return checkout.Receipt{}, pkgerrors.Wrap(pkgerrors.CodeSubmission, err, checkout.GenericFailureMessage)
	}
	defer closeBody(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return checkout.Receipt{}, pkgerrors.Wrap(pkgerrors.CodeSubmission, err, checkout.GenericFailureMessage)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return checkout.Receipt{}, pkgerrors.New(pkgerrors.CodeSubmission, failureMessage(body, checkout.GenericFailureMessage)).
			WithDetails(map[string]any{"status": resp.StatusCode})
	}
	if !json.Valid(body) {
		return checkout.Receipt{}, pkgerrors.New(pkgerrors.CodeSubmission, checkout.GenericFailureMessage).
			WithDetails(map[string]any{"status": resp.StatusCode, "reason": "malformed response body"})
	}
	return checkout.Receipt{OrderID: orderID(body), Payload: json.RawMessage(body)}, nil
}

// failureMessage extracts {"message": "..."} from body, or returns fallback.
func failureMessage(body []byte, fallback string) string {
	if len(body) > maxErrorBodyBytes {
		body = body[:maxErrorBodyBytes]
	}
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fallback
	}
	if msg := strings.TrimSpace(parsed.Message); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(parsed.Error); msg != "" {
		return msg
	}
	return fallback
}

// orderID looks for the created order's id in the usual envelope shapes.
func orderID(body []byte) string {
	var parsed struct {
		ID      json.RawMessage `json:"id"`
		OrderID json.RawMessage `json:"order_id"`
		Data    struct {
			ID json.RawMessage `json:"id"`
		} `json:"data"`
		Order struct {
			ID json.RawMessage `json:"id"`
		} `json:"order"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	for _, raw := range []json.RawMessage{parsed.ID, parsed.OrderID, parsed.Data.ID, parsed.Order.ID} {
		if id := rawScalar(raw); id != "" {
			return id
		}
	}
	return ""
}

func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// ListOrders returns the shopper's orders as the API sent them. Both a bare
// array and a {"data": [...]} envelope are accepted.
func (g *Gateway) ListOrders(ctx context.Context, cred auth.Credential) ([]json.RawMessage, error) {
	if cred.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to see your orders")
	}
	req, err := g.newRequest(ctx, http.MethodGet, ordersPath, nil, cred)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, listFailureMessage)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, listFailureMessage)
	}
	defer closeBody(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, listFailureMessage)
	}
	if err := statusError(resp.StatusCode, body, listFailureMessage); err != nil {
		return nil, err
	}

	var list []json.RawMessage
	if err := json.Unmarshal(body, &list); err == nil {
		return nonNil(list), nil
	}
	var envelope struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, listFailureMessage)
	}
	return nonNil(envelope.Data), nil
}

func nonNil(list []json.RawMessage) []json.RawMessage {
	if list == nil {
		return []json.RawMessage{}
	}
	return list
}

// Receipt is a downloaded order receipt document.
type Receipt struct {
	Filename    string
	ContentType string
	Body        []byte
}

// DownloadReceipt fetches the PDF receipt of an order.
func (g *Gateway) DownloadReceipt(ctx context.Context, cred auth.Credential, orderID string) (*Receipt, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if cred.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to download receipts")
	}
	req, err := g.newRequest(ctx, http.MethodGet, ordersPath+"/"+url.PathEscape(orderID)+"/pdf", nil, cred)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, receiptFailureMessage)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, receiptFailureMessage)
	}
	defer closeBody(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, receiptFailureMessage)
	}
	if err := statusError(resp.StatusCode, body, receiptFailureMessage); err != nil {
		return nil, err
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}
	return &Receipt{
		Filename:    "comprobante-pedido-" + orderID + ".pdf",
		ContentType: contentType,
		Body:        body,
	}, nil
}

func statusError(status int, body []byte, fallback string) error {
	switch {
	case status >= 200 && status <= 299:
		return nil
	case status == http.StatusUnauthorized:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, failureMessage(body, fallback))
	case status == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, failureMessage(body, fallback))
	default:
		return pkgerrors.New(pkgerrors.CodeDependency, failureMessage(body, fallback)).
			WithDetails(map[string]any{"status": status})
	}
}

func closeBody(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

var _ checkout.Submitter = (*Gateway)(nil)
