package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/compunet/storefront/api/middleware"
	internalorders "github.com/compunet/storefront/internal/orders"
	"github.com/compunet/storefront/pkg/auth"
	pkgerrors "github.com/compunet/storefront/pkg/errors"
)

type stubOrders struct {
	orders    []json.RawMessage
	receipt   *internalorders.Receipt
	err       error
	lastCred  auth.Credential
	lastOrder string
}

func (s *stubOrders) ListOrders(_ context.Context, cred auth.Credential) ([]json.RawMessage, error) {
	s.lastCred = cred
	return s.orders, s.err
}

func (s *stubOrders) DownloadReceipt(_ context.Context, cred auth.Credential, orderID string) (*internalorders.Receipt, error) {
	s.lastCred = cred
	s.lastOrder = orderID
	return s.receipt, s.err
}

func newRouter(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Credential(nil))
	r.Get("/api/orders", List(svc, nil))
	r.Get("/api/orders/{orderId}/receipt", Receipt(svc, nil))
	return r
}

func TestListForwardsCredential(t *testing.T) {
	svc := &stubOrders{orders: []json.RawMessage{json.RawMessage(`{"id":1}`)}}
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer tok")
	resp := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastCred.Token != "tok" {
		t.Fatalf("expected credential to be forwarded, got %+v", svc.lastCred)
	}
	var env struct {
		Data []map[string]int `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data) != 1 || env.Data[0]["id"] != 1 {
		t.Fatalf("unexpected orders %v", env.Data)
	}
}

func TestListUnauthorized(t *testing.T) {
	svc := &stubOrders{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in")}
	resp := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestReceiptStreamsPDF(t *testing.T) {
	svc := &stubOrders{receipt: &internalorders.Receipt{
		Filename:    "comprobante-pedido-42.pdf",
		ContentType: "application/pdf",
		Body:        []byte("%PDF-1.4"),
	}}
	req := httptest.NewRequest(http.MethodGet, "/api/orders/42/receipt", nil)
	req.Header.Set("Authorization", "Bearer tok")
	resp := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastOrder != "42" {
		t.Fatalf("expected order 42, got %q", svc.lastOrder)
	}
	if got := resp.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := resp.Header().Get("Content-Disposition"); got != `attachment; filename="comprobante-pedido-42.pdf"` {
		t.Fatalf("unexpected disposition %q", got)
	}
	if resp.Body.String() != "%PDF-1.4" {
		t.Fatalf("unexpected body %q", resp.Body.String())
	}
}

func TestReceiptNotFound(t *testing.T) {
	svc := &stubOrders{err: pkgerrors.New(pkgerrors.CodeNotFound, "missing")}
	resp := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/orders/9/receipt", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
