package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compunet/storefront/api/middleware"
	"github.com/compunet/storefront/internal/checkout"
	"github.com/compunet/storefront/internal/shopper"
	"github.com/compunet/storefront/pkg/auth"
	"github.com/compunet/storefront/pkg/storage"
)

type noopSubmitter struct{}

func (noopSubmitter) Submit(context.Context, checkout.Order, auth.Credential) (checkout.Receipt, error) {
	return checkout.Receipt{}, nil
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	reg, err := shopper.NewRegistry(shopper.Dependencies{
		Storage:   storage.NewMemoryStore(),
		Submitter: noopSubmitter{},
	})
	require.NoError(t, err)
	svc, err := reg.Get(context.Background(), "sess-1")
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithShopper(req.Context(), svc)))
		})
	})
	r.Get("/api/cart", Fetch(nil))
	r.Delete("/api/cart", Clear(nil))
	r.Post("/api/cart/items", AddItem(nil))
	r.Patch("/api/cart/items/{productId}", UpdateQuantity(nil))
	r.Delete("/api/cart/items/{productId}", RemoveItem(nil))
	r.Post("/api/cart/items/{productId}/toggle", Toggle(nil))
	r.Post("/api/cart/selection", SelectAll(nil))
	r.Delete("/api/cart/selection", DeselectAll(nil))
	return r
}

type cartEnvelope struct {
	Data shopper.CartView `json:"data"`
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func decodeCart(t *testing.T, resp *httptest.ResponseRecorder) shopper.CartView {
	t.Helper()
	var env cartEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env.Data
}

func TestAddItemAndFetch(t *testing.T) {
	h := newRouter(t)

	resp := do(t, h, http.MethodPost, "/api/cart/items", `{"product":{"id":1,"name":"Mouse","price":100,"image":"mouse.png"}}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var added struct {
		Data struct {
			Item struct {
				ID       json.Number `json:"id"`
				Image    string      `json:"image"`
				Quantity int         `json:"quantity"`
			} `json:"item"`
			Cart shopper.CartView `json:"cart"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&added))
	assert.Equal(t, "1", added.Data.Item.ID.String())
	assert.Equal(t, 1, added.Data.Item.Quantity)
	assert.Equal(t, "http://localhost:8000/storage/products/mouse.png", added.Data.Item.Image)

	resp = do(t, h, http.MethodPost, "/api/cart/items", `{"product":{"id":1,"name":"Mouse","price":100},"quantity":2}`)
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = do(t, h, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, resp.Code)
	view := decodeCart(t, resp)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Count)
	assert.Equal(t, "300.00", view.Totals.SelectedSubtotal)
	assert.Equal(t, "54.00", view.Totals.Tax)
	assert.Equal(t, "354.00", view.Totals.GrandTotal)
	assert.True(t, view.AllSelected)
}

func TestAddItemRejectsMissingProductID(t *testing.T) {
	h := newRouter(t)
	resp := do(t, h, http.MethodPost, "/api/cart/items", `{"product":{"name":"Mouse","price":100}}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAddItemKeepsStringIDsAndIgnoresCatalogFields(t *testing.T) {
	h := newRouter(t)
	body := `{"product":{"id":"007","name":"Funda","price":15,"description":"Funda de silicona","stock":12,"category":{"id":3,"name":"Accesorios"}}}`
	resp := do(t, h, http.MethodPost, "/api/cart/items", body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), `"id":"007"`)

	resp = do(t, h, http.MethodPost, "/api/cart/items", `{"product":{"id":"42","price":10}}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = do(t, h, http.MethodPatch, "/api/cart/items/007", `{"quantity":3}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	view := decodeCart(t, resp)
	require.Len(t, view.Items, 2)
	assert.Equal(t, 3, view.Items[0].Quantity)
}

func TestAddItemRejectsUnknownTopLevelFields(t *testing.T) {
	h := newRouter(t)
	resp := do(t, h, http.MethodPost, "/api/cart/items", `{"product":{"id":1,"price":10},"coupon":"X"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUpdateQuantity(t *testing.T) {
	h := newRouter(t)
	do(t, h, http.MethodPost, "/api/cart/items", `{"product":{"id":7,"price":"10.50"}}`)

	resp := do(t, h, http.MethodPatch, "/api/cart/items/7", `{"quantity":4}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 4, decodeCart(t, resp).Items[0].Quantity)

	resp = do(t, h, http.MethodPatch, "/api/cart/items/7", `{"quantity":0}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, decodeCart(t, resp).Items[0].Quantity, "quantities clamp to one")

	resp = do(t, h, http.MethodPatch, "/api/cart/items/99", `{"quantity":2}`)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = do(t, h, http.MethodPatch, "/api/cart/items/7", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSelectionEndpoints(t *testing.T) {
	h := newRouter(t)
	do(t, h, http.MethodPost, "/api/cart/items", `{"product":{"id":1,"price":50}}`)
	do(t, h, http.MethodPost, "/api/cart/items", `{"product":{"id":2,"price":30}}`)

	resp := do(t, h, http.MethodPost, "/api/cart/items/2/toggle", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var toggled struct {
		Data struct {
			Selected bool             `json:"selected"`
			Cart     shopper.CartView `json:"cart"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&toggled))
	assert.False(t, toggled.Data.Selected)
	assert.True(t, toggled.Data.Cart.PartiallySelected)
	assert.Equal(t, "59.00", toggled.Data.Cart.Totals.GrandTotal)

	resp = do(t, h, http.MethodDelete, "/api/cart/selection", "")
	view := decodeCart(t, resp)
	assert.Empty(t, view.SelectedIDs)
	assert.Equal(t, "0.00", view.Totals.GrandTotal)
	assert.Equal(t, "80.00", view.CartTotal)

	resp = do(t, h, http.MethodPost, "/api/cart/selection", "")
	view = decodeCart(t, resp)
	assert.Len(t, view.SelectedIDs, 2)
	assert.True(t, view.AllSelected)
}

func TestRemoveAndClear(t *testing.T) {
	h := newRouter(t)
	do(t, h, http.MethodPost, "/api/cart/items", `{"product":{"id":1,"price":50}}`)
	do(t, h, http.MethodPost, "/api/cart/items", `{"product":{"id":2,"price":30}}`)

	resp := do(t, h, http.MethodDelete, "/api/cart/items/1", "")
	require.Equal(t, http.StatusOK, resp.Code)
	view := decodeCart(t, resp)
	require.Len(t, view.Items, 1)
	assert.Len(t, view.SelectedIDs, 1)

	resp = do(t, h, http.MethodDelete, "/api/cart/items/1", "")
	assert.Equal(t, http.StatusOK, resp.Code, "removing twice is idempotent")

	resp = do(t, h, http.MethodDelete, "/api/cart", "")
	require.Equal(t, http.StatusOK, resp.Code)
	view = decodeCart(t, resp)
	assert.Empty(t, view.Items)
	assert.Equal(t, 0, view.Count)
}

func TestHandlersRequireShopper(t *testing.T) {
	resp := httptest.NewRecorder()
	Fetch(nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}
