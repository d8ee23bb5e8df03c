package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compunet/storefront/api/controllers"
	"github.com/compunet/storefront/internal/orders"
	"github.com/compunet/storefront/internal/shopper"
	"github.com/compunet/storefront/pkg/config"
	"github.com/compunet/storefront/pkg/metrics"
	"github.com/compunet/storefront/pkg/storage"
)

type commerceAPI struct {
	mu       sync.Mutex
	bodies   []map[string]any
	keys     []string
	auths    []string
	failNext bool
}

func (c *commerceAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orders", func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if r.Method == http.MethodGet {
			_, _ = io.WriteString(w, `{"data":[{"id":10}]}`)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		c.bodies = append(c.bodies, body)
		c.keys = append(c.keys, r.Header.Get("Idempotency-Key"))
		c.auths = append(c.auths, r.Header.Get("Authorization"))
		if c.failNext {
			c.failNext = false
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = io.WriteString(w, `{"message":"Stock insuficiente"}`)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":321}`)
	})
	return mux
}

type harness struct {
	server http.Handler
	api    *commerceAPI
}

func newHarness(t *testing.T) harness {
	t.Helper()
	api := &commerceAPI{}
	upstream := httptest.NewServer(api.handler())
	t.Cleanup(upstream.Close)

	cfg := &config.Config{
		App:     config.AppConfig{Env: "dev"},
		Session: config.SessionConfig{CookieName: "sf_session"},
	}
	reg := prometheus.NewRegistry()
	m := metrics.NewStorefront(reg)

	gateway, err := orders.NewGateway(config.OrdersConfig{BaseURL: upstream.URL}, upstream.Client(), nil, m)
	require.NoError(t, err)

	backend := storage.NewMemoryStore()
	registry, err := shopper.NewRegistry(shopper.Dependencies{
		Storage:   backend,
		Submitter: gateway,
		Metrics:   m,
	})
	require.NoError(t, err)

	h := NewRouter(cfg, nil, registry, gateway, nil, m,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		map[string]controllers.Pinger{"storage": storage.HealthCheck(backend)})
	return harness{server: h, api: api}
}

func (h harness) call(t *testing.T, method, path, session, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if session != "" {
		req.Header.Set("X-Session-Id", session)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp := httptest.NewRecorder()
	h.server.ServeHTTP(resp, req)
	return resp
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/health/live", "", "").Code)
	assert.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/health/ready", "", "").Code)

	h.call(t, http.MethodGet, "/api/cart", "", "")
	resp := h.call(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "storefront_http_requests_total")
}

func TestSessionIsMintedAndReused(t *testing.T) {
	h := newHarness(t)

	resp := h.call(t, http.MethodPost, "/api/cart/items", "", `{"product":{"id":1,"price":100}}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	session := resp.Header().Get("X-Session-Id")
	require.NotEmpty(t, session)

	resp = h.call(t, http.MethodGet, "/api/cart", session, "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"cartCount":1`)

	resp = h.call(t, http.MethodGet, "/api/cart", "", "")
	assert.Contains(t, resp.Body.String(), `"cartCount":0`, "a new session starts empty")
}

func TestCheckoutEndToEnd(t *testing.T) {
	h := newHarness(t)
	resp := h.call(t, http.MethodPost, "/api/cart/items", "", `{"product":{"id":1,"name":"Teclado","price":100},"quantity":2}`)
	require.Equal(t, http.StatusCreated, resp.Code)
	session := resp.Header().Get("X-Session-Id")
	resp = h.call(t, http.MethodPost, "/api/cart/items", session, `{"product":{"id":2,"name":"Mouse","price":50},"quantity":2}`)
	require.Equal(t, http.StatusCreated, resp.Code)

	steps := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodPost, "/api/checkout", "", http.StatusCreated},
		{http.MethodPut, "/api/checkout/billing", `{"type":"factura","document":"20123456789","name":"ACME SAC","address":"Jr. Cusco 1","email":"compras@acme.pe"}`, http.StatusOK},
		{http.MethodPost, "/api/checkout/next", "", http.StatusOK},
		{http.MethodPut, "/api/checkout/payment", `{"paymentMethod":"yape","yapeNumber":"987654321","yapeCode":"123456"}`, http.StatusOK},
		{http.MethodPost, "/api/checkout/next", "", http.StatusOK},
	}
	for _, step := range steps {
		resp := h.call(t, step.method, step.path, session, step.body)
		require.Equal(t, step.want, resp.Code, "%s %s: %s", step.method, step.path, resp.Body.String())
	}

	h.api.mu.Lock()
	h.api.failNext = true
	h.api.mu.Unlock()
	resp = h.call(t, http.MethodPost, "/api/checkout/confirm", session, "", "Authorization", "Bearer tok")
	require.Equal(t, http.StatusBadGateway, resp.Code)
	assert.Contains(t, resp.Body.String(), "Stock insuficiente")

	resp = h.call(t, http.MethodPost, "/api/checkout/confirm", session, "", "Authorization", "Bearer tok")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), `"orderId":"321"`)

	h.api.mu.Lock()
	require.Len(t, h.api.bodies, 2)
	assert.Equal(t, h.api.keys[0], h.api.keys[1])
	assert.NotEmpty(t, h.api.keys[0])
	assert.Equal(t, "Bearer tok", h.api.auths[1])
	body := h.api.bodies[1]
	h.api.mu.Unlock()

	assert.Equal(t, float64(354), body["total"])
	assert.Equal(t, "yape", body["paymentMethod"])
	assert.Equal(t, map[string]any{"yapeNumber": "987654321", "yapeCode": "123456"}, body["paymentData"])
	items, ok := body["items"].([]any)
	require.True(t, ok)
	assert.Len(t, items, 2)

	resp = h.call(t, http.MethodGet, "/api/cart", session, "")
	assert.Contains(t, resp.Body.String(), `"cartCount":0`)
}

func TestOrdersRequireCredential(t *testing.T) {
	h := newHarness(t)

	resp := h.call(t, http.MethodGet, "/api/orders", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = h.call(t, http.MethodGet, "/api/orders", "", "", "Authorization", "Bearer tok")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"data":[{"id":10}]}`, resp.Body.String())
}

func TestUnknownRouteIs404(t *testing.T) {
	h := newHarness(t)
	resp := h.call(t, http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
