package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/compunet/storefront/api/controllers"
	cartcontrollers "github.com/compunet/storefront/api/controllers/cart"
	checkoutcontrollers "github.com/compunet/storefront/api/controllers/checkout"
	ordercontrollers "github.com/compunet/storefront/api/controllers/orders"
	"github.com/compunet/storefront/api/middleware"
	"github.com/compunet/storefront/pkg/config"
	"github.com/compunet/storefront/pkg/logger"
	"github.com/compunet/storefront/pkg/metrics"
	"github.com/compunet/storefront/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	registry middleware.ShopperRegistry,
	ordersSvc ordercontrollers.Service,
	idempotencyStore redis.IdempotencyStore,
	storefrontMetrics *metrics.Storefront,
	metricsHandler http.Handler,
	readiness map[string]controllers.Pinger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(storefrontMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	idempotent := middleware.Idempotency(idempotencyStore, logg)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Credential(logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(ordersSvc, logg))
			r.Get("/{orderId}/receipt", ordercontrollers.Receipt(ordersSvc, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Shopper(registry, cfg.Session, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.Fetch(logg))
				r.Delete("/", cartcontrollers.Clear(logg))
				r.With(idempotent).Post("/items", cartcontrollers.AddItem(logg))
				r.Patch("/items/{productId}", cartcontrollers.UpdateQuantity(logg))
				r.Delete("/items/{productId}", cartcontrollers.RemoveItem(logg))
				r.Post("/items/{productId}/toggle", cartcontrollers.Toggle(logg))
				r.Post("/selection", cartcontrollers.SelectAll(logg))
				r.Delete("/selection", cartcontrollers.DeselectAll(logg))
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Post("/", checkoutcontrollers.Enter(logg))
				r.Get("/", checkoutcontrollers.Fetch(logg))
				r.Delete("/", checkoutcontrollers.Abandon(logg))
				r.Put("/billing", checkoutcontrollers.UpdateBilling(logg))
				r.Put("/payment", checkoutcontrollers.UpdatePayment(logg))
				r.Post("/next", checkoutcontrollers.Next(logg))
				r.Post("/back", checkoutcontrollers.Back(logg))
				r.With(idempotent).Post("/confirm", checkoutcontrollers.Confirm(logg))
			})
		})
	})

	return r
}
