package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/compunet/storefront/api/controllers"
	"github.com/compunet/storefront/api/routes"
	"github.com/compunet/storefront/internal/cart"
	"github.com/compunet/storefront/internal/checkout"
	"github.com/compunet/storefront/internal/orders"
	"github.com/compunet/storefront/internal/shopper"
	"github.com/compunet/storefront/pkg/config"
	"github.com/compunet/storefront/pkg/db"
	"github.com/compunet/storefront/pkg/instance"
	"github.com/compunet/storefront/pkg/logger"
	"github.com/compunet/storefront/pkg/metrics"
	"github.com/compunet/storefront/pkg/migrate"
	"github.com/compunet/storefront/pkg/redis"
	"github.com/compunet/storefront/pkg/storage"
)

// resources collects what main opens so it can be closed in one place.
type resources struct {
	store       storage.Store
	idempotency redis.IdempotencyStore
	readiness   map[string]controllers.Pinger
	closers     []func() error
}

func (r *resources) Close() error {
	var errs error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, r.closers[i]())
	}
	return errs
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := openResources(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap storage", err)
		os.Exit(1)
	}
	defer func() {
		if err := res.Close(); err != nil {
			logg.Error(context.Background(), "error closing resources", err)
		}
	}()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	storefrontMetrics := metrics.NewStorefront(promRegistry)

	gateway, err := orders.NewGateway(cfg.Orders, nil, logg, storefrontMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create orders gateway", err)
		os.Exit(1)
	}

	registry, err := shopper.NewRegistry(shopper.Dependencies{
		Storage: res.store,
		Images: cart.ImageNormalizer{
			StorageBaseURL: cfg.Catalog.StorageBaseURL,
			Placeholder:    cfg.Catalog.PlaceholderImage,
		},
		Submitter: gateway,
		Checkout: checkout.Options{
			Permissive: cfg.Checkout.Permissive,
			TaxRate:    decimal.NewFromFloat(cfg.Checkout.TaxRate),
			Currency:   cfg.Checkout.CurrencySymbol,
		},
		IdleTTL: cfg.Session.IdleTTL,
		Logger:  logg,
		Metrics: storefrontMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create shopper registry", err)
		os.Exit(1)
	}
	go registry.Run(ctx, cfg.Session.SweepEvery)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":            cfg.App.Env,
		"addr":           addr,
		"instance":       instance.GetID(),
		"storage_driver": cfg.Storage.Driver,
		"permissive":     cfg.Checkout.Permissive,
	})
	logg.Info(ctx, "starting storefront api")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			registry,
			gateway,
			res.idempotency,
			storefrontMetrics,
			promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
			res.readiness,
		),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
		return
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down storefront api")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.App.ShutdownTimeout)
	defer cancel()

	err = multierr.Combine(
		server.Shutdown(shutdownCtx),
		registry.Close(shutdownCtx),
	)
	if err != nil {
		logg.Error(shutdownCtx, "unclean shutdown", err)
	}
}

func openResources(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*resources, error) {
	res := &resources{readiness: map[string]controllers.Pinger{}}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, err
		}
		redisClient = client
		res.closers = append(res.closers, client.Close)
		res.idempotency = client
		res.readiness["redis"] = client
	}

	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		res.store = storage.NewMemoryStore()
	case config.StorageDriverFile:
		store, err := storage.NewFileStore(cfg.Storage.Dir)
		if err != nil {
			return nil, multierr.Append(err, res.Close())
		}
		res.store = store
	case config.StorageDriverRedis:
		store, err := storage.NewRedisStore(redisClient, cfg.Session.IdleTTL)
		if err != nil {
			return nil, multierr.Append(err, res.Close())
		}
		res.store = store
	case config.StorageDriverSQL:
		dbClient, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, multierr.Append(err, res.Close())
		}
		res.closers = append(res.closers, dbClient.Close)
		if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
			return nil, multierr.Append(err, res.Close())
		}
		store, err := storage.NewSQLStore(dbClient.DB())
		if err != nil {
			return nil, multierr.Append(err, res.Close())
		}
		res.store = store
	default:
		return nil, errors.New("unsupported storage driver " + cfg.Storage.Driver)
	}

	res.readiness["storage"] = storage.HealthCheck(res.store)
	return res, nil
}
