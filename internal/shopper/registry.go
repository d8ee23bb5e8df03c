package shopper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/compunet/storefront/internal/cart"
	"github.com/compunet/storefront/internal/checkout"
	"github.com/compunet/storefront/pkg/logger"
	"github.com/compunet/storefront/pkg/metrics"
	"github.com/compunet/storefront/pkg/storage"
)

// Dependencies are shared by every shopper service.
type Dependencies struct {
	Storage   storage.Store
	Images    cart.ImageNormalizer
	Submitter checkout.Submitter
	Checkout  checkout.Options
	IdleTTL   time.Duration
	Logger    *logger.Logger
	Metrics   *metrics.Storefront
	Now       func() time.Time
}

// Registry keeps the live shopper services in memory. Carts survive eviction
// because they are read back from storage on the next visit.
type Registry struct {
	deps Dependencies

	mu       sync.Mutex
	services map[string]*Service
}

func NewRegistry(deps Dependencies) (*Registry, error) {
	if deps.Storage == nil {
		return nil, fmt.Errorf("storage required")
	}
	if deps.Submitter == nil {
		return nil, fmt.Errorf("order submitter required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	deps.Checkout = deps.Checkout.WithDefaults()
	return &Registry{deps: deps, services: map[string]*Service{}}, nil
}

// Get returns the service for sessionID, hydrating its cart on first use.
// Hydration runs without the registry lock; when two requests race for the
// same new session the first one inserted wins.
func (r *Registry) Get(ctx context.Context, sessionID string) (*Service, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session id required")
	}
	now := r.deps.Now()
	if svc := r.lookup(sessionID, now); svc != nil {
		return svc, nil
	}

	ctx = r.deps.Logger.WithSessionID(ctx, sessionID)
	store, err := cart.NewStore(ctx, storage.Scoped(r.deps.Storage, sessionID), r.deps.Images, r.deps.Logger)
	if err != nil {
		return nil, err
	}
	svc := &Service{
		id:        sessionID,
		cart:      store,
		submitter: r.deps.Submitter,
		opts:      r.deps.Checkout,
		logg:      r.deps.Logger,
		metrics:   r.deps.Metrics,
		lastSeen:  now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.services[sessionID]; ok {
		existing.touch(now)
		return existing, nil
	}
	r.services[sessionID] = svc
	return svc, nil
}

func (r *Registry) lookup(sessionID string, now time.Time) *Service {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.services[sessionID]
	if !ok {
		return nil
	}
	svc.touch(now)
	return svc
}

// Len reports how many services are in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.services)
}

// Sweep drops services idle for longer than the configured TTL. Any checkout
// they held is abandoned. It returns the number of evicted services.
func (r *Registry) Sweep(ctx context.Context) int {
	if r.deps.IdleTTL <= 0 {
		return 0
	}
	cutoff := r.deps.Now().Add(-r.deps.IdleTTL)

	r.mu.Lock()
	var idle []*Service
	for id, svc := range r.services {
		if svc.idleSince().Before(cutoff) {
			idle = append(idle, svc)
			delete(r.services, id)
		}
	}
	r.mu.Unlock()

	for _, svc := range idle {
		if err := svc.AbandonCheckout(ctx); err == nil {
			r.deps.Logger.Debug(r.deps.Logger.WithSessionID(ctx, svc.ID()), "shopper.sweep.abandoned_checkout")
		}
	}
	if len(idle) > 0 {
		r.deps.Logger.Info(r.deps.Logger.WithField(ctx, "evicted", len(idle)), "shopper.sweep")
	}
	return len(idle)
}

// Run sweeps idle services every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Close abandons every active checkout and empties the registry.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	services := r.services
	r.services = map[string]*Service{}
	r.mu.Unlock()

	var errs error
	for _, svc := range services {
		session, err := svc.Checkout()
		if err != nil || session.Status().IsTerminal() {
			continue
		}
		if err := svc.AbandonCheckout(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("session %s: %w", svc.ID(), err))
		}
	}
	return errs
}
