// Package shopper binds one shopper's cart, selection and checkout wizard
// into a single injected service object.
package shopper

import (
	"context"
	"sync"
	"time"

	"github.com/compunet/storefront/internal/cart"
	"github.com/compunet/storefront/internal/checkout"
	"github.com/compunet/storefront/internal/pricing"
	"github.com/compunet/storefront/pkg/auth"
	pkgerrors "github.com/compunet/storefront/pkg/errors"
	"github.com/compunet/storefront/pkg/logger"
	"github.com/compunet/storefront/pkg/metrics"
	"github.com/compunet/storefront/pkg/types"
)

// CartView is the read model of the cart page.
type CartView struct {
	Items             []cart.LineItem   `json:"items"`
	SelectedIDs       []types.ProductID `json:"selectedIds"`
	Count             int               `json:"cartCount"`
	CartTotal         string            `json:"cartTotal"`
	Totals            pricing.Display   `json:"totals"`
	AllSelected       bool              `json:"allSelected"`
	PartiallySelected bool              `json:"partiallySelected"`
}

// Service is the session-scoped facade used by the HTTP layer.
type Service struct {
	id        string
	cart      *cart.Store
	submitter checkout.Submitter
	opts      checkout.Options
	logg      *logger.Logger
	metrics   *metrics.Storefront

	mu       sync.Mutex
	session  *checkout.Session
	lastSeen time.Time
}

func (s *Service) ID() string { return s.id }

func (s *Service) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Service) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// CartView prices the current cart and selection.
func (s *Service) CartView() CartView {
	snap := s.cart.Snapshot()
	totals := pricing.ComputeWithRate(snap.Lines, snap.Selection, s.opts.TaxRate)
	return CartView{
		Items:             snap.Lines,
		SelectedIDs:       snap.SelectedIDs(),
		Count:             snap.Count(),
		CartTotal:         pricing.Format(snap.Total()),
		Totals:            totals.Display(s.opts.Currency),
		AllSelected:       snap.AllSelected(),
		PartiallySelected: snap.PartiallySelected(),
	}
}

func (s *Service) AddItem(ctx context.Context, product cart.Product, quantity int) (cart.LineItem, error) {
	s.metrics.IncCartMutation("add")
	return s.cart.AddItem(ctx, product, quantity)
}

// UpdateQuantity reports NOT_FOUND for ids that are not in the cart.
func (s *Service) UpdateQuantity(ctx context.Context, id types.ProductID, quantity int) error {
	s.metrics.IncCartMutation("update_quantity")
	found, err := s.cart.UpdateQuantity(ctx, id, quantity)
	if err != nil {
		return err
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart")
	}
	return nil
}

// RemoveItem is idempotent: removing a missing id succeeds.
func (s *Service) RemoveItem(ctx context.Context, id types.ProductID) error {
	s.metrics.IncCartMutation("remove")
	_, err := s.cart.RemoveItem(ctx, id)
	return err
}

func (s *Service) ClearCart(ctx context.Context) error {
	s.metrics.IncCartMutation("clear")
	return s.cart.Clear(ctx)
}

func (s *Service) Toggle(id types.ProductID) bool {
	s.metrics.IncCartMutation("toggle")
	return s.cart.Toggle(id)
}

func (s *Service) SelectAll() {
	s.metrics.IncCartMutation("select_all")
	s.cart.SelectAll()
}

func (s *Service) DeselectAll() {
	s.metrics.IncCartMutation("deselect_all")
	s.cart.DeselectAll()
}

// EnterCheckout starts a new wizard from the current selection, abandoning
// any previous one that is still active. Entry is refused while the previous
// wizard is submitting.
func (s *Service) EnterCheckout(ctx context.Context) (*checkout.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.session
	if previous != nil && previous.View().Submitting {
		return nil, pkgerrors.New(pkgerrors.CodeSubmissionPending, "order submission already in progress")
	}
	session, err := checkout.Enter(s.cart.Snapshot(), s.opts)
	if err != nil {
		s.metrics.IncCheckoutTransition("enter_refused")
		return nil, err
	}
	if previous != nil {
		if err := previous.Abandon(); err != nil && !previous.Status().IsTerminal() {
			return nil, err
		}
	}
	s.session = session

	s.metrics.IncCheckoutTransition("enter")
	s.logg.Info(s.logg.WithCheckoutID(ctx, session.ID()), "checkout.entered")
	return session, nil
}

// Checkout returns the current wizard, or NOT_FOUND when none was entered.
func (s *Service) Checkout() (*checkout.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no checkout in progress")
	}
	return s.session, nil
}

// AbandonCheckout discards the wizard. Nothing was persisted, so there is
// nothing to undo.
func (s *Service) AbandonCheckout(ctx context.Context) error {
	session, err := s.Checkout()
	if err != nil {
		return err
	}
	if err := session.Abandon(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.session == session {
		s.session = nil
	}
	s.mu.Unlock()
	s.metrics.IncCheckoutTransition("abandon")
	s.logg.Info(s.logg.WithCheckoutID(ctx, session.ID()), "checkout.abandoned")
	return nil
}

func (s *Service) Next() (*checkout.Session, error) {
	session, err := s.Checkout()
	if err != nil {
		return nil, err
	}
	if _, err := session.Next(); err != nil {
		return session, err
	}
	s.metrics.IncCheckoutTransition("next")
	return session, nil
}

func (s *Service) Back() (*checkout.Session, error) {
	session, err := s.Checkout()
	if err != nil {
		return nil, err
	}
	if _, err := session.Back(); err != nil {
		return session, err
	}
	s.metrics.IncCheckoutTransition("back")
	return session, nil
}

// Confirm submits the order and, once the commerce API accepted it, clears the
// cart and selection. A failure to persist the cleared cart is logged but does
// not undo the placed order.
func (s *Service) Confirm(ctx context.Context, cred auth.Credential) (checkout.Receipt, error) {
	session, err := s.Checkout()
	if err != nil {
		return checkout.Receipt{}, err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"checkout_id":     session.ID(),
		"idempotency_key": session.IdempotencyKey(),
	})

	receipt, err := session.Confirm(ctx, s.submitter, cred)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeSubmissionPending) {
			s.metrics.ObserveSubmission("rejected", 0)
		}
		s.logg.Warn(ctx, "checkout.confirm.failed")
		return checkout.Receipt{}, err
	}

	s.metrics.IncCheckoutTransition("submitted")
	if err := s.cart.Clear(ctx); err != nil {
		s.logg.Error(ctx, "checkout.confirm.clear_cart_failed", err)
	}
	s.logg.Info(s.logg.WithOrderID(ctx, receipt.OrderID), "checkout.submitted")
	return receipt, nil
}
