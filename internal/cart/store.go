// Package cart holds a shopper's line items and the selection of lines marked
// for the next checkout. Every mutation writes the line items back to durable
// storage under StorageKey.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/compunet/storefront/pkg/errors"
	"github.com/compunet/storefront/pkg/logger"
	"github.com/compunet/storefront/pkg/storage"
	"github.com/compunet/storefront/pkg/types"
)

// StorageKey is the durable key holding the serialized line items.
const StorageKey = "cart"

// Selection is the set of product ids marked for checkout, keyed by
// ProductID.Key.
type Selection map[string]struct{}

// Has reports membership.
func (s Selection) Has(id types.ProductID) bool {
	_, ok := s[id.Key()]
	return ok
}

func (s Selection) add(id types.ProductID) {
	s[id.Key()] = struct{}{}
}

func (s Selection) remove(id types.ProductID) {
	delete(s, id.Key())
}

// Store is the persistent cart plus its selection model. It is safe for
// concurrent use.
type Store struct {
	mu       sync.Mutex
	backend  storage.Store
	images   ImageNormalizer
	logg     *logger.Logger
	lines    []LineItem
	selected Selection
}

// NewStore hydrates a cart from backend. Missing or unreadable data yields an
// empty cart.
func NewStore(ctx context.Context, backend storage.Store, images ImageNormalizer, logg *logger.Logger) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("storage backend required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	s := &Store{
		backend:  backend,
		images:   images,
		logg:     logg,
		selected: Selection{},
	}
	s.lines = s.hydrate(ctx)
	return s, nil
}

func (s *Store) hydrate(ctx context.Context) []LineItem {
	raw, err := s.backend.Get(ctx, StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.logg.Error(ctx, "cart.hydrate.read_failed", err)
		return nil
	}

	var stored []LineItem
	if err := json.Unmarshal(raw, &stored); err != nil {
		warnCtx := s.logg.WithField(s.logg.WithError(ctx, err), "bytes", len(raw))
		s.logg.Warn(warnCtx, "cart.hydrate.corrupt")
		return nil
	}

	lines := make([]LineItem, 0, len(stored))
	index := map[string]int{}
	for _, line := range stored {
		if line.ID.IsZero() {
			continue
		}
		if line.Quantity < 1 {
			line.Quantity = 1
		}
		if line.UnitPrice.IsNegative() {
			line.UnitPrice = decimal.Zero
		}
		if i, ok := index[line.ID.Key()]; ok {
			lines[i].Quantity += line.Quantity
			continue
		}
		index[line.ID.Key()] = len(lines)
		lines = append(lines, line)
	}
	return lines
}

func (s *Store) indexOf(id types.ProductID) int {
	for i := range s.lines {
		if s.lines[i].ID.Key() == id.Key() {
			return i
		}
	}
	return -1
}

// persist must be called with mu held.
func (s *Store) persist(ctx context.Context) error {
	lines := s.lines
	if lines == nil {
		lines = []LineItem{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding cart")
	}
	if err := s.backend.Set(ctx, StorageKey, data); err != nil {
		s.logg.Error(ctx, "cart.persist.failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting cart")
	}
	return nil
}

// AddItem inserts product or, when its id is already in the cart, increases the
// quantity and refreshes the image. New lines are selected. Quantities below 1
// are treated as 1.
func (s *Store) AddItem(ctx context.Context, product Product, quantity int) (LineItem, error) {
	if product.ID.IsZero() {
		return LineItem{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if quantity < 1 {
		quantity = 1
	}
	price := product.Price
	if price.IsNegative() {
		price = decimal.Zero
	}
	image := s.images.Normalize(product)

	s.mu.Lock()
	defer s.mu.Unlock()

	var line LineItem
	if i := s.indexOf(product.ID); i >= 0 {
		s.lines[i].Quantity += quantity
		s.lines[i].Image = image
		line = s.lines[i]
	} else {
		line = LineItem{
			ID:        product.ID,
			Name:      product.Name,
			UnitPrice: price,
			Image:     image,
			Quantity:  quantity,
		}
		s.lines = append(s.lines, line)
		s.selected.add(product.ID)
	}
	return line, s.persist(ctx)
}

// UpdateQuantity sets the quantity of an existing line, clamped to at least 1.
// It reports false, without persisting, when id is not in the cart.
func (s *Store) UpdateQuantity(ctx context.Context, id types.ProductID, quantity int) (bool, error) {
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}
	s.lines[i].Quantity = quantity
	return true, s.persist(ctx)
}

// RemoveItem deletes the line and its selection entry.
func (s *Store) RemoveItem(ctx context.Context, id types.ProductID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selected.remove(id)
	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	return true, s.persist(ctx)
}

// Clear empties the cart and the selection. Calling it on an empty cart is fine.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	s.selected = Selection{}
	return s.persist(ctx)
}

// Toggle flips the selection of id and returns the new membership. Ids that
// are not in the cart are never selected.
func (s *Store) Toggle(id types.ProductID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected.Has(id) {
		s.selected.remove(id)
		return false
	}
	if s.indexOf(id) < 0 {
		return false
	}
	s.selected.add(id)
	return true
}

// SelectAll selects every line currently in the cart.
func (s *Store) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selected = make(Selection, len(s.lines))
	for _, line := range s.lines {
		s.selected.add(line.ID)
	}
}

// DeselectAll empties the selection.
func (s *Store) DeselectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selected = Selection{}
}

// Snapshot returns a consistent copy of the lines and the selection.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]LineItem, len(s.lines))
	copy(lines, s.lines)
	selected := make(Selection, len(s.selected))
	for id := range s.selected {
		selected[id] = struct{}{}
	}
	return Snapshot{Lines: lines, Selection: selected}
}
